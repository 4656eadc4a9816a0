package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentcore/coreagent/pkg/models"
)

// PrometheusExporter records turn and tool-execution counts and durations
// as Prometheus metrics. Session-level hooks are no-ops: sessions are not
// a meaningful Prometheus label dimension at this cardinality.
type PrometheusExporter struct {
	turnsTotal       *prometheus.CounterVec
	toolCallsTotal   *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
}

// NewPrometheusExporter registers its metrics against reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPrometheusExporter(reg prometheus.Registerer) *PrometheusExporter {
	factory := promauto.With(reg)
	return &PrometheusExporter{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "turns_total",
			Help:      "Total number of completed agent turns.",
		}, []string{"session_id"}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "tool_calls_total",
			Help:      "Total number of tool invocations, labeled by tool name and outcome.",
		}, []string{"tool_name", "success"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentcore",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool_name"}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "tokens_total",
			Help:      "Cumulative token usage, labeled by direction.",
		}, []string{"direction"}),
	}
}

func (p *PrometheusExporter) StartSession(context.Context, *models.TelemetryContext) error { return nil }
func (p *PrometheusExporter) EndSession(context.Context, *models.TelemetryContext) error    { return nil }
func (p *PrometheusExporter) StartTurn(context.Context, *models.TurnContext) error          { return nil }

func (p *PrometheusExporter) EndTurn(_ context.Context, turn *models.TurnContext) error {
	p.turnsTotal.WithLabelValues(turn.SessionID).Inc()
	return nil
}

func (p *PrometheusExporter) RecordModelCall(_ context.Context, _, _ string, usage models.Usage) error {
	p.tokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	p.tokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))
	return nil
}

func (p *PrometheusExporter) RecordToolExecution(_ context.Context, tec *models.ToolExecutionContext) error {
	success := "true"
	if !tec.Success {
		success = "false"
	}
	p.toolCallsTotal.WithLabelValues(tec.ToolName, success).Inc()
	p.toolDuration.WithLabelValues(tec.ToolName).Observe(float64(tec.DurationMS) / 1000.0)
	return nil
}

func (p *PrometheusExporter) Flush(context.Context) error { return nil }
func (p *PrometheusExporter) Close() error                { return nil }

var _ Exporter = (*PrometheusExporter)(nil)
