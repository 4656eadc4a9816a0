// Package observability wraps the agent loop's event stream to emit
// session/turn/tool-execution telemetry records without altering the
// stream itself.
package observability

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentcore/coreagent/pkg/models"
)

// Exporter receives telemetry records. A Composite fans out to multiple
// backends; NoOp is used when observability is disabled.
type Exporter interface {
	StartSession(ctx context.Context, tc *models.TelemetryContext) error
	EndSession(ctx context.Context, tc *models.TelemetryContext) error
	StartTurn(ctx context.Context, turn *models.TurnContext) error
	EndTurn(ctx context.Context, turn *models.TurnContext) error
	RecordModelCall(ctx context.Context, sessionID, turnID string, usage models.Usage) error
	RecordToolExecution(ctx context.Context, tec *models.ToolExecutionContext) error
	Flush(ctx context.Context) error
	Close() error
}

// NoOpExporter discards every record; used when observability is disabled.
type NoOpExporter struct{}

func (NoOpExporter) StartSession(context.Context, *models.TelemetryContext) error        { return nil }
func (NoOpExporter) EndSession(context.Context, *models.TelemetryContext) error          { return nil }
func (NoOpExporter) StartTurn(context.Context, *models.TurnContext) error                { return nil }
func (NoOpExporter) EndTurn(context.Context, *models.TurnContext) error                  { return nil }
func (NoOpExporter) RecordModelCall(context.Context, string, string, models.Usage) error { return nil }
func (NoOpExporter) RecordToolExecution(context.Context, *models.ToolExecutionContext) error {
	return nil
}
func (NoOpExporter) Flush(context.Context) error { return nil }
func (NoOpExporter) Close() error                { return nil }

// CompositeExporter fans every call out to all of its members, in order,
// returning the first error encountered (after attempting every member).
type CompositeExporter struct {
	Members []Exporter
}

func (c *CompositeExporter) StartSession(ctx context.Context, tc *models.TelemetryContext) error {
	return c.fanOut(func(e Exporter) error { return e.StartSession(ctx, tc) })
}
func (c *CompositeExporter) EndSession(ctx context.Context, tc *models.TelemetryContext) error {
	return c.fanOut(func(e Exporter) error { return e.EndSession(ctx, tc) })
}
func (c *CompositeExporter) StartTurn(ctx context.Context, turn *models.TurnContext) error {
	return c.fanOut(func(e Exporter) error { return e.StartTurn(ctx, turn) })
}
func (c *CompositeExporter) EndTurn(ctx context.Context, turn *models.TurnContext) error {
	return c.fanOut(func(e Exporter) error { return e.EndTurn(ctx, turn) })
}
func (c *CompositeExporter) RecordModelCall(ctx context.Context, sessionID, turnID string, usage models.Usage) error {
	return c.fanOut(func(e Exporter) error { return e.RecordModelCall(ctx, sessionID, turnID, usage) })
}
func (c *CompositeExporter) RecordToolExecution(ctx context.Context, tec *models.ToolExecutionContext) error {
	return c.fanOut(func(e Exporter) error { return e.RecordToolExecution(ctx, tec) })
}
func (c *CompositeExporter) Flush(ctx context.Context) error {
	return c.fanOut(func(e Exporter) error { return e.Flush(ctx) })
}
func (c *CompositeExporter) Close() error {
	return c.fanOut(func(e Exporter) error { return e.Close() })
}

func (c *CompositeExporter) fanOut(fn func(Exporter) error) error {
	var first error
	for _, e := range c.Members {
		if err := fn(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
