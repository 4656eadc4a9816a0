package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"net/http"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/agent/providers"
	"github.com/agentcore/coreagent/internal/capability"
	"github.com/agentcore/coreagent/internal/cliutil"
	"github.com/agentcore/coreagent/internal/compaction"
	"github.com/agentcore/coreagent/internal/eval"
	"github.com/agentcore/coreagent/internal/observability"
	"github.com/agentcore/coreagent/internal/profile"
	"github.com/agentcore/coreagent/pkg/models"
)

const defaultSystemPrompt = "You are a tool-using agent. Use the registered tools precisely, prefer the smallest change that satisfies the request, and state your final answer plainly once done."

const defaultContextLimit = 128000

// runAgent wires provider/registry/approval/loop/observability from opts
// and either runs one turn (oneShot != "") or starts the interactive REPL.
func runAgent(cmd *cobra.Command, opts runOptions, oneShot string) error {
	out := cmd.OutOrStdout()

	if opts.list {
		return listConversations(out)
	}

	prof, err := profile.Resolve(opts.profileName)
	if err != nil {
		return err
	}
	applyProfileOverrides(prof, opts)

	workDir := opts.workingDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}
	registry := capability.BuildRegistry(prof, workDir)

	model := firstNonEmpty(opts.model, os.Getenv("OPENAI_MODEL"))
	if model == "" {
		return fmt.Errorf("no model configured: pass --model or set OPENAI_MODEL")
	}
	baseURL := firstNonEmpty(opts.baseURL, os.Getenv("OPENAI_BASE_URL"))
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	client := providers.New(apiKey, baseURL, model, providers.WithLogger(slog.Default()))

	systemPrompt, err := resolveSystemPrompt(opts)
	if err != nil {
		return err
	}

	session, resumed, err := resolveSession(opts, model, systemPrompt)
	if err != nil {
		return err
	}

	exporter, closeExporter, err := buildExporter()
	if err != nil {
		return err
	}
	defer closeExporter()
	processor := observability.NewProcessor(exporter, observability.CaptureConfig{ToolArguments: true, ToolResults: false}, session.ID)

	watcher, err := cliutil.NewCancelWatcher(session.ID, slog.Default())
	if err != nil {
		return err
	}
	defer watcher.Close()
	defer cliutil.ClearSignals(session.ID)

	preview := oneShot
	if preview == "" {
		preview = "(interactive)"
	}
	if len(preview) > 120 {
		preview = preview[:120]
	}
	_ = cliutil.WriteRunningSignal(cliutil.RunningSignal{
		SessionID:          session.ID,
		PID:                os.Getpid(),
		Model:              model,
		InstructionPreview: preview,
		StartedAt:          time.Now().Format(time.RFC3339),
	})

	autoApprove := newLatch(opts.autoApprove)
	approvalFunc := func(toolName string, args map[string]any) bool {
		if autoApprove.Load() {
			return true
		}
		return promptApproval(out, toolName, args)
	}

	loop := agent.NewLoop(agent.LoopConfig{
		Registry:       registry,
		Client:         client,
		Approval:       agent.NewApprovalPolicy(prof),
		ApprovalFunc:   approvalFunc,
		ContextLimit:   defaultContextLimit,
		AutoCompact:    true,
		Compact:        compaction.Adapter,
		ExternalCancel: watcher.Cancelled,
		Log:            slog.Default(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !resumed {
		fmt.Fprintf(out, "Session %s (profile=%s, model=%s)\n", session.ID, prof.Name, model)
	}

	if oneShot != "" {
		return runOneShot(ctx, loop, processor, session, oneShot, opts, out)
	}
	return runREPL(ctx, loop, client, processor, session, autoApprove, opts, out)
}

func applyProfileOverrides(prof *models.CapabilityProfile, opts runOptions) {
	switch strings.ToLower(opts.shellMode) {
	case "restricted":
		prof.Shell = models.ShellRestricted
	case "unrestricted":
		prof.Shell = models.ShellUnrestricted
	}
	switch strings.ToLower(opts.fileWriteMode) {
	case "off":
		prof.FileWrite = models.FileWriteOff
	case "create_only":
		prof.FileWrite = models.FileWriteCreateOnly
	case "full":
		prof.FileWrite = models.FileWriteFull
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func resolveSystemPrompt(opts runOptions) (string, error) {
	if opts.system != "" {
		return opts.system, nil
	}
	if opts.promptFile != "" {
		vars, err := mergedVars(opts)
		if err != nil {
			return "", err
		}
		return cliutil.LoadPromptFile(opts.promptFile, vars)
	}
	return defaultSystemPrompt, nil
}

func mergedVars(opts runOptions) (map[string]string, error) {
	vars := map[string]string{}
	if opts.varsFile != "" {
		fromFile, err := cliutil.LoadVarsFile(opts.varsFile)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			vars[k] = v
		}
	}
	fromFlags, err := cliutil.ParseVarFlags(opts.vars)
	if err != nil {
		return nil, err
	}
	for k, v := range fromFlags {
		vars[k] = v
	}
	return vars, nil
}

func resolveSession(opts runOptions, model, systemPrompt string) (*agent.Session, bool, error) {
	if opts.resume == "" {
		return agent.NewSession(uuid.NewString(), model, systemPrompt), false, nil
	}
	id, err := cliutil.ResolveResumeID(opts.resume)
	if err != nil {
		return nil, false, err
	}
	snap, err := cliutil.LoadSnapshot(id)
	if err != nil {
		return nil, false, fmt.Errorf("resuming session %s: %w", id, err)
	}
	return agent.RestoreSession(snap), true, nil
}

func persistSession(session *agent.Session) {
	if err := cliutil.SaveSnapshot(session.Snapshot()); err != nil {
		slog.Warn("failed to persist conversation snapshot", "session", session.ID, "error", err)
	}
}

// observabilityConfig is the optional observability.yaml shape: everything
// defaults to on-by-sqlite, off-by-prometheus.
type observabilityConfig struct {
	SQLite struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"sqlite"`
	Prometheus struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"prometheus"`
}

func loadObservabilityConfig() observabilityConfig {
	cfg := observabilityConfig{}
	cfg.SQLite.Enabled = true
	cfg.Prometheus.Addr = ":9090"

	raw, err := os.ReadFile(profile.ObservabilityConfigPath())
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("ignoring malformed observability.yaml", "error", err)
	}
	return cfg
}

// buildExporter assembles the composite exporter per observability.yaml,
// returning a close func that flushes and releases every member.
func buildExporter() (observability.Exporter, func(), error) {
	cfg := loadObservabilityConfig()
	members := []observability.Exporter{}

	if cfg.SQLite.Enabled {
		sqlExp, err := observability.NewSQLExporter(profile.TelemetryDBPath())
		if err != nil {
			slog.Warn("telemetry store unavailable, continuing without it", "error", err)
		} else {
			members = append(members, sqlExp)
		}
	}
	if cfg.Prometheus.Enabled {
		promExp := observability.NewPrometheusExporter(prometheus.DefaultRegisterer)
		members = append(members, promExp)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Prometheus.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("prometheus metrics server stopped", "error", err)
			}
		}()
	}

	if len(members) == 0 {
		return observability.NoOpExporter{}, func() {}, nil
	}
	composite := &observability.CompositeExporter{Members: members}
	return composite, func() { _ = composite.Close() }, nil
}

func listConversations(out interface{ Write([]byte) (int, error) }) error {
	snaps, err := cliutil.ListSnapshots()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No persisted conversations.")
		return nil
	}
	for _, s := range snaps {
		fmt.Fprintf(out, "%s  model=%s  turns-started=%s  tokens=%d/%d\n",
			s.ID, s.Model, s.Started.Format(time.RFC3339), s.InputTokens, s.OutputTokens)
	}
	return nil
}

func promptApproval(out interface{ Write([]byte) (int, error) }, toolName string, args map[string]any) bool {
	fmt.Fprintf(out, "\nApprove tool call %q with arguments %v? [y/N] ", toolName, args)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// runEval loads a task suite and drives the eval harness against it.
func runEval(cmd *cobra.Command, opts evalOptions) error {
	out := cmd.OutOrStdout()

	model := firstNonEmpty(opts.model, os.Getenv("OPENAI_MODEL"))
	apiKey := os.Getenv("OPENAI_API_KEY")
	if model == "" || apiKey == "" {
		return fmt.Errorf("eval requires --model/OPENAI_MODEL and OPENAI_API_KEY")
	}
	baseURL := firstNonEmpty(opts.baseURL, os.Getenv("OPENAI_BASE_URL"))
	client := providers.New(apiKey, baseURL, model)

	suite, err := eval.LoadSuite(opts.suitePath)
	if err != nil {
		return fmt.Errorf("loading suite: %w", err)
	}

	h := &eval.Harness{
		Client:      client,
		RunsPath:    opts.runsPath,
		OverallPath: opts.overallPath,
		SummaryPath: opts.summaryPath,
		FlexTimeouts: opts.flexTimeouts,
	}

	results, err := h.Run(context.Background(), suite, opts.resume)
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	fmt.Fprintf(out, "%d/%d tasks succeeded\n", succeeded, len(results))
	return err
}

type evalOptions struct {
	suitePath    string
	runsPath     string
	overallPath  string
	summaryPath  string
	resume       bool
	flexTimeouts bool
	model        string
	baseURL      string
}

// resolveTelemetryDBPath applies the --db override over
// profile.TelemetryDBPath's RO_AGENT_TELEMETRY_DB/default resolution.
func resolveTelemetryDBPath(dbPath string) string {
	if strings.TrimSpace(dbPath) != "" {
		return dbPath
	}
	return profile.TelemetryDBPath()
}

func runSessionsList(cmd *cobra.Command, dbPath string, filter models.SessionFilter) error {
	store, err := observability.NewSQLExporter(resolveTelemetryDBPath(dbPath))
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(cmd.Context(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions recorded")
		return nil
	}
	fmt.Fprintf(out, "%-38s %-12s %-8s %8s %10s\n", "SESSION", "STATUS", "TURNS", "TOOLS", "TOKENS")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-38s %-12s %-8d %8d %10s\n", s.SessionID, s.Status, s.TurnCount, s.TotalToolCalls,
			formatTokenCount(s.TotalInputTokens+s.TotalOutputTokens))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, dbPath, sessionID string) error {
	store, err := observability.NewSQLExporter(resolveTelemetryDBPath(dbPath))
	if err != nil {
		return err
	}
	defer store.Close()

	detail, err := store.GetSessionDetail(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if detail == nil {
		return fmt.Errorf("no session %q recorded", sessionID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s  model=%s  status=%s  duration=%s\n", detail.SessionID, detail.Model, detail.Status,
		formatDuration(detail.StartedAt, detail.EndedAt))
	fmt.Fprintf(out, "tokens in=%s out=%s  tool calls=%d\n",
		formatTokenCount(detail.TotalInputTokens), formatTokenCount(detail.TotalOutputTokens), detail.TotalToolCalls)
	for _, turn := range detail.Turns {
		fmt.Fprintf(out, "\nturn %d  %s\n", turn.TurnIndex, turn.UserInput)
		for _, te := range turn.ToolExecutions {
			status := "ok"
			if !te.Success {
				status = "failed: " + te.Error
			}
			fmt.Fprintf(out, "  %s (%dms) %s\n", te.ToolName, te.DurationMS, status)
		}
	}
	return nil
}

func runSessionsStats(cmd *cobra.Command, dbPath string, filter models.SessionFilter) error {
	store, err := observability.NewSQLExporter(resolveTelemetryDBPath(dbPath))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetToolStats(cmd.Context(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(stats) == 0 {
		fmt.Fprintln(out, "no tool executions in the lookback window")
		return nil
	}
	fmt.Fprintf(out, "%-20s %8s %8s %8s %12s\n", "TOOL", "CALLS", "OK", "FAIL", "AVG_MS")
	for _, s := range stats {
		fmt.Fprintf(out, "%-20s %8d %8d %8d %12.1f\n", s.ToolName, s.TotalCalls, s.SuccessCount, s.FailureCount, s.AvgDurationMS)
	}
	return nil
}

func runSessionsCost(cmd *cobra.Command, dbPath string, filter models.SessionFilter) error {
	store, err := observability.NewSQLExporter(resolveTelemetryDBPath(dbPath))
	if err != nil {
		return err
	}
	defer store.Close()

	costs, err := store.GetCostSummary(cmd.Context(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(costs) == 0 {
		fmt.Fprintln(out, "no sessions in the lookback window")
		return nil
	}
	fmt.Fprintf(out, "%-16s %-16s %8s %10s %10s\n", "TEAM", "PROJECT", "SESSIONS", "IN", "OUT")
	for _, c := range costs {
		fmt.Fprintf(out, "%-16s %-16s %8d %10s %10s\n", c.TeamID, c.ProjectID, c.TotalSessions,
			formatTokenCount(c.TotalInputTokens), formatTokenCount(c.TotalOutputTokens))
	}
	return nil
}

// formatTokenCount renders a token count with a K/M suffix, matching the
// dashboard's format_tokens.
func formatTokenCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatDuration renders elapsed wall time between started and ended,
// matching the dashboard's format_duration ("In progress" while ended is
// nil).
func formatDuration(started time.Time, ended *time.Time) string {
	if ended == nil {
		return "In progress"
	}
	d := ended.Sub(started)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
