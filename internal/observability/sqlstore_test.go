package observability

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentcore/coreagent/pkg/models"
)

func newTestExporter(t *testing.T) *SQLExporter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	exp, err := NewSQLExporter(path)
	if err != nil {
		t.Fatalf("NewSQLExporter: %v", err)
	}
	t.Cleanup(func() { exp.Close() })
	return exp
}

func seedSession(t *testing.T, exp *SQLExporter, sessionID string) {
	t.Helper()
	ctx := context.Background()
	started := time.Now()

	tc := &models.TelemetryContext{
		SessionID: sessionID, TeamID: "team-a", ProjectID: "proj-a",
		Model: "gpt-4o", StartedAt: started, Status: "active",
	}
	if err := exp.StartSession(ctx, tc); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	turn := &models.TurnContext{ID: sessionID + "-turn-0", SessionID: sessionID, Index: 0, UserInput: "do the thing", StartedAt: started}
	if err := exp.StartTurn(ctx, turn); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}

	exec := &models.ToolExecutionContext{
		ID: sessionID + "-exec-0", SessionID: sessionID, TurnID: turn.ID, ToolName: "bash",
		Arguments: map[string]any{"command": "ls"}, Result: "a.txt\n", Success: true,
		StartedAt: started, EndedAt: started.Add(10 * time.Millisecond), DurationMS: 10,
	}
	if err := exp.RecordToolExecution(ctx, exec); err != nil {
		t.Fatalf("RecordToolExecution: %v", err)
	}

	ended := started.Add(time.Second)
	turn.EndedAt = &ended
	turn.InputTokenDelta, turn.OutputTokenDelta, turn.ToolCallCount = 100, 50, 1
	if err := exp.EndTurn(ctx, turn); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}

	tc.EndedAt = &ended
	tc.Status = "completed"
	tc.TotalInputTokens, tc.TotalOutputTokens, tc.TotalToolCalls, tc.TotalTurns = 100, 50, 1, 1
	if err := exp.EndSession(ctx, tc); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}

func TestListSessionsReturnsSeededSessionWithTurnCount(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")

	sessions, err := exp.ListSessions(context.Background(), models.SessionFilter{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.SessionID != "sess-1" || s.TurnCount != 1 || s.TotalToolCalls != 1 {
		t.Errorf("got %+v", s)
	}
}

func TestListSessionsFiltersByStatus(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")

	active, err := exp.ListSessions(context.Background(), models.SessionFilter{Status: "active"})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active sessions after EndSession, got %d", len(active))
	}

	completed, err := exp.ListSessions(context.Background(), models.SessionFilter{Status: "completed"})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("expected one completed session, got %d", len(completed))
	}
}

func TestGetSessionDetailIncludesTurnsAndToolExecutions(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")

	detail, err := exp.GetSessionDetail(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetSessionDetail: %v", err)
	}
	if detail == nil {
		t.Fatal("expected a non-nil detail for a seeded session")
	}
	if len(detail.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(detail.Turns))
	}
	turn := detail.Turns[0]
	if len(turn.ToolExecutions) != 1 {
		t.Fatalf("got %d tool executions, want 1", len(turn.ToolExecutions))
	}
	exec := turn.ToolExecutions[0]
	if exec.ToolName != "bash" || !exec.Success || exec.Arguments["command"] != "ls" {
		t.Errorf("got %+v", exec)
	}
}

func TestGetSessionDetailUnknownSessionReturnsNil(t *testing.T) {
	exp := newTestExporter(t)
	detail, err := exp.GetSessionDetail(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetSessionDetail: %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail for an unknown session, got %+v", detail)
	}
}

func TestGetToolStatsAggregatesByToolName(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")

	stats, err := exp.GetToolStats(context.Background(), models.SessionFilter{})
	if err != nil {
		t.Fatalf("GetToolStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d tool stats rows, want 1", len(stats))
	}
	if stats[0].ToolName != "bash" || stats[0].TotalCalls != 1 || stats[0].SuccessCount != 1 {
		t.Errorf("got %+v", stats[0])
	}
}

func TestGetCostSummaryGroupsByTeamAndProject(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")
	seedSession(t, exp, "sess-2")

	costs, err := exp.GetCostSummary(context.Background(), models.SessionFilter{})
	if err != nil {
		t.Fatalf("GetCostSummary: %v", err)
	}
	if len(costs) != 1 {
		t.Fatalf("got %d cost rows, want 1", len(costs))
	}
	if costs[0].TeamID != "team-a" || costs[0].TotalSessions != 2 || costs[0].TotalInputTokens != 200 {
		t.Errorf("got %+v", costs[0])
	}
}

func TestGetActiveSessionsExcludesCompleted(t *testing.T) {
	exp := newTestExporter(t)
	seedSession(t, exp, "sess-1")

	active, err := exp.GetActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("GetActiveSessions: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active sessions, got %d", len(active))
	}
}
