package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentcore/coreagent/pkg/models"
)

// SQLExporter materializes sessions, turns, and tool_executions tables in
// a SQLite file, matching RO_AGENT_TELEMETRY_DB's persisted-state role.
type SQLExporter struct {
	db *sql.DB
}

func NewSQLExporter(path string) (*SQLExporter, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("observability: opening telemetry db: %w", err)
	}
	if err := migrate(database); err != nil {
		return nil, err
	}
	return &SQLExporter{db: database}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY, team_id TEXT, project_id TEXT, agent_id TEXT,
			env TEXT, profile_name TEXT, model TEXT,
			started_at TEXT, ended_at TEXT, status TEXT,
			total_turns INTEGER, total_input_tokens INTEGER, total_output_tokens INTEGER, total_tool_calls INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY, session_id TEXT, idx INTEGER, user_input TEXT,
			started_at TEXT, ended_at TEXT,
			input_token_delta INTEGER, output_token_delta INTEGER, tool_call_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id)`,
		`CREATE TABLE IF NOT EXISTS tool_executions (
			id TEXT PRIMARY KEY, session_id TEXT, turn_id TEXT, tool_name TEXT,
			arguments TEXT, result TEXT, success INTEGER, error TEXT,
			started_at TEXT, ended_at TEXT, duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_exec_turn ON tool_executions(turn_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_exec_tool_name ON tool_executions(tool_name)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("observability: migrating telemetry db: %w", err)
		}
	}
	return nil
}

func (e *SQLExporter) StartSession(ctx context.Context, tc *models.TelemetryContext) error {
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sessions (id, team_id, project_id, agent_id, env, profile_name, model, started_at, status, total_turns, total_input_tokens, total_output_tokens, total_tool_calls)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0)`,
		tc.SessionID, tc.TeamID, tc.ProjectID, tc.AgentID, tc.Env, tc.ProfileName, tc.Model, tc.StartedAt, tc.Status)
	return err
}

func (e *SQLExporter) EndSession(ctx context.Context, tc *models.TelemetryContext) error {
	_, err := e.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at=?, status=?, total_turns=?, total_input_tokens=?, total_output_tokens=?, total_tool_calls=? WHERE id=?`,
		tc.EndedAt, tc.Status, tc.TotalTurns, tc.TotalInputTokens, tc.TotalOutputTokens, tc.TotalToolCalls, tc.SessionID)
	return err
}

func (e *SQLExporter) StartTurn(ctx context.Context, turn *models.TurnContext) error {
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, idx, user_input, started_at, input_token_delta, output_token_delta, tool_call_count)
		 VALUES (?, ?, ?, ?, ?, 0, 0, 0)`,
		turn.ID, turn.SessionID, turn.Index, turn.UserInput, turn.StartedAt)
	return err
}

func (e *SQLExporter) EndTurn(ctx context.Context, turn *models.TurnContext) error {
	_, err := e.db.ExecContext(ctx,
		`UPDATE turns SET ended_at=?, input_token_delta=?, output_token_delta=?, tool_call_count=? WHERE id=?`,
		turn.EndedAt, turn.InputTokenDelta, turn.OutputTokenDelta, turn.ToolCallCount, turn.ID)
	return err
}

func (e *SQLExporter) RecordModelCall(ctx context.Context, sessionID, turnID string, usage models.Usage) error {
	_, err := e.db.ExecContext(ctx,
		`UPDATE sessions SET total_input_tokens = total_input_tokens + ?, total_output_tokens = total_output_tokens + ?, total_turns = total_turns + 1 WHERE id=?`,
		usage.InputTokens, usage.OutputTokens, sessionID)
	return err
}

func (e *SQLExporter) RecordToolExecution(ctx context.Context, tec *models.ToolExecutionContext) error {
	argsJSON, _ := json.Marshal(tec.Arguments)
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO tool_executions (id, session_id, turn_id, tool_name, arguments, result, success, error, started_at, ended_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tec.ID, tec.SessionID, tec.TurnID, tec.ToolName, string(argsJSON), tec.Result, boolToInt(tec.Success), tec.Error, tec.StartedAt, tec.EndedAt, tec.DurationMS)
	if err == nil {
		_, err = e.db.ExecContext(ctx, `UPDATE sessions SET total_tool_calls = total_tool_calls + 1 WHERE id=?`, tec.SessionID)
	}
	return err
}

func (e *SQLExporter) Flush(context.Context) error { return nil }
func (e *SQLExporter) Close() error                 { return e.db.Close() }

// ListSessions returns session summaries ordered newest-first, honoring
// TeamID/ProjectID/Status filters and Limit/Offset paging.
func (e *SQLExporter) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, error) {
	conditions := []string{"1=1"}
	var args []any
	if filter.TeamID != "" {
		conditions = append(conditions, "s.team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.ProjectID != "" {
		conditions = append(conditions, "s.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "s.status = ?")
		args = append(args, filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT
			s.id, s.team_id, s.project_id, s.model,
			s.started_at, s.ended_at, s.status,
			s.total_input_tokens, s.total_output_tokens, s.total_tool_calls,
			COUNT(t.id) AS turn_count
		FROM sessions s
		LEFT JOIN turns t ON s.id = t.session_id
		WHERE %s
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ? OFFSET ?`, strings.Join(conditions, " AND "))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&s.SessionID, &s.TeamID, &s.ProjectID, &s.Model, &startedAt, &endedAt, &s.Status,
			&s.TotalInputTokens, &s.TotalOutputTokens, &s.TotalToolCalls, &s.TurnCount); err != nil {
			return nil, fmt.Errorf("observability: scanning session row: %w", err)
		}
		s.StartedAt = parseSQLiteTime(startedAt)
		s.EndedAt = nullTimePtr(endedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSessionDetail returns one session's metadata plus every turn and its
// nested tool executions, or nil if the session does not exist.
func (e *SQLExporter) GetSessionDetail(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT id, team_id, project_id, agent_id, env, profile_name, model,
		       started_at, ended_at, status,
		       total_input_tokens, total_output_tokens, total_tool_calls
		FROM sessions WHERE id = ?`, sessionID)

	var d models.SessionDetail
	var agentID, env, profile sql.NullString
	var startedAt string
	var endedAt sql.NullString
	if err := row.Scan(&d.SessionID, &d.TeamID, &d.ProjectID, &agentID, &env, &profile, &d.Model,
		&startedAt, &endedAt, &d.Status, &d.TotalInputTokens, &d.TotalOutputTokens, &d.TotalToolCalls); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("observability: loading session %s: %w", sessionID, err)
	}
	d.AgentID = agentID.String
	d.Env = env.String
	d.ProfileName = profile.String
	d.StartedAt = parseSQLiteTime(startedAt)
	d.EndedAt = nullTimePtr(endedAt)

	turnRows, err := e.db.QueryContext(ctx, `
		SELECT id, idx, started_at, ended_at, input_token_delta, output_token_delta, user_input
		FROM turns WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("observability: loading turns for session %s: %w", sessionID, err)
	}
	defer turnRows.Close()

	for turnRows.Next() {
		var turn models.SessionTurn
		var turnStartedAt string
		var turnEndedAt sql.NullString
		if err := turnRows.Scan(&turn.TurnID, &turn.TurnIndex, &turnStartedAt, &turnEndedAt,
			&turn.InputTokens, &turn.OutputTokens, &turn.UserInput); err != nil {
			return nil, fmt.Errorf("observability: scanning turn row: %w", err)
		}
		turn.StartedAt = parseSQLiteTime(turnStartedAt)
		turn.EndedAt = nullTimePtr(turnEndedAt)

		toolRows, err := e.db.QueryContext(ctx, `
			SELECT id, tool_name, arguments, result, success, error, duration_ms, started_at
			FROM tool_executions WHERE turn_id = ? ORDER BY started_at`, turn.TurnID)
		if err != nil {
			return nil, fmt.Errorf("observability: loading tool executions for turn %s: %w", turn.TurnID, err)
		}
		for toolRows.Next() {
			var tr models.ToolExecutionRecord
			var argsJSON, errText sql.NullString
			var success int
			var toolStartedAt string
			if err := toolRows.Scan(&tr.ExecutionID, &tr.ToolName, &argsJSON, &tr.Result, &success, &errText, &tr.DurationMS, &toolStartedAt); err != nil {
				toolRows.Close()
				return nil, fmt.Errorf("observability: scanning tool execution row: %w", err)
			}
			tr.Success = success != 0
			tr.Error = errText.String
			tr.StartedAt = parseSQLiteTime(toolStartedAt)
			if argsJSON.Valid && argsJSON.String != "" {
				_ = json.Unmarshal([]byte(argsJSON.String), &tr.Arguments)
			}
			turn.ToolExecutions = append(turn.ToolExecutions, tr)
		}
		toolRows.Close()
		if err := toolRows.Err(); err != nil {
			return nil, err
		}

		d.Turns = append(d.Turns, turn)
	}
	if err := turnRows.Err(); err != nil {
		return nil, err
	}

	return &d, nil
}

// GetToolStats aggregates tool_executions by tool name for sessions
// started within the filter's lookback window (default 30 days).
func (e *SQLExporter) GetToolStats(ctx context.Context, filter models.SessionFilter) ([]models.ToolStats, error) {
	days := filter.Days
	if days <= 0 {
		days = 30
	}
	conditions := []string{"s.started_at >= datetime('now', ?)"}
	args := []any{fmt.Sprintf("-%d days", days)}
	if filter.TeamID != "" {
		conditions = append(conditions, "s.team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.ProjectID != "" {
		conditions = append(conditions, "s.project_id = ?")
		args = append(args, filter.ProjectID)
	}

	query := fmt.Sprintf(`
		SELECT
			te.tool_name,
			COUNT(*) AS total_calls,
			SUM(CASE WHEN te.success THEN 1 ELSE 0 END) AS success_count,
			SUM(CASE WHEN NOT te.success THEN 1 ELSE 0 END) AS failure_count,
			AVG(te.duration_ms) AS avg_duration_ms,
			SUM(te.duration_ms) AS total_duration_ms
		FROM tool_executions te
		JOIN turns t ON te.turn_id = t.id
		JOIN sessions s ON t.session_id = s.id
		WHERE %s
		GROUP BY te.tool_name
		ORDER BY total_calls DESC`, strings.Join(conditions, " AND "))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: aggregating tool stats: %w", err)
	}
	defer rows.Close()

	var out []models.ToolStats
	for rows.Next() {
		var s models.ToolStats
		if err := rows.Scan(&s.ToolName, &s.TotalCalls, &s.SuccessCount, &s.FailureCount, &s.AvgDurationMS, &s.TotalDurationMS); err != nil {
			return nil, fmt.Errorf("observability: scanning tool stats row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetCostSummary aggregates session token/tool-call totals by team and
// project for sessions started within the filter's lookback window
// (default 30 days).
func (e *SQLExporter) GetCostSummary(ctx context.Context, filter models.SessionFilter) ([]models.CostSummary, error) {
	days := filter.Days
	if days <= 0 {
		days = 30
	}
	conditions := []string{"started_at >= datetime('now', ?)"}
	args := []any{fmt.Sprintf("-%d days", days)}
	if filter.TeamID != "" {
		conditions = append(conditions, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}

	query := fmt.Sprintf(`
		SELECT
			team_id, project_id,
			COUNT(*) AS total_sessions,
			SUM(total_input_tokens) AS total_input_tokens,
			SUM(total_output_tokens) AS total_output_tokens,
			SUM(total_tool_calls) AS total_tool_calls
		FROM sessions
		WHERE %s
		GROUP BY team_id, project_id
		ORDER BY total_input_tokens + total_output_tokens DESC`, strings.Join(conditions, " AND "))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: aggregating cost summary: %w", err)
	}
	defer rows.Close()

	var out []models.CostSummary
	for rows.Next() {
		var s models.CostSummary
		if err := rows.Scan(&s.TeamID, &s.ProjectID, &s.TotalSessions, &s.TotalInputTokens, &s.TotalOutputTokens, &s.TotalToolCalls); err != nil {
			return nil, fmt.Errorf("observability: scanning cost summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetActiveSessions is ListSessions filtered to status="active", matching
// the dashboard's "currently running" view.
func (e *SQLExporter) GetActiveSessions(ctx context.Context) ([]models.SessionSummary, error) {
	return e.ListSessions(ctx, models.SessionFilter{Status: "active"})
}

// sqliteTimeLayouts covers both the layout StartSession/StartTurn's
// time.Time args are stored as by the sqlite3 driver and plain RFC3339,
// in case callers pre-format timestamps before inserting.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseSQLiteTime(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Exporter = (*SQLExporter)(nil)
