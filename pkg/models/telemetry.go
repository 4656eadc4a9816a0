package models

import "time"

// TelemetryContext is a per-run observability record aggregating turn and
// tool-execution counts for a single agent session.
type TelemetryContext struct {
	TeamID           string     `json:"team_id"`
	ProjectID        string     `json:"project_id"`
	SessionID        string     `json:"session_id"`
	AgentID          string     `json:"agent_id,omitempty"`
	Env              string     `json:"env"`
	ProfileName      string     `json:"profile_name"`
	Model            string     `json:"model"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Status           string     `json:"status"`
	TotalTurns       int        `json:"total_turns"`
	TotalInputTokens int        `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	TotalToolCalls   int        `json:"total_tool_calls"`
	CurrentTurnID    string     `json:"current_turn_id,omitempty"`
}

// TurnContext is a per-turn telemetry record.
type TurnContext struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	Index            int        `json:"index"`
	UserInput        string     `json:"user_input"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	InputTokenDelta  int        `json:"input_token_delta"`
	OutputTokenDelta int        `json:"output_token_delta"`
	ToolCallCount    int        `json:"tool_call_count"`
}

// ToolExecutionContext is a per-tool-call telemetry record.
type ToolExecutionContext struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	TurnID     string         `json:"turn_id"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     string         `json:"result,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	DurationMS int64          `json:"duration_ms"`
}

// SessionSummary is one row of a session listing: aggregate counters
// without per-turn detail.
type SessionSummary struct {
	SessionID        string     `json:"session_id"`
	TeamID           string     `json:"team_id"`
	ProjectID        string     `json:"project_id"`
	Model            string     `json:"model"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Status           string     `json:"status"`
	TotalInputTokens int        `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	TotalToolCalls   int        `json:"total_tool_calls"`
	TurnCount        int        `json:"turn_count"`
}

// ToolExecutionRecord is one tool_executions row nested under a
// SessionDetail turn.
type ToolExecutionRecord struct {
	ExecutionID string         `json:"execution_id"`
	ToolName    string         `json:"tool_name"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Result      string         `json:"result,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	StartedAt   time.Time      `json:"started_at"`
}

// SessionTurn is one turns row nested under a SessionDetail, carrying its
// tool executions.
type SessionTurn struct {
	TurnID          string                `json:"turn_id"`
	TurnIndex       int                   `json:"turn_index"`
	StartedAt       time.Time             `json:"started_at"`
	EndedAt         *time.Time            `json:"ended_at,omitempty"`
	InputTokens     int                   `json:"input_tokens"`
	OutputTokens    int                   `json:"output_tokens"`
	UserInput       string                `json:"user_input"`
	ToolExecutions  []ToolExecutionRecord `json:"tool_executions"`
}

// SessionDetail is the full drill-down for one session: its metadata plus
// every turn and the tool executions within each turn.
type SessionDetail struct {
	SessionID        string        `json:"session_id"`
	TeamID           string        `json:"team_id"`
	ProjectID        string        `json:"project_id"`
	AgentID          string        `json:"agent_id,omitempty"`
	Env              string        `json:"env,omitempty"`
	ProfileName      string        `json:"profile,omitempty"`
	Model            string        `json:"model"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`
	Status           string        `json:"status"`
	TotalInputTokens int           `json:"total_input_tokens"`
	TotalOutputTokens int          `json:"total_output_tokens"`
	TotalToolCalls   int           `json:"total_tool_calls"`
	Turns            []SessionTurn `json:"turns"`
}

// ToolStats aggregates tool_executions rows by tool name over a lookback
// window.
type ToolStats struct {
	ToolName       string  `json:"tool_name"`
	TotalCalls     int     `json:"total_calls"`
	SuccessCount   int     `json:"success_count"`
	FailureCount   int     `json:"failure_count"`
	AvgDurationMS  float64 `json:"avg_duration_ms"`
	TotalDurationMS int64  `json:"total_duration_ms"`
}

// CostSummary aggregates session token/tool-call counts by team/project
// over a lookback window.
type CostSummary struct {
	TeamID           string `json:"team_id"`
	ProjectID        string `json:"project_id"`
	TotalSessions    int    `json:"total_sessions"`
	TotalInputTokens int    `json:"total_input_tokens"`
	TotalOutputTokens int   `json:"total_output_tokens"`
	TotalToolCalls   int    `json:"total_tool_calls"`
}

// SessionFilter narrows ListSessions/GetToolStats/GetCostSummary by team,
// project, status and a lookback window in days (0 selects the 30-day
// default).
type SessionFilter struct {
	TeamID    string
	ProjectID string
	Status    string
	Limit     int
	Offset    int
	Days      int
}

// ConversationSnapshot persists a Session for resume.
type ConversationSnapshot struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt"`
	History      []Message `json:"history"`
	Started      time.Time `json:"started"`
	Ended        time.Time `json:"ended,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
}
