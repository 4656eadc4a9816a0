package eval

import (
	"context"
	"sync"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/tools/db"
	"github.com/agentcore/coreagent/pkg/models"
)

// submitAnswerTool captures the model's final answer and short-circuits
// the eval loop; the harness polls Submitted() after each round.
type submitAnswerTool struct {
	name        string
	description string

	mu        sync.Mutex
	submitted bool
	answer    string
}

func newSubmitAnswerTool(name, description string) *submitAnswerTool {
	return &submitAnswerTool{name: name, description: description}
}

func (t *submitAnswerTool) Name() string           { return t.name }
func (t *submitAnswerTool) Description() string    { return t.description }
func (t *submitAnswerTool) RequiresApproval() bool { return false }

func (t *submitAnswerTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
		"required": []string{"answer"},
	}
}

func (t *submitAnswerTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	answer, _ := inv.Arguments["answer"].(string)
	t.mu.Lock()
	t.submitted = true
	t.answer = answer
	t.mu.Unlock()
	return models.ToolOutput{Success: true, Content: "answer recorded"}, nil
}

func (t *submitAnswerTool) Submitted() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.answer, t.submitted
}

var _ agent.ToolHandler = (*submitAnswerTool)(nil)

// Tools for SQLiteSandbox: the read-only SQL dispatcher plus
// commit_final_answer.
func (s *SQLiteSandbox) Tools(readOnly bool) ([]agent.ToolHandler, *submitAnswerTool) {
	submit := newSubmitAnswerTool("commit_final_answer", "Submit the final answer to the SQL question.")
	handler := db.NewHandler(s.db, sqliteTaskDialect{}, readOnly, false, nil)
	return []agent.ToolHandler{handler, submit}, submit
}

type sqliteTaskDialect struct{}

func (sqliteTaskDialect) Name() string { return "sqlite" }
func (sqliteTaskDialect) ListTablesQuery(pattern string) (string, []any) {
	if pattern == "" {
		pattern = "%"
	}
	return "SELECT name AS table_name, type FROM sqlite_master WHERE type IN ('table','view') AND name LIKE ?", []any{pattern}
}
func (sqliteTaskDialect) DescribeQuery(table string) (string, []any) {
	return "PRAGMA table_info(" + table + ")", nil
}

// Tools for MySQLContainerSandbox: a single sql tool for the mutation task.
// Statements, mutations included, run via container-exec rather than a
// driver connection, so the tool wraps execSQLOutput instead of
// database/sql and returns its output.
type mysqlContainerQueryTool struct {
	sandbox *MySQLContainerSandbox
}

func (t *mysqlContainerQueryTool) Name() string        { return "mysql" }
func (t *mysqlContainerQueryTool) Description() string { return "Run SQL against the task's MySQL database." }
func (t *mysqlContainerQueryTool) RequiresApproval() bool { return false }
func (t *mysqlContainerQueryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sql": map[string]any{"type": "string"},
		},
		"required": []string{"sql"},
	}
}

func (t *mysqlContainerQueryTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	sql, _ := inv.Arguments["sql"].(string)
	output, err := t.sandbox.execSQLOutput(ctx, sql)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	return models.ToolOutput{Success: true, Content: output}, nil
}

func (s *MySQLContainerSandbox) Tools() ([]agent.ToolHandler, *submitAnswerTool) {
	submit := newSubmitAnswerTool("commit_final_answer", "Submit the final answer once the mutation is complete.")
	return []agent.ToolHandler{&mysqlContainerQueryTool{sandbox: s}, submit}, submit
}

// Tools for OSContainerSandbox: a container-shell tool plus the two-tool
// answer/finish contract OS benchmarks use.
type containerShellTool struct {
	sandbox *OSContainerSandbox
}

func (t *containerShellTool) Name() string           { return "bash" }
func (t *containerShellTool) Description() string    { return "Run a shell command inside the task container." }
func (t *containerShellTool) RequiresApproval() bool { return false }
func (t *containerShellTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"command": map[string]any{"type": "string"}},
		"required":   []string{"command"},
	}
}

func (t *containerShellTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	command, _ := inv.Arguments["command"].(string)
	code, output, err := t.sandbox.Exec(ctx, []string{"sh", "-c", command})
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	return models.ToolOutput{Success: code == 0, Content: output, Metadata: map[string]any{"exit_code": code}}, nil
}

type finishActionTool struct {
	mu       sync.Mutex
	finished bool
}

func (t *finishActionTool) Name() string           { return "finish_action" }
func (t *finishActionTool) Description() string    { return "Signal the task is complete." }
func (t *finishActionTool) RequiresApproval() bool { return false }
func (t *finishActionTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (t *finishActionTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()
	return models.ToolOutput{Success: true, Content: "finished"}, nil
}
func (t *finishActionTool) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

func (s *OSContainerSandbox) Tools() ([]agent.ToolHandler, *submitAnswerTool, *finishActionTool) {
	submit := newSubmitAnswerTool("answer_action", "Submit the answer for this OS task.")
	finish := &finishActionTool{}
	return []agent.ToolHandler{&containerShellTool{sandbox: s}, submit, finish}, submit, finish
}
