package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

const defaultMaxConsecutiveErrors = 5
const defaultTurnTimeout = 120 * time.Second
const flexTurnTimeout = 600 * time.Second

// Harness drives Suite against a shared model client, one task at a time,
// persisting results incrementally and supporting resume.
type Harness struct {
	Client              agent.ModelClient
	RunsPath            string
	OverallPath         string
	SummaryPath         string
	MaxConsecutiveErrors int
	FlexTimeouts        bool
}

// Run executes every task in suite not already present in RunsPath when
// resume is true; it aborts after MaxConsecutiveErrors task errors in a
// row, leaving partial results on disk.
func (h *Harness) Run(ctx context.Context, suite *Suite, resume bool) ([]TaskResult, error) {
	maxErrors := h.MaxConsecutiveErrors
	if maxErrors <= 0 {
		maxErrors = defaultMaxConsecutiveErrors
	}

	var results []TaskResult
	completed := make(map[int]bool)
	if resume {
		existing, err := readResults(h.RunsPath)
		if err == nil {
			results = existing
			for _, r := range existing {
				completed[r.Index] = true
			}
		}
	}

	runsFile, err := os.OpenFile(h.RunsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eval: opening runs file: %w", err)
	}
	defer runsFile.Close()

	consecutiveErrors := 0
	for _, task := range suite.Tasks {
		if completed[task.Index] {
			continue
		}

		result := h.runTask(ctx, task)
		results = append(results, result)

		line, _ := json.Marshal(result)
		runsFile.Write(append(line, '\n'))

		if result.Error != "" {
			consecutiveErrors++
			if consecutiveErrors >= maxErrors {
				h.writeAggregate(results)
				return results, fmt.Errorf("eval: aborting after %d consecutive task errors", consecutiveErrors)
			}
		} else {
			consecutiveErrors = 0
		}

		h.writeAggregate(results)
	}

	return results, nil
}

func readResults(path string) ([]TaskResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []TaskResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var r TaskResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (h *Harness) writeAggregate(results []TaskResult) {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	overall := map[string]any{
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}
	if b, err := json.MarshalIndent(overall, "", "  "); err == nil {
		_ = os.WriteFile(h.OverallPath, b, 0o644)
	}
	summary := fmt.Sprintf("%d/%d tasks succeeded\n", succeeded, len(results))
	_ = os.WriteFile(h.SummaryPath, []byte(summary), 0o644)
}

func (h *Harness) turnTimeout() time.Duration {
	if h.FlexTimeouts {
		return flexTurnTimeout
	}
	return defaultTurnTimeout
}

// runTask builds the task's sandbox and registry, then runs the agent
// against it until answer submission or max_turns, evaluating the result.
func (h *Harness) runTask(ctx context.Context, task TaskSpec) TaskResult {
	start := time.Now()
	result := TaskResult{Index: task.Index, TaskID: task.ID}

	switch task.Kind {
	case KindSQLSelect:
		h.runSQLSelectTask(ctx, task, &result)
	case KindSQLMutation:
		h.runSQLMutationTask(ctx, task, &result)
	case KindOS:
		h.runOSTask(ctx, task, &result)
	default:
		result.Error = fmt.Sprintf("unknown task kind: %s", task.Kind)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result
}

func (h *Harness) runSQLSelectTask(ctx context.Context, task TaskSpec, result *TaskResult) {
	sandbox, err := NewSQLiteSandbox(ctx, task)
	if err != nil {
		result.Error = err.Error()
		return
	}
	defer sandbox.Close(ctx)

	tools, submit := sandbox.Tools(true)
	reg := agent.NewRegistry()
	for _, t := range tools {
		reg.Register(t)
	}

	if err := h.driveTaskLoop(ctx, reg, task, func() bool { _, ok := submit.Submitted(); return ok }, result); err != nil {
		result.Error = err.Error()
		return
	}
	answer, _ := submit.Submitted()
	result.SubmittedAnswer = answer
	result.Success = CompareSQLAnswer(answer, task.ExpectedAnswer)
}

func (h *Harness) runSQLMutationTask(ctx context.Context, task TaskSpec, result *TaskResult) {
	dbName := fmt.Sprintf("eval_task_%d", task.Index)
	sandbox, err := NewMySQLContainerSandbox(ctx, task, dbName)
	if err != nil {
		result.Error = err.Error()
		return
	}
	defer sandbox.Close(ctx)

	tools, submit := sandbox.Tools()
	reg := agent.NewRegistry()
	for _, t := range tools {
		reg.Register(t)
	}

	if err := h.driveTaskLoop(ctx, reg, task, func() bool { _, ok := submit.Submitted(); return ok }, result); err != nil {
		result.Error = err.Error()
		return
	}

	hash, err := hashMySQLTable(ctx, sandbox, task)
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.Success = CompareMutationHash(hash, task.AnswerMD5)
}

func hashMySQLTable(ctx context.Context, sandbox *MySQLContainerSandbox, task TaskSpec) (string, error) {
	// The container-exec path has no driver connection to run TableHash's
	// SELECT directly; the hash query is executed the same way other task
	// SQL is, via mysql -e, and its single-column stdout is the hash.
	query := fmt.Sprintf(
		"SELECT MD5(GROUP_CONCAT(SUBSTR(MD5(CONCAT_WS(',', %s)),1,5) ORDER BY SUBSTR(MD5(CONCAT_WS(',', %s)),1,5) SEPARATOR '')) FROM %s",
		joinCols(task.HashColumns), joinCols(task.HashColumns), task.HashTable)
	return sandbox.execSQLOutput(ctx, query)
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func (h *Harness) runOSTask(ctx context.Context, task TaskSpec, result *TaskResult) {
	sandbox, err := NewOSContainerSandbox(ctx, task)
	if err != nil {
		result.Error = err.Error()
		return
	}
	defer sandbox.Close(ctx)

	tools, submit, finish := sandbox.Tools()
	reg := agent.NewRegistry()
	for _, t := range tools {
		reg.Register(t)
	}

	if err := h.driveTaskLoop(ctx, reg, task, func() bool { _, ok := submit.Submitted(); return ok || finish.Finished() }, result); err != nil {
		result.Error = err.Error()
		return
	}

	answer, _ := submit.Submitted()
	result.SubmittedAnswer = answer
	switch task.Match {
	case "check":
		result.Success = h.runCheckChain(ctx, sandbox, task.CheckScripts)
	default:
		result.Success = MatchOSAnswer(answer, task.ExpectedAnswer, task.MatchRegex)
	}
}

// runCheckChain runs a chain of scripts, piping each script's stdout as an
// additional argument to the next; success only if every script exits 0.
func (h *Harness) runCheckChain(ctx context.Context, sandbox *OSContainerSandbox, scripts []string) bool {
	prevOutput := ""
	for _, script := range scripts {
		cmd := []string{"sh", "-c", script}
		if prevOutput != "" {
			cmd = []string{"sh", "-c", script, "--", prevOutput}
		}
		code, output, err := sandbox.Exec(ctx, cmd)
		if err != nil || code != 0 {
			return false
		}
		prevOutput = output
	}
	return true
}

// driveTaskLoop runs the agent loop turn-by-turn against a task-scoped
// registry until submitted() returns true or max_turns is reached; 3
// consecutive turn timeouts abort the run.
func (h *Harness) driveTaskLoop(ctx context.Context, reg *agent.Registry, task TaskSpec, submitted func() bool, result *TaskResult) error {
	session := agent.NewSession("eval-"+task.ID, "", "")
	loop := agent.NewLoop(agent.LoopConfig{
		Registry: reg,
		Client:   h.Client,
	})

	maxTurns := task.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	consecutiveTimeouts := 0
	input := task.Prompt
	for turn := 0; turn < maxTurns; turn++ {
		turnCtx, cancel := context.WithTimeout(ctx, h.turnTimeout())
		timedOut := false
		for ev := range loop.RunTurn(turnCtx, session, input) {
			if ev.Type == models.EventError && turnCtx.Err() != nil {
				timedOut = true
			}
		}
		cancel()

		result.Turns = turn + 1
		if timedOut {
			consecutiveTimeouts++
			if consecutiveTimeouts >= 3 {
				result.TimedOut = true
				return fmt.Errorf("eval: 3 consecutive turn timeouts")
			}
		} else {
			consecutiveTimeouts = 0
		}

		if submitted() {
			return nil
		}
		input = "Continue."
	}
	return nil
}
