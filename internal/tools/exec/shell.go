// Package exec implements the bash tool: allowlisted or unrestricted shell
// execution with separate stdout/stderr capture and a kill-on-timeout
// process tree.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/tools/security"
	"github.com/agentcore/coreagent/pkg/models"
)

const (
	restrictedDefaultTimeout   = 120
	unrestrictedDefaultTimeout = 300
)

// ShellConfig configures a ShellTool.
type ShellConfig struct {
	Restricted     bool
	WorkingDir     string
	TimeoutSecs    int
	RequireApprove bool
}

// ShellTool executes commands via a shell, honoring restricted-mode
// allowlisting and a wall-clock timeout that kills the whole process
// group.
type ShellTool struct {
	cfg ShellConfig
}

func NewShellTool(cfg ShellConfig) *ShellTool {
	if cfg.TimeoutSecs <= 0 {
		if cfg.Restricted {
			cfg.TimeoutSecs = restrictedDefaultTimeout
		} else {
			cfg.TimeoutSecs = unrestrictedDefaultTimeout
		}
	}
	return &ShellTool{cfg: cfg}
}

func (t *ShellTool) Name() string        { return "bash" }
func (t *ShellTool) Description() string { return "Run a shell command and capture its stdout/stderr." }
func (t *ShellTool) RequiresApproval() bool { return t.cfg.RequireApprove }

func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "the shell command to run"},
			"timeout": map[string]any{"type": "integer", "description": "override timeout in seconds"},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	command, _ := inv.Arguments["command"].(string)
	if command == "" {
		return models.ToolOutput{Success: false, Content: "command argument is required"}, nil
	}

	if t.cfg.Restricted {
		if ok, reason := security.IsAllowedRestricted(command); !ok {
			return models.ToolOutput{
				Success:  false,
				Content:  fmt.Sprintf("Query blocked: %s", reason),
				Metadata: map[string]any{"command": command},
			}, nil
		}
	}

	timeout := t.cfg.TimeoutSecs
	if v, ok := inv.Arguments["timeout"]; ok {
		if n, ok := v.(int64); ok && n > 0 {
			timeout = int(n)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	if t.cfg.WorkingDir != "" {
		cmd.Dir = t.cfg.WorkingDir
	}
	cmd.SysProcAttr = killableGroupAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Start()
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	waitErr := cmd.Wait()
	timedOut := runCtx.Err() == context.DeadlineExceeded
	if timedOut {
		killProcessGroup(cmd)
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	content := stdout.String()
	if stderr.Len() > 0 {
		content += "\n[stderr]\n" + stderr.String()
	}
	if content == "" {
		content = "(no output)"
	}

	meta := map[string]any{"exit_code": exitCode, "command": command}
	if timedOut {
		meta["timed_out"] = true
	}

	return models.ToolOutput{
		Content:  content,
		Success:  exitCode == 0 && !timedOut,
		Metadata: meta,
	}, nil
}

var _ agent.ToolHandler = (*ShellTool)(nil)

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
