package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

// writeArgs is reflected into the tool's JSON-schema parameters.
type writeArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Path to write, relative to the working directory."`
	Content string `json:"content" jsonschema:"required,description=UTF-8 file content."`
}

var writeBlockedSubstrings = []string{
	".bashrc", ".zshrc", ".profile", ".bash_profile", ".ssh/", ".gnupg/",
	".aws/", ".config/", "/etc/", "/usr/", "/bin/", "/sbin/",
}

// WriteConfig configures a WriteTool. Off mode is represented by simply not
// constructing/registering a WriteTool.
type WriteConfig struct {
	CreateOnly      bool
	RequireApproval bool
}

// WriteTool creates parent directories and writes UTF-8 content, refusing
// to overwrite an existing file in create-only mode.
type WriteTool struct {
	resolver *Resolver
	cfg      WriteConfig
}

func NewWriteTool(r *Resolver, cfg WriteConfig) *WriteTool { return &WriteTool{resolver: r, cfg: cfg} }

func (t *WriteTool) Name() string           { return "write" }
func (t *WriteTool) Description() string    { return "Write a file, creating parent directories as needed." }
func (t *WriteTool) RequiresApproval() bool { return t.cfg.RequireApproval }

func (t *WriteTool) Parameters() map[string]any { return agent.SchemaFor[writeArgs]() }

func (t *WriteTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	path, _ := inv.Arguments["path"].(string)
	content, _ := inv.Arguments["content"].(string)
	if path == "" {
		return models.ToolOutput{Success: false, Content: "path argument is required"}, nil
	}

	if t.cfg.CreateOnly {
		lower := strings.ToLower(path)
		for _, blocked := range writeBlockedSubstrings {
			if strings.Contains(lower, blocked) {
				return models.ToolOutput{Success: false, Content: fmt.Sprintf("refusing to write protected path: %s", path)}, nil
			}
		}
	}

	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	_, statErr := os.Stat(full)
	exists := statErr == nil
	if t.cfg.CreateOnly && exists {
		return models.ToolOutput{Success: false, Content: fmt.Sprintf("refusing to overwrite existing file: %s", path)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	return models.ToolOutput{
		Success: true,
		Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		Metadata: map[string]any{
			"bytes":     len(content),
			"lines":     strings.Count(content, "\n") + 1,
			"overwrote": exists,
		},
	}, nil
}
