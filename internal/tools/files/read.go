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

const (
	defaultReadWindow = 500
	maxVisibleChars   = 500
)

// readArgs is reflected into the tool's JSON-schema parameters.
type readArgs struct {
	Path      string `json:"path" jsonschema:"required,description=Path to the file, relative to the working directory."`
	StartLine int    `json:"start_line,omitempty" jsonschema:"description=1-indexed first line to show; defaults to 1."`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"description=1-indexed last line to show; defaults to start_line+499."`
}

var binaryExtensions = buildExtSet(
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".tiff",
	".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar",
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".pdf",
	".ttf", ".otf", ".woff", ".woff2",
	".class", ".pyc", ".wasm",
	".sqlite", ".sqlite3", ".db",
)

func buildExtSet(exts ...string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

// ReadTool reads a UTF-8 text file with a 1-indexed line window.
type ReadTool struct {
	resolver *Resolver
}

func NewReadTool(r *Resolver) *ReadTool { return &ReadTool{resolver: r} }

func (t *ReadTool) Name() string            { return "read" }
func (t *ReadTool) Description() string     { return "Read a text file, optionally a line range." }
func (t *ReadTool) RequiresApproval() bool  { return false }

func (t *ReadTool) Parameters() map[string]any { return agent.SchemaFor[readArgs]() }

func (t *ReadTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	path, _ := inv.Arguments["path"].(string)
	if path == "" {
		return models.ToolOutput{Success: false, Content: "path argument is required"}, nil
	}
	if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return models.ToolOutput{Success: false, Content: fmt.Sprintf("refusing to read binary file: %s", path)}, nil
	}

	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	lines := strings.Split(strings.ToValidUTF8(string(raw), "�"), "\n")
	total := len(lines)

	start := intArg(inv.Arguments, "start_line", 1)
	if start < 1 {
		start = 1
	}
	end := intArg(inv.Arguments, "end_line", start+defaultReadWindow-1)
	if end > total {
		end = total
	}
	if start > total {
		return models.ToolOutput{Success: false, Content: fmt.Sprintf("start_line %d exceeds total lines %d", start, total)}, nil
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		line := lines[i-1]
		if len(line) > maxVisibleChars {
			line = line[:maxVisibleChars] + "..."
		}
		fmt.Fprintf(&b, "%6d  %s\n", i, line)
	}
	if start > 1 || end < total {
		fmt.Fprintf(&b, "[Showing lines %d-%d of %d]", start, end, total)
	}

	return models.ToolOutput{
		Success: true,
		Content: b.String(),
		Metadata: map[string]any{
			"total_lines": total,
			"start_line":  start,
			"end_line":    end,
		},
	}, nil
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}
