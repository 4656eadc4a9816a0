package files

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

const defaultMaxGlobResults = 100

// globArgs is reflected into the tool's JSON-schema parameters.
type globArgs struct {
	Pattern    string `json:"pattern" jsonschema:"required,description=Glob pattern, e.g. **/*.go."`
	Path       string `json:"path,omitempty" jsonschema:"description=Directory to search under; defaults to the working directory."`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Caps the number of returned paths; defaults to 100."`
}

var globExcludes = []string{".git/", "node_modules/", "__pycache__/", ".venv/", "venv/"}

// GlobTool finds files by name pattern, delegating to ripgrep's --files
// mode (the same content-search binary grep.go uses).
type GlobTool struct {
	resolver *Resolver
}

func NewGlobTool(r *Resolver) *GlobTool { return &GlobTool{resolver: r} }

func (t *GlobTool) Name() string           { return "glob" }
func (t *GlobTool) Description() string    { return "Find files by glob pattern." }
func (t *GlobTool) RequiresApproval() bool { return false }

func (t *GlobTool) Parameters() map[string]any { return agent.SchemaFor[globArgs]() }

func (t *GlobTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	pattern, _ := inv.Arguments["pattern"].(string)
	if pattern == "" {
		return models.ToolOutput{Success: false, Content: "pattern argument is required"}, nil
	}
	path, _ := inv.Arguments["path"].(string)
	if path == "" {
		path = "."
	}
	maxResults := intArg(inv.Arguments, "max_results", defaultMaxGlobResults)

	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	args := []string{"--files", "--glob", pattern}
	for _, ex := range globExcludes {
		args = append(args, "--glob", "!"+ex)
	}
	args = append(args, full)

	cmd := exec.CommandContext(ctx, "rg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	_ = cmd.Run() // rg exits 1 on "no matches"; treat as an empty result set

	var results []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		rel, err := filepath.Rel(t.resolver.Root(), scanner.Text())
		if err != nil {
			rel = scanner.Text()
		}
		results = append(results, rel)
		if len(results) >= maxResults {
			break
		}
	}

	return models.ToolOutput{
		Success:  true,
		Content:  strings.Join(results, "\n"),
		Metadata: map[string]any{"count": len(results)},
	}, nil
}
