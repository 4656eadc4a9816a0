package files

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

const defaultMaxGrepMatches = 100

// grepArgs is reflected into the tool's JSON-schema parameters.
type grepArgs struct {
	Pattern      string `json:"pattern" jsonschema:"required,description=Regular expression to search for."`
	Path         string `json:"path,omitempty" jsonschema:"description=Directory or file to search; defaults to the working directory."`
	Glob         string `json:"glob,omitempty" jsonschema:"description=Restrict the search to files matching this glob."`
	IgnoreCase   bool   `json:"ignore_case,omitempty" jsonschema:"description=Case-insensitive match."`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"description=Lines of context to include around each match."`
	MaxMatches   int    `json:"max_matches,omitempty" jsonschema:"description=Caps the number of reported matches; defaults to 100."`
}

// GrepTool searches file contents via ripgrep, preserving its
// "<file>:<line>:<content>" match / "<file>-<line>-<content>" context-line
// output shape.
type GrepTool struct {
	resolver *Resolver
}

func NewGrepTool(r *Resolver) *GrepTool { return &GrepTool{resolver: r} }

func (t *GrepTool) Name() string           { return "grep" }
func (t *GrepTool) Description() string    { return "Search file contents for a pattern." }
func (t *GrepTool) RequiresApproval() bool { return false }

func (t *GrepTool) Parameters() map[string]any { return agent.SchemaFor[grepArgs]() }

func (t *GrepTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	pattern, _ := inv.Arguments["pattern"].(string)
	if pattern == "" {
		return models.ToolOutput{Success: false, Content: "pattern argument is required"}, nil
	}
	path, _ := inv.Arguments["path"].(string)
	if path == "" {
		path = "."
	}
	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	maxMatches := intArg(inv.Arguments, "max_matches", defaultMaxGrepMatches)
	contextLines := intArg(inv.Arguments, "context_lines", 0)
	ignoreCase, _ := inv.Arguments["ignore_case"].(bool)
	globPattern, _ := inv.Arguments["glob"].(string)

	args := []string{"--line-number", "--with-filename"}
	if ignoreCase {
		args = append(args, "--ignore-case")
	}
	if contextLines > 0 {
		args = append(args, "--context", strconv.Itoa(contextLines))
	}
	if globPattern != "" {
		args = append(args, "--glob", globPattern)
	}
	args = append(args, pattern, full)

	cmd := exec.CommandContext(ctx, "rg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	_ = cmd.Run()

	var lines []string
	matchCount := 0
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if isMatchLine(line) {
			matchCount++
			if matchCount >= maxMatches {
				break
			}
		}
	}

	content := ""
	for i, l := range lines {
		if i > 0 {
			content += "\n"
		}
		content += l
	}
	if matchCount >= maxMatches {
		content += fmt.Sprintf("\n... truncated after %d matches", maxMatches)
	}

	return models.ToolOutput{Success: true, Content: content, Metadata: map[string]any{"match_count": matchCount}}, nil
}

// isMatchLine distinguishes ripgrep's ":"-separated match lines from its
// "-"-separated context lines.
func isMatchLine(line string) bool {
	sepIdx := -1
	depth := 0
	for i, c := range line {
		if c == ':' || c == '-' {
			depth++
			if depth == 2 {
				sepIdx = i
				break
			}
		}
	}
	return sepIdx != -1 && line[sepIdx] == ':'
}
