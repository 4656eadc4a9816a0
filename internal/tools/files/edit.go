package files

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agentcore/coreagent/pkg/models"
)

// EditTool performs a surgical search-and-replace with three fallback
// match strategies, each requiring a unique match before any file mutation
// happens.
type EditTool struct {
	resolver        *Resolver
	requireApproval bool
}

func NewEditTool(r *Resolver, requireApproval bool) *EditTool {
	return &EditTool{resolver: r, requireApproval: requireApproval}
}

func (t *EditTool) Name() string           { return "edit" }
func (t *EditTool) Description() string    { return "Replace an exact (or fuzzily matched) block of a file." }
func (t *EditTool) RequiresApproval() bool { return t.requireApproval }

func (t *EditTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string"},
			"old_string": map[string]any{"type": "string"},
			"new_string": map[string]any{"type": "string"},
		},
		"required": []string{"path", "old_string", "new_string"},
	}
}

func (t *EditTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	path, _ := inv.Arguments["path"].(string)
	oldString, _ := inv.Arguments["old_string"].(string)
	newString, _ := inv.Arguments["new_string"].(string)
	if path == "" {
		return models.ToolOutput{Success: false, Content: "path argument is required"}, nil
	}

	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}
	original := string(raw)

	result, failReason := applyEdit(original, oldString, newString)
	if failReason != "" {
		return models.ToolOutput{Success: false, Content: failReason}, nil
	}

	if err := os.WriteFile(full, []byte(result), 0o644); err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	return models.ToolOutput{Success: true, Content: fmt.Sprintf("edited %s", path)}, nil
}

// applyEdit tries Exact, then Whitespace-normalized, then
// Indentation-flexible, in that order; no strategy runs after an earlier
// one already succeeded.
func applyEdit(original, oldString, newString string) (result string, failReason string) {
	if n := strings.Count(original, oldString); n == 1 {
		idx := strings.Index(original, oldString)
		return original[:idx] + newString + original[idx+len(oldString):], ""
	} else if n > 1 {
		return "", fmt.Sprintf("old_string appears %d times (must be unique). Add more context.", n)
	}

	oldLines := strings.Split(oldString, "\n")
	fileLines := strings.Split(original, "\n")

	// Whitespace-normalized: trailing whitespace stripped on both sides.
	if res, reason, matched := matchSlidingWindow(fileLines, oldLines, newString, trimTrailing, false); matched {
		return res, reason
	} else if reason != "" {
		return "", reason
	}

	// Indentation-flexible: leading whitespace stripped on both sides, with
	// re-indentation of new_string on replace.
	if res, reason, matched := matchSlidingWindow(fileLines, oldLines, newString, trimLeading, true); matched {
		return res, reason
	} else if reason != "" {
		return "", reason
	}

	return "", "old_string not found in file. Check for typos or add more context."
}

func trimTrailing(s string) string { return strings.TrimRight(s, " \t\r") }
func trimLeading(s string) string  { return strings.TrimLeft(s, " \t") }

// matchSlidingWindow looks for exactly one window of len(oldLines)
// consecutive fileLines whose normalized form matches oldLines'
// normalized form. When indentFlexible is true, the replacement is
// re-indented to the matched window's base indent.
func matchSlidingWindow(fileLines, oldLines []string, newString string, normalize func(string) string, indentFlexible bool) (result string, failReason string, matched bool) {
	if len(oldLines) == 0 || len(oldLines) > len(fileLines) {
		return "", "", false
	}
	normOld := make([]string, len(oldLines))
	for i, l := range oldLines {
		normOld[i] = normalize(l)
	}

	var matchStarts []int
	for start := 0; start+len(oldLines) <= len(fileLines); start++ {
		ok := true
		for i := 0; i < len(oldLines); i++ {
			if normalize(fileLines[start+i]) != normOld[i] {
				ok = false
				break
			}
		}
		if ok {
			matchStarts = append(matchStarts, start)
		}
	}

	if len(matchStarts) == 0 {
		return "", "", false
	}
	if len(matchStarts) > 1 {
		kind := "whitespace-normalized"
		if indentFlexible {
			kind = "indentation-flexible"
		}
		return "", fmt.Sprintf("Found %d %s matches (must be unique)", len(matchStarts), kind), true
	}

	start := matchStarts[0]
	replacement := newString
	if indentFlexible {
		replacement = reindent(fileLines[start], newString)
	}

	before := strings.Join(fileLines[:start], "\n")
	after := strings.Join(fileLines[start+len(oldLines):], "\n")

	var b strings.Builder
	if before != "" || start > 0 {
		b.WriteString(before)
		b.WriteString("\n")
	}
	b.WriteString(replacement)
	if after != "" || start+len(oldLines) < len(fileLines) {
		b.WriteString("\n")
		b.WriteString(after)
	}
	return b.String(), "", true
}

// reindent re-applies baseLine's leading indent to every non-empty line of
// newString, relative to newString's own minimum indent.
func reindent(baseLine, newString string) string {
	baseIndent := leadingWhitespace(baseLine)
	newLines := strings.Split(newString, "\n")

	minIndent := -1
	for _, l := range newLines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(leadingWhitespace(l))
		if minIndent == -1 || n < minIndent {
			minIndent = n
		}
	}
	if minIndent == -1 {
		minIndent = 0
	}

	out := make([]string, len(newLines))
	for i, l := range newLines {
		if strings.TrimSpace(l) == "" {
			out[i] = l
			continue
		}
		indent := len(leadingWhitespace(l))
		rel := indent - minIndent
		if rel < 0 {
			rel = 0
		}
		out[i] = baseIndent + strings.Repeat(" ", rel) + strings.TrimLeft(l, " \t")
	}
	return strings.Join(out, "\n")
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}
