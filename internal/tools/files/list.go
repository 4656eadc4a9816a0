package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentcore/coreagent/pkg/models"
)

const (
	defaultTreeDepth = 3
	maxListEntries   = 200
)

// ListTool lists a directory, flat or recursive-tree.
type ListTool struct {
	resolver *Resolver
}

func NewListTool(r *Resolver) *ListTool { return &ListTool{resolver: r} }

func (t *ListTool) Name() string           { return "list" }
func (t *ListTool) Description() string    { return "List a directory's contents, flat or as a tree." }
func (t *ListTool) RequiresApproval() bool { return false }

func (t *ListTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":        map[string]any{"type": "string"},
			"mode":        map[string]any{"type": "string", "enum": []string{"flat", "recursive"}},
			"depth":       map[string]any{"type": "integer"},
			"show_hidden": map[string]any{"type": "boolean"},
		},
	}
}

type entry struct {
	name  string
	isDir bool
	size  int64
	mtime string
	mode  string
}

func (t *ListTool) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	path, _ := inv.Arguments["path"].(string)
	mode, _ := inv.Arguments["mode"].(string)
	if mode == "" {
		mode = "flat"
	}
	depth := intArg(inv.Arguments, "depth", defaultTreeDepth)
	showHidden, _ := inv.Arguments["show_hidden"].(bool)

	full, err := t.resolver.Resolve(path)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}, nil
	}

	var lines []string
	count := 0
	truncated := false

	var walk func(dir string, depthLeft int)
	walk = func(dir string, depthLeft int) {
		if truncated {
			return
		}
		des, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		entries := toEntries(dir, des, showHidden)
		for _, e := range entries {
			if count >= maxListEntries {
				truncated = true
				return
			}
			name := e.name
			if e.isDir {
				name += "/"
			}
			lines = append(lines, fmt.Sprintf("%s %8d  %s  %s", e.mode, e.size, e.mtime, name))
			count++
			if mode == "recursive" && e.isDir && depthLeft > 1 {
				walk(filepath.Join(dir, e.name), depthLeft-1)
			}
		}
	}

	if mode == "recursive" {
		walk(full, depth)
	} else {
		walk(full, 1)
	}

	content := strings.Join(lines, "\n")
	if truncated {
		content += "\n[Truncated at 200 entries]"
	}
	return models.ToolOutput{Success: true, Content: content, Metadata: map[string]any{"count": count}}, nil
}

func toEntries(dir string, des []os.DirEntry, showHidden bool) []entry {
	var dirs, files []entry
	for _, de := range des {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		e := entry{name: de.Name(), isDir: de.IsDir(), size: info.Size(), mtime: info.ModTime().Format("2006-01-02 15:04"), mode: info.Mode().String()}
		if de.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].name < dirs[j].name })
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return append(dirs, files...)
}
