// Package files implements the read/list/glob/grep/write/edit tools, all
// confined to a workspace root via Resolver.
package files

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver confines every tool-requested path to a workspace root,
// rejecting any path that escapes it via "..".
type Resolver struct {
	root string
}

func NewResolver(root string) *Resolver {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Resolver{root: abs}
}

// Resolve joins a tool-supplied path against the workspace root and
// rejects the result if it escapes the root.
func (r *Resolver) Resolve(path string) (string, error) {
	if path == "" {
		path = "."
	}
	var joined string
	if filepath.IsAbs(path) {
		joined = filepath.Clean(path)
	} else {
		joined = filepath.Clean(filepath.Join(r.root, path))
	}
	rel, err := filepath.Rel(r.root, joined)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace root", path)
	}
	return joined, nil
}

func (r *Resolver) Root() string { return r.root }
