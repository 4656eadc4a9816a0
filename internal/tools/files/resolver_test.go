package files

import (
	"path/filepath"
	"testing"
)

func TestResolverAllowsPathsUnderRoot(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	got, err := r.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "sub", "file.txt")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolverRejectsEscapingPaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspace")
	r := NewResolver(root)

	if _, err := r.Resolve("../outside.txt"); err == nil {
		t.Fatal("expected an error for a path escaping the workspace root")
	}
	if _, err := r.Resolve("sub/../../outside.txt"); err == nil {
		t.Fatal("expected an error for a path escaping via a nested ..")
	}
}

func TestResolverEmptyPathResolvesToRoot(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	got, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != root {
		t.Errorf("got %q, want root %q", got, root)
	}
}

func TestResolverAbsolutePathOutsideRootRejected(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspace")
	r := NewResolver(root)

	if _, err := r.Resolve("/etc/passwd"); err == nil {
		t.Fatal("expected an absolute path outside the workspace root to be rejected")
	}
}
