package cliutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadPromptFileNoFrontmatter(t *testing.T) {
	path := writeTempFile(t, "prompt.md", "You are an agent named {{.name}}.")
	text, err := LoadPromptFile(path, map[string]string{"name": "ava"})
	if err != nil {
		t.Fatalf("LoadPromptFile: %v", err)
	}
	want := "You are an agent named ava."
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestLoadPromptFileFrontmatterDefaultsOverridable(t *testing.T) {
	content := "---\nname: default-agent\nrole: assistant\n---\nYou are {{.name}}, a {{.role}}."
	path := writeTempFile(t, "prompt.md", content)

	text, err := LoadPromptFile(path, map[string]string{"name": "override-agent"})
	if err != nil {
		t.Fatalf("LoadPromptFile: %v", err)
	}
	want := "You are override-agent, a assistant."
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestLoadPromptFileMissingVariableErrors(t *testing.T) {
	path := writeTempFile(t, "prompt.md", "Hello {{.missing}}")
	if _, err := LoadPromptFile(path, nil); err == nil {
		t.Fatal("expected an error for an unset template variable, got nil")
	}
}

func TestLoadPromptFileUnclosedFrontmatterErrors(t *testing.T) {
	path := writeTempFile(t, "prompt.md", "---\nname: ava\nno closing delimiter here")
	if _, err := LoadPromptFile(path, nil); err == nil {
		t.Fatal("expected an error for unclosed frontmatter, got nil")
	}
}

func TestLoadPromptFileRequiredVariableMissingErrors(t *testing.T) {
	content := "---\nvariables:\n  - name: task\n    required: true\n---\nDo {{.task}}."
	path := writeTempFile(t, "prompt.md", content)

	if _, err := LoadPromptFile(path, nil); err == nil {
		t.Fatal("expected an error for a required variable with no value and no default, got nil")
	}
}

func TestLoadPromptFileRequiredVariableSatisfiedByUserValue(t *testing.T) {
	content := "---\nvariables:\n  - name: task\n    required: true\n---\nDo {{.task}}."
	path := writeTempFile(t, "prompt.md", content)

	text, err := LoadPromptFile(path, map[string]string{"task": "the dishes"})
	if err != nil {
		t.Fatalf("LoadPromptFile: %v", err)
	}
	if text != "Do the dishes." {
		t.Errorf("got %q", text)
	}
}

func TestLoadPromptFileRequiredVariableSatisfiedByDeclaredDefault(t *testing.T) {
	content := "---\nvariables:\n  - name: task\n    required: true\n    default: the laundry\n---\nDo {{.task}}."
	path := writeTempFile(t, "prompt.md", content)

	text, err := LoadPromptFile(path, nil)
	if err != nil {
		t.Fatalf("LoadPromptFile: %v", err)
	}
	if text != "Do the laundry." {
		t.Errorf("got %q", text)
	}
}

func TestParseVarFlags(t *testing.T) {
	vars, err := ParseVarFlags([]string{"name=ava", "role=assistant"})
	if err != nil {
		t.Fatalf("ParseVarFlags: %v", err)
	}
	if vars["name"] != "ava" || vars["role"] != "assistant" {
		t.Errorf("got %+v", vars)
	}
}

func TestParseVarFlagsRejectsMissingEquals(t *testing.T) {
	if _, err := ParseVarFlags([]string{"noequalssign"}); err == nil {
		t.Fatal("expected an error for a --var without '=', got nil")
	}
}
