package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentcore/coreagent/pkg/models"
)

func TestConfigDirHonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RO_AGENT_CONFIG_DIR", dir)

	if got := ConfigDir(); got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
	if got := ProfilesDir(); got != filepath.Join(dir, "profiles") {
		t.Errorf("ProfilesDir() = %q", got)
	}
}

func TestListProfilesEmptyDirReturnsNil(t *testing.T) {
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())

	names, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("got %v, want empty", names)
	}
}

func TestListProfilesSortedAndFiltered(t *testing.T) {
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())
	if err := os.MkdirAll(ProfilesDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"zeta.yaml", "alpha.yaml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(ProfilesDir(), name), []byte("name: x\n"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	names, err := ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	want := []string{"alpha", "zeta"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestResolveFallsBackToPreset(t *testing.T) {
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())

	p, err := Resolve("developer")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name != "developer" {
		t.Errorf("got profile %q, want developer preset", p.Name)
	}
}

func TestResolveLoadsYAMLFileOverPreset(t *testing.T) {
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())
	if err := os.MkdirAll(ProfilesDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "name: custom\nshell: unrestricted\nfile_write: full\napproval: none\n"
	if err := os.WriteFile(ProfileConfigPath("custom"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}

	p, err := Resolve("custom")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name != "custom" || p.Shell != models.ShellUnrestricted || p.FileWrite != models.FileWriteFull {
		t.Errorf("got %+v", p)
	}
	if len(p.DangerousPatterns) == 0 {
		t.Error("expected DangerousPatterns to fall back to the default set when the YAML file omits it")
	}
}

func TestResolveEmptyNameDefaultsToReadonly(t *testing.T) {
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())

	p, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name != "readonly" {
		t.Errorf("got %q, want readonly", p.Name)
	}
}
