// Package profile locates the CLI's config directory and named capability
// profile files on disk.
package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	appDirName        = "agentcore"
	DefaultConfigName = "profile.yaml"
	ProfileExt        = ".yaml"
)

// ConfigDir returns <home>/.config/agentcore, honoring RO_AGENT_CONFIG_DIR
// as an override.
func ConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv("RO_AGENT_CONFIG_DIR")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		home = "."
	}
	return filepath.Join(home, ".config", appDirName)
}

// ProfilesDir returns the directory holding named profile YAML files.
func ProfilesDir() string {
	return filepath.Join(ConfigDir(), "profiles")
}

// ConversationsDir returns the directory holding persisted
// ConversationSnapshot JSON files.
func ConversationsDir() string {
	return filepath.Join(ConfigDir(), "conversations")
}

// SignalsDir returns the directory used for the file-signal cancellation
// protocol, honoring RO_AGENT_SIGNAL_DIR.
func SignalsDir() string {
	if dir := strings.TrimSpace(os.Getenv("RO_AGENT_SIGNAL_DIR")); dir != "" {
		return dir
	}
	return filepath.Join(ConfigDir(), "signals")
}

// TelemetryDBPath returns the default SQLite telemetry store path, honoring
// RO_AGENT_TELEMETRY_DB.
func TelemetryDBPath() string {
	if path := strings.TrimSpace(os.Getenv("RO_AGENT_TELEMETRY_DB")); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), "telemetry.db")
}

// ObservabilityConfigPath returns the path of the optional observability.yaml.
func ObservabilityConfigPath() string {
	return filepath.Join(ConfigDir(), "observability.yaml")
}

// ProfileConfigPath returns the config path for a named profile, or
// DefaultConfigPath if name is empty.
func ProfileConfigPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultConfigPath()
	}
	return filepath.Join(ProfilesDir(), name+ProfileExt)
}

// DefaultConfigPath is used when neither --profile nor RO_AGENT_PROFILE
// names a YAML file on disk; it still resolves to a path (which may not
// exist) so callers can distinguish "no file, use the builtin preset" from
// a load error.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), DefaultConfigName)
}

// ListProfiles returns the names of every *.yaml file under ProfilesDir.
func ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(ProfilesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ProfileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ProfileExt))
	}
	sort.Strings(names)
	return names, nil
}
