// Package cliutil implements the agentcli entry point's ambient concerns:
// conversation persistence, prompt-file templating, and the file-signal
// cancellation protocol.
package cliutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentcore/coreagent/internal/profile"
	"github.com/agentcore/coreagent/pkg/models"
)

// snapshotPath returns the path a session ID's ConversationSnapshot is
// stored at.
func snapshotPath(id string) string {
	return filepath.Join(profile.ConversationsDir(), id+".json")
}

// SaveSnapshot persists snap to <conversations>/<id>.json.
func SaveSnapshot(snap models.ConversationSnapshot) error {
	if err := os.MkdirAll(profile.ConversationsDir(), 0o755); err != nil {
		return fmt.Errorf("cliutil: creating conversations dir: %w", err)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("cliutil: marshaling snapshot: %w", err)
	}
	return os.WriteFile(snapshotPath(snap.ID), b, 0o644)
}

// LoadSnapshot reads a conversation snapshot by session ID.
func LoadSnapshot(id string) (models.ConversationSnapshot, error) {
	var snap models.ConversationSnapshot
	b, err := os.ReadFile(snapshotPath(id))
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("cliutil: parsing snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ListSnapshots returns every persisted ConversationSnapshot, ordered
// oldest-started first.
func ListSnapshots() ([]models.ConversationSnapshot, error) {
	entries, err := os.ReadDir(profile.ConversationsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snaps []models.ConversationSnapshot
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		snap, err := LoadSnapshot(id)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Started.Before(snaps[j].Started) })
	return snaps, nil
}

// LatestSnapshotID returns the most recently started session's ID, or ""
// if none are persisted.
func LatestSnapshotID() (string, error) {
	snaps, err := ListSnapshots()
	if err != nil || len(snaps) == 0 {
		return "", err
	}
	return snaps[len(snaps)-1].ID, nil
}

// ResolveResumeID resolves the --resume flag's value ("latest" or a literal
// session ID) to a concrete session ID.
func ResolveResumeID(value string) (string, error) {
	if value != "latest" {
		return value, nil
	}
	id, err := LatestSnapshotID()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("cliutil: no persisted conversations to resume")
	}
	return id, nil
}
