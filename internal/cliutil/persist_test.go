package cliutil

import (
	"testing"
	"time"

	"github.com/agentcore/coreagent/pkg/models"
)

func withConfigDir(t *testing.T) {
	t.Helper()
	t.Setenv("RO_AGENT_CONFIG_DIR", t.TempDir())
}

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	withConfigDir(t)

	snap := models.ConversationSnapshot{
		ID:           "sess-abc",
		Model:        "gpt-4o",
		SystemPrompt: "be terse",
		Started:      time.Now().Truncate(time.Second),
		InputTokens:  10,
		OutputTokens: 20,
	}
	if err := SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := LoadSnapshot("sess-abc")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.ID != snap.ID || loaded.Model != snap.Model || loaded.InputTokens != snap.InputTokens {
		t.Errorf("loaded snapshot mismatch: %+v", loaded)
	}
}

func TestListSnapshotsOrderedByStartTime(t *testing.T) {
	withConfigDir(t)

	older := models.ConversationSnapshot{ID: "older", Started: time.Now().Add(-time.Hour)}
	newer := models.ConversationSnapshot{ID: "newer", Started: time.Now()}
	if err := SaveSnapshot(newer); err != nil {
		t.Fatalf("SaveSnapshot(newer): %v", err)
	}
	if err := SaveSnapshot(older); err != nil {
		t.Fatalf("SaveSnapshot(older): %v", err)
	}

	snaps, err := ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].ID != "older" || snaps[1].ID != "newer" {
		t.Errorf("snapshots not ordered oldest-first: %+v", snaps)
	}

	latest, err := LatestSnapshotID()
	if err != nil {
		t.Fatalf("LatestSnapshotID: %v", err)
	}
	if latest != "newer" {
		t.Errorf("LatestSnapshotID() = %q, want newer", latest)
	}
}

func TestResolveResumeIDLatestAndLiteral(t *testing.T) {
	withConfigDir(t)

	if _, err := ResolveResumeID("latest"); err == nil {
		t.Fatal("expected an error resolving \"latest\" with no persisted conversations")
	}

	if err := SaveSnapshot(models.ConversationSnapshot{ID: "only-one", Started: time.Now()}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	id, err := ResolveResumeID("latest")
	if err != nil {
		t.Fatalf("ResolveResumeID(latest): %v", err)
	}
	if id != "only-one" {
		t.Errorf("ResolveResumeID(latest) = %q, want only-one", id)
	}

	literal, err := ResolveResumeID("explicit-id")
	if err != nil {
		t.Fatalf("ResolveResumeID(explicit-id): %v", err)
	}
	if literal != "explicit-id" {
		t.Errorf("ResolveResumeID(explicit-id) = %q, want passthrough", literal)
	}
}
