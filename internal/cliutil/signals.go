package cliutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/agentcore/coreagent/internal/profile"
)

// RunningSignal is the content of a session's <signals>/<id>.running file:
// enough for another process to identify and cancel this run.
type RunningSignal struct {
	SessionID         string `json:"session_id"`
	PID               int    `json:"pid"`
	Model             string `json:"model"`
	InstructionPreview string `json:"instruction_preview"`
	StartedAt         string `json:"started_at"`
}

func runningPath(id string) string { return filepath.Join(profile.SignalsDir(), id+".running") }
func cancelPath(id string) string  { return filepath.Join(profile.SignalsDir(), id+".cancel") }

// WriteRunningSignal writes the .running file for sessionID, creating the
// signals directory if needed.
func WriteRunningSignal(sig RunningSignal) error {
	if err := os.MkdirAll(profile.SignalsDir(), 0o755); err != nil {
		return fmt.Errorf("cliutil: creating signals dir: %w", err)
	}
	b, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return os.WriteFile(runningPath(sig.SessionID), b, 0o644)
}

// ClearSignals removes both the .running and .cancel files for sessionID,
// tolerating either being already absent.
func ClearSignals(sessionID string) {
	_ = os.Remove(runningPath(sessionID))
	_ = os.Remove(cancelPath(sessionID))
}

// WriteCancelSignal creates the .cancel file another process's watcher
// reacts to, the cross-process equivalent of RequestCancel.
func WriteCancelSignal(sessionID string) error {
	if err := os.MkdirAll(profile.SignalsDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(cancelPath(sessionID), []byte{}, 0o644)
}

// CancelWatcher watches <signals>/<id>.cancel via fsnotify instead of
// polling, exposing an agent.Loop-compatible `func() bool` predicate.
type CancelWatcher struct {
	sessionID string
	watcher   *fsnotify.Watcher
	cancelled atomic.Bool
	log       *slog.Logger
}

// NewCancelWatcher starts watching the signals directory for sessionID's
// cancel file. Callers must call Close when the turn loop using it exits.
func NewCancelWatcher(sessionID string, log *slog.Logger) (*CancelWatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(profile.SignalsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("cliutil: creating signals dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cliutil: starting signal watcher: %w", err)
	}
	if err := w.Add(profile.SignalsDir()); err != nil {
		w.Close()
		return nil, fmt.Errorf("cliutil: watching signals dir: %w", err)
	}

	cw := &CancelWatcher{sessionID: sessionID, watcher: w, log: log}

	if _, err := os.Stat(cancelPath(sessionID)); err == nil {
		cw.cancelled.Store(true)
	}

	go cw.run()
	return cw, nil
}

func (c *CancelWatcher) run() {
	target := sessionIDFromCancelPath(cancelPath(c.sessionID))
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if sessionIDFromCancelPath(ev.Name) == target {
				c.cancelled.Store(true)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("signal watcher error", "error", err)
		}
	}
}

func sessionIDFromCancelPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".cancel")
}

// Cancelled satisfies agent.LoopConfig.ExternalCancel.
func (c *CancelWatcher) Cancelled() bool { return c.cancelled.Load() }

// Close stops the underlying fsnotify watcher.
func (c *CancelWatcher) Close() error { return c.watcher.Close() }
