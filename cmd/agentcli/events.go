package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/observability"
	"github.com/agentcore/coreagent/pkg/models"
)

// latch is a tiny atomic bool wrapper used for the /approve toggle, which
// is written from the REPL goroutine and read from the approval callback.
type latch struct{ v atomic.Bool }

func newLatch(initial bool) *latch {
	l := &latch{}
	l.v.Store(initial)
	return l
}

func (l *latch) Load() bool  { return l.v.Load() }
func (l *latch) Store(b bool) { l.v.Store(b) }

// drainTurn renders one turn's events to out as they arrive, returning the
// full assistant text and the final usage snapshot.
func drainTurn(events <-chan models.AgentEvent, out io.Writer, previewLines int) (string, models.Usage, error) {
	var (
		text  strings.Builder
		usage models.Usage
		err   error
	)
	for ev := range events {
		switch ev.Type {
		case models.EventText:
			text.WriteString(ev.TextDelta)
			fmt.Fprint(out, ev.TextDelta)
		case models.EventToolStart:
			fmt.Fprintf(out, "\n[tool] %s(%v)\n", ev.ToolName, ev.ToolArgs)
		case models.EventToolEnd:
			fmt.Fprintf(out, "[tool done] %s -> %s\n", ev.ToolName, previewResult(ev.ToolResult, previewLines))
		case models.EventToolBlocked:
			fmt.Fprintf(out, "[tool blocked] %s: %s\n", ev.ToolName, ev.Content)
		case models.EventCompactStart:
			fmt.Fprintf(out, "\n[compacting: %s]\n", ev.Content)
		case models.EventCompactEnd:
			fmt.Fprintf(out, "[compacted] %s\n", ev.Content)
		case models.EventCancelled:
			fmt.Fprintln(out, "\n[cancelled]")
		case models.EventError:
			err = fmt.Errorf("%s", ev.Content)
		case models.EventTurnComplete:
			usage = ev.Usage
		}
	}
	fmt.Fprintln(out)
	return text.String(), usage, err
}

func previewResult(result *models.ToolOutput, lines int) string {
	if result == nil {
		return ""
	}
	s := result.Content
	if !result.Success {
		s = "error: " + s
	}
	split := strings.Split(s, "\n")
	if len(split) > lines {
		split = append(split[:lines], fmt.Sprintf("... (%d more lines)", len(split)-lines))
	}
	return strings.Join(split, "\n")
}

func runOneShot(ctx context.Context, loop *agent.Loop, processor *observability.Processor, session *agent.Session, prompt string, opts runOptions, out io.Writer) error {
	if opts.output != "" {
		if _, err := os.Stat(opts.output); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s", opts.output)
		}
	}

	raw := loop.RunTurn(ctx, session, prompt)
	wrapped := processor.WrapTurn(ctx, raw, prompt, 0)
	text, _, err := drainTurn(wrapped, out, opts.previewLines)
	persistSession(session)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if werr := os.WriteFile(opts.output, []byte(text), 0o644); werr != nil {
			return fmt.Errorf("writing --output: %w", werr)
		}
	}
	return nil
}
