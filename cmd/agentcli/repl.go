package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/cliutil"
	"github.com/agentcore/coreagent/internal/compaction"
	"github.com/agentcore/coreagent/internal/observability"
)

const replHelp = `Slash commands:
  /approve          approve every remaining tool call without prompting
  /compact [notes]  summarize the conversation so far, optionally guided by notes
  /help             show this message
  /clear            discard conversation history, keeping the system prompt
  exit, quit        end the session`

// runREPL drives the interactive loop: read a line, run a turn or handle a
// slash command, print, repeat until exit/quit or EOF.
func runREPL(ctx context.Context, loop *agent.Loop, client agent.ModelClient, processor *observability.Processor, session *agent.Session, autoApprove *latch, opts runOptions, out io.Writer) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	turnIndex := 0
	fmt.Fprintln(out, replHelp)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			persistSession(session)
			return nil
		case line == "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case line == "/approve":
			autoApprove.Store(true)
			fmt.Fprintln(out, "auto-approve enabled for the rest of this session")
			continue
		case line == "/clear":
			session.Clear()
			fmt.Fprintln(out, "conversation history cleared")
			continue
		case line == "/compact" || strings.HasPrefix(line, "/compact "):
			guidance := strings.TrimSpace(strings.TrimPrefix(line, "/compact"))
			before := session.EstimateTokens()
			result, err := compaction.Compact(ctx, session, client, compaction.TriggerManual, guidance)
			if err != nil {
				fmt.Fprintf(out, "compaction failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "compacted %d -> %d tokens (was ~%d)\n", result.TokensBefore, result.TokensAfter, before)
			continue
		}

		raw := loop.RunTurn(ctx, session, line)
		wrapped := processor.WrapTurn(ctx, raw, line, turnIndex)
		_, _, err := drainTurn(wrapped, out, opts.previewLines)
		persistSession(session)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		turnIndex++
	}

	persistSession(session)
	cliutil.ClearSignals(session.ID)
	return scanner.Err()
}
