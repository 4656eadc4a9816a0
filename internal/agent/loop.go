package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/agentcore/coreagent/pkg/models"
)

// MaxToolOutputChars bounds a tool's content before it enters session
// history; see truncateHeadTail.
const MaxToolOutputChars = 20000

// AutoCompactThreshold is the fraction of ContextLimit at which the loop
// triggers compaction before appending the next user message.
const AutoCompactThreshold = 0.8

// Compactor is implemented by internal/compaction.Adapter, injected to
// avoid an import cycle between agent and compaction.
type Compactor func(ctx context.Context, session *Session, client ModelClient, trigger string, guidance string) (summary string, tokensBefore, tokensAfter int, err error)

// LoopConfig configures a Loop.
type LoopConfig struct {
	Registry     *Registry
	Client       ModelClient
	Approval     *ApprovalPolicy
	ApprovalFunc ApprovalCallback
	ContextLimit int
	AutoCompact  bool
	Compact      Compactor
	ExternalCancel func() bool
	Log          *slog.Logger
}

// Loop drives the streaming model<->tool<->model cycle described by the
// agent loop component: build prompt, stream, dispatch tools, feed results,
// repeat until the model produces a final text answer with no pending
// tool calls.
type Loop struct {
	cfg             LoopConfig
	cancelRequested atomic.Bool
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Loop{cfg: cfg}
}

// RequestCancel latches the in-process cancellation flag for the current
// and any subsequent turn until reset at the start of the next RunTurn.
func (l *Loop) RequestCancel() {
	l.cancelRequested.Store(true)
}

func (l *Loop) isCancelled() bool {
	if l.cancelRequested.Load() {
		return true
	}
	if l.cfg.ExternalCancel != nil && l.cfg.ExternalCancel() {
		l.cancelRequested.Store(true)
		return true
	}
	return false
}

// RunTurn runs one user turn to completion and returns a channel of
// AgentEvents. The channel is closed after the terminal event
// (turn_complete, cancelled, or error).
func (l *Loop) RunTurn(ctx context.Context, session *Session, userInput string) <-chan models.AgentEvent {
	events := make(chan models.AgentEvent, 16)

	go func() {
		defer close(events)
		l.cancelRequested.Store(false)

		if l.cfg.AutoCompact && l.cfg.Compact != nil {
			limit := l.cfg.ContextLimit
			if limit > 0 && float64(session.EstimateTokens()) > AutoCompactThreshold*float64(limit) {
				events <- models.AgentEvent{Type: models.EventCompactStart, Content: "auto"}
				summary, before, after, err := l.cfg.Compact(ctx, session, l.cfg.Client, "auto", "")
				if err != nil {
					events <- models.AgentEvent{Type: models.EventError, Content: err.Error()}
					return
				}
				_ = summary
				events <- models.AgentEvent{Type: models.EventCompactEnd, Content: fmt.Sprintf("Compacted: %d -> %d tokens", before, after)}
			}
		}

		session.AddUserMessage(userInput)

		for {
			if l.isCancelled() {
				events <- models.AgentEvent{Type: models.EventCancelled}
				return
			}

			prompt := Prompt{
				System:   session.SystemPrompt,
				Messages: session.GetMessages(),
				Tools:    l.cfg.Registry.Specs(),
			}

			stream, err := l.cfg.Client.Stream(ctx, prompt)
			if err != nil {
				events <- models.AgentEvent{Type: models.EventError, Content: err.Error()}
				return
			}

			var textContent string
			var pendingCalls []models.ToolCall
			var usage models.Usage
			streamErrored := false

			for ev := range stream {
				if l.isCancelled() {
					events <- models.AgentEvent{Type: models.EventCancelled}
					return
				}
				switch ev.Type {
				case StreamText:
					textContent += ev.Content
					events <- models.AgentEvent{Type: models.EventText, TextDelta: ev.Content}
				case StreamToolCall:
					pendingCalls = append(pendingCalls, ev.ToolCall)
					events <- models.AgentEvent{Type: models.EventToolStart, ToolName: ev.ToolCall.Name, ToolArgs: ev.ToolCall.Arguments, ToolCallID: ev.ToolCall.ID}
				case StreamDone:
					prevIn, prevOut := session.TotalTokens()
					deltaIn := ev.Usage.InputTokens - prevIn
					deltaOut := ev.Usage.OutputTokens - prevOut
					if deltaIn < 0 {
						deltaIn = 0
					}
					if deltaOut < 0 {
						deltaOut = 0
					}
					session.UpdateTokenUsage(deltaIn, deltaOut)
					usage = models.Usage{InputTokens: ev.Usage.InputTokens, OutputTokens: ev.Usage.OutputTokens}
				case StreamError:
					events <- models.AgentEvent{Type: models.EventError, Content: ev.Content}
					streamErrored = true
				}
			}
			if streamErrored {
				return
			}

			if len(pendingCalls) == 0 {
				session.AddAssistantMessage(textContent)
				events <- models.AgentEvent{Type: models.EventTurnComplete, Usage: usage}
				return
			}

			session.AddAssistantToolCalls(pendingCalls)

			terminal, err := l.executeTools(ctx, session, pendingCalls, events, usage)
			if err != nil {
				events <- models.AgentEvent{Type: models.EventError, Content: err.Error()}
				return
			}
			if terminal {
				return
			}
			// else: loop back to the model with tool results appended
		}
	}()

	return events
}

// executeTools runs a round's tool calls sequentially, honoring approval
// and cancellation. It returns terminal=true when the turn must not loop
// back to the model (approval rejection or cancellation).
func (l *Loop) executeTools(ctx context.Context, session *Session, calls []models.ToolCall, events chan<- models.AgentEvent, usage models.Usage) (terminal bool, err error) {
	for i, call := range calls {
		if l.isCancelled() {
			events <- models.AgentEvent{Type: models.EventCancelled}
			return true, nil
		}

		needsApproval := l.cfg.Registry.RequiresApproval(call.Name)
		if !needsApproval && l.cfg.Approval != nil {
			needsApproval, _ = l.cfg.Approval.Decide(call.Name, call.Arguments)
		}
		if needsApproval && l.cfg.ApprovalFunc != nil {
			approved := l.cfg.ApprovalFunc(call.Name, call.Arguments)
			if !approved {
				session.AddToolResult(call.ID, "Command rejected by user. Awaiting new instructions.")
				events <- models.AgentEvent{Type: models.EventToolBlocked, ToolName: call.Name, ToolCallID: call.ID}
				for _, remaining := range calls[i+1:] {
					session.AddToolResult(remaining.ID, "Command skipped - user rejected previous command.")
				}
				events <- models.AgentEvent{Type: models.EventTurnComplete, Usage: usage}
				return true, nil
			}
		}

		inv := models.ToolInvocation{CallID: call.ID, Name: call.Name, Arguments: call.Arguments}
		out := l.cfg.Registry.Dispatch(ctx, inv)
		out.Content = truncateHeadTail(out.Content, MaxToolOutputChars)
		session.AddToolResult(call.ID, out.Content)
		events <- models.AgentEvent{Type: models.EventToolEnd, ToolName: call.Name, ToolCallID: call.ID, ToolResult: &out}
	}
	return false, nil
}

// truncateHeadTail keeps the first N/2 characters, an elision marker, and
// the last N/2 characters. Idempotent: a string whose first and last N/2
// characters already enclose exactly one elision marker is returned as is;
// strings of length <= N are unchanged.
func truncateHeadTail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	half := max / 2
	const pre, post = "\n\n[... ", " chars elided ...]\n\n"
	if mid := s[half : len(s)-half]; len(mid) > len(pre)+len(post) && strings.HasPrefix(mid, pre) && strings.HasSuffix(mid, post) {
		if _, err := strconv.Atoi(mid[len(pre) : len(mid)-len(post)]); err == nil {
			return s
		}
	}
	elided := len(s) - max
	marker := fmt.Sprintf("\n\n[... %d chars elided ...]\n\n", elided)
	return s[:half] + marker + s[len(s)-half:]
}

// SerializeToolCallArguments is used when re-emitting a stored assistant
// tool-call message to the model: arguments are JSON-encoded, and the
// exact shape (key order, whitespace) is not part of the external
// contract.
func SerializeToolCallArguments(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
