package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/coreagent/pkg/models"
)

// SummaryHandoffPrefix is prepended to every compaction summary before it
// re-enters history as a user message.
const SummaryHandoffPrefix = "Another language model worked on this task and produced a summary of its progress. Use this to build on the work that has already been done and avoid duplicating effort. Here is the summary:\n\n"

// Session is the Agent-owned conversation state: system prompt, ordered
// message history, and cumulative token counters. It is mutated only by the
// Agent, never directly by tool handlers.
type Session struct {
	mu sync.Mutex

	ID           string
	Model        string
	SystemPrompt string
	history      []models.Message
	started      time.Time
	ended        *time.Time

	totalInputTokens  int
	totalOutputTokens int
	closed            bool
}

// NewSession creates a Session with an empty history.
func NewSession(id, model, systemPrompt string) *Session {
	return &Session{
		ID:           id,
		Model:        model,
		SystemPrompt: systemPrompt,
		started:      time.Now(),
	}
}

func (s *Session) AddUserMessage(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.Message{Role: models.RoleUser, Content: content, CreatedAt: time.Now()})
}

func (s *Session) AddAssistantMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.Message{Role: models.RoleAssistant, Content: text, CreatedAt: time.Now()})
}

// AddAssistantToolCalls appends an assistant message with no text content
// and the given tool-call stubs. It must be followed, before the next
// assistant message, by exactly len(calls) tool messages via AddToolResult.
func (s *Session) AddAssistantToolCalls(calls []models.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.Message{Role: models.RoleAssistant, ToolCalls: calls, CreatedAt: time.Now()})
}

func (s *Session) AddToolResult(callID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.Message{Role: models.RoleTool, Content: content, ToolCallID: callID, CreatedAt: time.Now()})
}

// UpdateTokenUsage adds per-turn deltas to the cumulative counters. The
// Session is the sole authoritative accounting point; deltas are computed
// by the caller by subtracting the previous cumulative usage from the
// provider's reported cumulative usage for the request just completed.
func (s *Session) UpdateTokenUsage(inputDelta, outputDelta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalInputTokens += inputDelta
	s.totalOutputTokens += outputDelta
}

func (s *Session) TotalTokens() (input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalInputTokens, s.totalOutputTokens
}

// Clear empties the history, leaving system prompt and token totals intact.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// GetMessages returns a snapshot copy of the current history.
func (s *Session) GetMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.history))
	copy(out, s.history)
	return out
}

// GetUserMessages returns the text content of every user message, in order.
func (s *Session) GetUserMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.history {
		if m.Role == models.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// EstimateTokens is a trigger heuristic only (chars/4 across system prompt
// and history), never used for cost accounting or telemetry.
func (s *Session) EstimateTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.SystemPrompt)
	for _, m := range s.history {
		total += len(m.Content)
		for _, tc := range m.ToolCalls {
			total += len(tc.Name)
			for k, v := range tc.Arguments {
				total += len(k) + len(stringifyArg(v))
			}
		}
	}
	return total / 4
}

// ReplaceWithSummary clears history, re-appends tailUserMessages as user
// messages, then appends the summary (caller supplies the handoff prefix)
// as a final user message.
func (s *Session) ReplaceWithSummary(summary string, tailUserMessages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	for _, m := range tailUserMessages {
		s.history = append(s.history, models.Message{Role: models.RoleUser, Content: m, CreatedAt: time.Now()})
	}
	s.history = append(s.history, models.Message{Role: models.RoleUser, Content: summary, CreatedAt: time.Now()})
}

// Snapshot produces a ConversationSnapshot for persistence.
func (s *Session) Snapshot() models.ConversationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ended time.Time
	if s.ended != nil {
		ended = *s.ended
	}
	history := make([]models.Message, len(s.history))
	copy(history, s.history)
	return models.ConversationSnapshot{
		ID:           s.ID,
		Model:        s.Model,
		SystemPrompt: s.SystemPrompt,
		History:      history,
		Started:      s.started,
		Ended:        ended,
		InputTokens:  s.totalInputTokens,
		OutputTokens: s.totalOutputTokens,
	}
}

// RestoreSession rebuilds a Session from a snapshot, treating it as
// equivalent to one the Agent built itself.
func RestoreSession(snap models.ConversationSnapshot) *Session {
	s := &Session{
		ID:                snap.ID,
		Model:             snap.Model,
		SystemPrompt:      snap.SystemPrompt,
		history:           append([]models.Message(nil), snap.History...),
		started:           snap.Started,
		totalInputTokens:  snap.InputTokens,
		totalOutputTokens: snap.OutputTokens,
	}
	if !snap.Ended.IsZero() {
		ended := snap.Ended
		s.ended = &ended
	}
	return s
}

func stringifyArg(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
