package agent

import (
	"context"

	"github.com/agentcore/coreagent/pkg/models"
)

// Prompt is the full request the model client turns into a chat-completions
// call: the system prompt, ordered history, and the tool specs currently
// registered.
type Prompt struct {
	System   string
	Messages []models.Message
	Tools    []FunctionSpec
}

// StreamEventType tags a ModelClient.Stream event.
type StreamEventType string

const (
	StreamText     StreamEventType = "text"
	StreamToolCall StreamEventType = "tool_call"
	StreamDone     StreamEventType = "done"
	StreamError    StreamEventType = "error"
)

// StreamEvent is one element of the lazy sequence a ModelClient stream
// yields. The sequence is finite and always terminates with done or error.
type StreamEvent struct {
	Type     StreamEventType
	Content  string
	ToolCall models.ToolCall
	Usage    models.Usage
}

// ModelClient is the streaming model API boundary (C6). Stream is the
// primary entry point used by the agent loop; Complete is a non-streaming
// path used only by compaction.
type ModelClient interface {
	Stream(ctx context.Context, prompt Prompt) (<-chan StreamEvent, error)
	Complete(ctx context.Context, messages []models.Message) (text string, usage models.Usage, err error)
}
