// Package models defines the shared data types that flow between the
// session, the model client, the tool registry, and the agent loop.
package models

import "time"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request by the model to execute a named tool with JSON
// arguments. ID binds the eventual ToolResult back to this call.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one element of conversation history.
//
// Invariant: every tool message carries a ToolCallID that matches a prior
// assistant ToolCalls entry; assistant ToolCalls and the following tool
// messages are paired 1:1, in order, before the next assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// ToolInvocation is the runtime request to execute a tool, derived 1:1 from
// a ToolCall once the agent loop decides to dispatch it.
type ToolInvocation struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// ToolOutput is the result of executing a tool. Content is surfaced both to
// the model (as a tool message) and to the UI/exporter.
type ToolOutput struct {
	Content  string         `json:"content"`
	Success  bool           `json:"success"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Usage captures cumulative or per-turn token accounting reported by a
// model provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
