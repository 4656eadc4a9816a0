package models

// AgentEventType tags the variant carried by an AgentEvent.
type AgentEventType string

const (
	EventText         AgentEventType = "text"
	EventToolStart     AgentEventType = "tool_start"
	EventToolEnd       AgentEventType = "tool_end"
	EventToolBlocked   AgentEventType = "tool_blocked"
	EventCompactStart  AgentEventType = "compact_start"
	EventCompactEnd    AgentEventType = "compact_end"
	EventTurnComplete  AgentEventType = "turn_complete"
	EventCancelled     AgentEventType = "cancelled"
	EventError         AgentEventType = "error"
)

// AgentEvent is the sole channel through which run_turn communicates
// progress. It never raises an error across its boundary; callers switch
// on Type.
type AgentEvent struct {
	Type AgentEventType

	// Text delta, for EventText.
	TextDelta string

	// Tool fields, for EventToolStart/EventToolEnd/EventToolBlocked.
	ToolName     string
	ToolArgs     map[string]any
	ToolResult   *ToolOutput
	ToolCallID   string

	// Usage snapshot, for EventTurnComplete.
	Usage Usage

	// Content is a free-form message, used by compact_start/compact_end,
	// error, and cancelled.
	Content string
}
