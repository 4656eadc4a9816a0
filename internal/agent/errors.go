package agent

import "errors"

var (
	// The sentinels below name agent error conditions. No code in this
	// module returns or wraps them.

	// ErrNoProvider names a loop constructed without a configured model
	// client.
	ErrNoProvider = errors.New("agent: no model provider configured")

	// ErrMaxIterations names a turn that exceeds the configured round
	// budget without the model producing a final text answer.
	ErrMaxIterations = errors.New("agent: max rounds exceeded for turn")

	// ErrToolTimeout names a tool whose own deadline elapses before the
	// underlying operation completes.
	ErrToolTimeout = errors.New("agent: tool execution timed out")

	// ErrSessionClosed names a Session operation invoked after the owning
	// run has ended.
	ErrSessionClosed = errors.New("agent: session is closed")

	// ErrUnknownTool names a dispatch to a tool absent from the registry;
	// Dispatch reports that case as a failed ToolOutput whose content is
	// "Unknown tool: <name>", without this sentinel.
	ErrUnknownTool = errors.New("agent: unknown tool")
)
