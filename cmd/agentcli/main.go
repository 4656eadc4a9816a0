// Command agentcli is the CLI front end for the tool-using agent runtime:
// a one-shot prompt runner and interactive REPL over an OpenAI-compatible
// chat-completions endpoint, backed by a capability-profiled tool registry.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/agentcore/coreagent/internal/observability"
)

func main() {
	format := "json"
	if isInteractive() {
		format = "text"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  os.Getenv("RO_AGENT_LOG_LEVEL"),
		Format: format,
	})
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// isInteractive reports whether stdout looks like a terminal rather than a
// redirected file or pipe, used only to pick a friendlier log format.
func isInteractive() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0 && strings.TrimSpace(os.Getenv("RO_AGENT_ENVIRONMENT")) != "production"
}
