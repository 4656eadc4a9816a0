// Package compaction implements the context-checkpoint summarization
// procedure that replaces aged conversation history with a model-generated
// handoff summary.
package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

// Trigger tags why a compaction ran.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// Result is returned to the caller (the agent loop or a slash command) for
// event emission.
type Result struct {
	Summary      string
	TokensBefore int
	TokensAfter  int
	Trigger      Trigger
}

const systemInstruction = "You are performing a CONTEXT CHECKPOINT COMPACTION. Create a handoff summary for another LLM that will resume the task. Include: current progress and key decisions made; important context, constraints, or user preferences discovered; what remains to be done (clear next steps); any critical data, file paths, or references needed to continue. Be concise, structured, and focused."

const tailUserMessageCount = 3
const toolResultPreviewChars = 500

// Compact runs the full procedure against session, using client.Complete
// for the summarization call, and mutates session via ReplaceWithSummary.
func Compact(ctx context.Context, session *agent.Session, client agent.ModelClient, trigger Trigger, customInstructions string) (Result, error) {
	tokensBefore := session.EstimateTokens()

	sys := systemInstruction
	if customInstructions != "" {
		sys = sys + "\n\nUser guidance: " + customInstructions
	}

	formatted := formatHistory(session.GetMessages())
	prompt := []models.Message{
		{Role: models.RoleSystem, Content: sys},
		{Role: models.RoleUser, Content: "Here is the conversation to summarize:\n\n" + formatted},
	}

	summary, usage, err := client.Complete(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("compaction: summarization call failed: %w", err)
	}
	session.UpdateTokenUsage(usage.InputTokens, usage.OutputTokens)

	userMessages := session.GetUserMessages()
	tail := lastN(userMessages, tailUserMessageCount)

	session.ReplaceWithSummary(agent.SummaryHandoffPrefix+summary, tail)

	tokensAfter := session.EstimateTokens()
	return Result{
		Summary:      summary,
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
		Trigger:      trigger,
	}, nil
}

// Adapter matches the agent.Compactor function type, letting callers wire
// LoopConfig.Compact directly to this package without an import cycle.
func Adapter(ctx context.Context, session *agent.Session, client agent.ModelClient, trigger string, guidance string) (string, int, int, error) {
	result, err := Compact(ctx, session, client, Trigger(trigger), guidance)
	if err != nil {
		return "", 0, 0, err
	}
	return result.Summary, result.TokensBefore, result.TokensAfter, nil
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// formatHistory renders prior messages the way the summarization prompt
// expects: "User: ...", "Assistant: ...", "Assistant called tool: <name>",
// "Tool result: ...".
func formatHistory(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			b.WriteString("User: ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		case models.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				for _, tc := range m.ToolCalls {
					b.WriteString(fmt.Sprintf("Assistant called tool: %s\n", tc.Name))
				}
			} else {
				b.WriteString("Assistant: ")
				b.WriteString(m.Content)
				b.WriteString("\n")
			}
		case models.RoleTool:
			content := m.Content
			if len(content) > toolResultPreviewChars {
				content = content[:toolResultPreviewChars]
			}
			b.WriteString("Tool result: ")
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
