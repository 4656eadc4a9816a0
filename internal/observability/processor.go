package observability

import (
	"context"
	"time"

	"github.com/agentcore/coreagent/pkg/models"
)

// CaptureConfig controls which tool-call fields the processor records.
type CaptureConfig struct {
	ToolArguments bool
	ToolResults   bool
}

// Processor wraps an agent loop's event channel, producing telemetry
// without altering the events passed through.
type Processor struct {
	exporter  Exporter
	capture   CaptureConfig
	sessionID string
}

func NewProcessor(exporter Exporter, capture CaptureConfig, sessionID string) *Processor {
	return &Processor{exporter: exporter, capture: capture, sessionID: sessionID}
}

// WrapTurn consumes in, emits telemetry as events pass through, and
// forwards every event on the returned channel unmodified. The returned
// channel closes when in closes.
func (p *Processor) WrapTurn(ctx context.Context, in <-chan models.AgentEvent, userInput string, turnIndex int) <-chan models.AgentEvent {
	out := make(chan models.AgentEvent, cap(in))

	go func() {
		defer close(out)

		turn := &models.TurnContext{
			ID:        newID("turn"),
			SessionID: p.sessionID,
			Index:     turnIndex,
			UserInput: userInput,
			StartedAt: time.Now(),
		}
		_ = p.exporter.StartTurn(ctx, turn)

		pendingTools := make(map[string]*models.ToolExecutionContext)

		for ev := range in {
			switch ev.Type {
			case models.EventToolStart:
				tec := &models.ToolExecutionContext{
					ID:        newID("tool"),
					SessionID: p.sessionID,
					TurnID:    turn.ID,
					ToolName:  ev.ToolName,
					StartedAt: time.Now(),
				}
				if p.capture.ToolArguments {
					tec.Arguments = ev.ToolArgs
				}
				pendingTools[ev.ToolCallID] = tec
				turn.ToolCallCount++

			case models.EventToolEnd:
				if tec, ok := pendingTools[ev.ToolCallID]; ok {
					tec.EndedAt = time.Now()
					tec.DurationMS = tec.EndedAt.Sub(tec.StartedAt).Milliseconds()
					if ev.ToolResult != nil {
						tec.Success = ev.ToolResult.Success
						if p.capture.ToolResults {
							tec.Result = ev.ToolResult.Content
						}
					}
					_ = p.exporter.RecordToolExecution(ctx, tec)
					delete(pendingTools, ev.ToolCallID)
				}

			case models.EventToolBlocked:
				if tec, ok := pendingTools[ev.ToolCallID]; ok {
					tec.EndedAt = time.Now()
					tec.DurationMS = tec.EndedAt.Sub(tec.StartedAt).Milliseconds()
					tec.Success = false
					tec.Error = "Blocked by user"
					_ = p.exporter.RecordToolExecution(ctx, tec)
					delete(pendingTools, ev.ToolCallID)
				}

			case models.EventError:
				for id, tec := range pendingTools {
					tec.EndedAt = time.Now()
					tec.DurationMS = tec.EndedAt.Sub(tec.StartedAt).Milliseconds()
					tec.Success = false
					tec.Error = ev.Content
					_ = p.exporter.RecordToolExecution(ctx, tec)
					delete(pendingTools, id)
				}

			case models.EventTurnComplete:
				turn.InputTokenDelta = ev.Usage.InputTokens
				turn.OutputTokenDelta = ev.Usage.OutputTokens
				_ = p.exporter.RecordModelCall(ctx, p.sessionID, turn.ID, ev.Usage)
			}

			out <- ev

			switch ev.Type {
			case models.EventTurnComplete, models.EventCancelled, models.EventError:
				ended := time.Now()
				turn.EndedAt = &ended
				_ = p.exporter.EndTurn(ctx, turn)
			}
		}
	}()

	return out
}
