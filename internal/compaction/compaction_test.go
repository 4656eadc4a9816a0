package compaction

import (
	"context"
	"testing"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

type fakeClient struct {
	summary string
	usage   models.Usage
	err     error
	prompt  []models.Message
}

func (f *fakeClient) Stream(ctx context.Context, prompt agent.Prompt) (<-chan agent.StreamEvent, error) {
	panic("not used by compaction tests")
}

func (f *fakeClient) Complete(ctx context.Context, messages []models.Message) (string, models.Usage, error) {
	f.prompt = messages
	return f.summary, f.usage, f.err
}

func TestCompactReplacesHistoryWithSummaryAndTail(t *testing.T) {
	session := agent.NewSession("sess-1", "gpt-4o", "be helpful")
	session.AddUserMessage("do step one")
	session.AddAssistantMessage("done with step one")
	session.AddUserMessage("now do step two")

	client := &fakeClient{summary: "handoff summary text", usage: models.Usage{InputTokens: 50, OutputTokens: 20}}

	result, err := Compact(context.Background(), session, client, TriggerManual, "focus on step two")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if result.Summary != "handoff summary text" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if result.Trigger != TriggerManual {
		t.Errorf("Trigger = %q, want manual", result.Trigger)
	}

	msgs := session.GetMessages()
	if len(msgs) == 0 {
		t.Fatal("expected history to contain the tail message and the summary")
	}
	last := msgs[len(msgs)-1]
	if last.Content == "" {
		t.Fatal("expected the final message to carry the summary handoff text")
	}

	inTokens, outTokens := session.TotalTokens()
	if inTokens != 50 || outTokens != 20 {
		t.Errorf("TotalTokens() = (%d, %d), want (50, 20)", inTokens, outTokens)
	}
}

func TestAdapterMatchesCompactorSignature(t *testing.T) {
	session := agent.NewSession("sess-2", "gpt-4o", "")
	session.AddUserMessage("hello")
	client := &fakeClient{summary: "short summary"}

	var compactor agent.Compactor = Adapter
	summary, _, _, err := compactor(context.Background(), session, client, "auto", "")
	if err != nil {
		t.Fatalf("Adapter via Compactor: %v", err)
	}
	if summary != "short summary" {
		t.Errorf("summary = %q", summary)
	}
}
