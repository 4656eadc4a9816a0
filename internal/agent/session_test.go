package agent

import "testing"

func TestSessionAddUserAndAssistantMessage(t *testing.T) {
	s := NewSession("sess-1", "gpt-4o", "be helpful")
	s.AddUserMessage("hello")
	s.AddAssistantMessage("hi there")

	msgs := s.GetMessages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("message 0 = %+v, want user/hello", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "hi there" {
		t.Errorf("message 1 = %+v, want assistant/hi there", msgs[1])
	}
}

func TestSessionClearKeepsSystemPrompt(t *testing.T) {
	s := NewSession("sess-1", "gpt-4o", "system text")
	s.AddUserMessage("one")
	s.AddAssistantMessage("two")
	s.Clear()

	if len(s.GetMessages()) != 0 {
		t.Fatalf("expected empty history after Clear, got %d messages", len(s.GetMessages()))
	}
	if s.SystemPrompt != "system text" {
		t.Errorf("SystemPrompt = %q, want unchanged", s.SystemPrompt)
	}
}

func TestSessionUpdateTokenUsageAccumulates(t *testing.T) {
	s := NewSession("sess-1", "gpt-4o", "")
	s.UpdateTokenUsage(10, 20)
	s.UpdateTokenUsage(5, 7)

	in, out := s.TotalTokens()
	if in != 15 || out != 27 {
		t.Errorf("TotalTokens() = (%d, %d), want (15, 27)", in, out)
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	s := NewSession("sess-2", "gpt-4o", "be terse")
	s.AddUserMessage("do a thing")
	s.AddAssistantMessage("done")
	s.UpdateTokenUsage(100, 50)

	snap := s.Snapshot()
	restored := RestoreSession(snap)

	if restored.ID != s.ID || restored.Model != s.Model || restored.SystemPrompt != s.SystemPrompt {
		t.Fatalf("restored session header mismatch: %+v", restored)
	}
	if len(restored.GetMessages()) != len(s.GetMessages()) {
		t.Fatalf("restored history length = %d, want %d", len(restored.GetMessages()), len(s.GetMessages()))
	}
	inR, outR := restored.TotalTokens()
	if inR != 100 || outR != 50 {
		t.Errorf("restored TotalTokens() = (%d, %d), want (100, 50)", inR, outR)
	}
}

func TestSessionReplaceWithSummaryKeepsTail(t *testing.T) {
	s := NewSession("sess-3", "gpt-4o", "")
	s.AddUserMessage("first")
	s.AddAssistantMessage("reply")
	s.AddUserMessage("second")

	s.ReplaceWithSummary("summary of the above", []string{"second"})

	msgs := s.GetMessages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after replace, want 2 (tail + summary)", len(msgs))
	}
	if msgs[0].Content != "second" {
		t.Errorf("tail message content = %q, want %q", msgs[0].Content, "second")
	}
	if msgs[1].Content != "summary of the above" {
		t.Errorf("summary message content = %q, want the summary text", msgs[1].Content)
	}
}
