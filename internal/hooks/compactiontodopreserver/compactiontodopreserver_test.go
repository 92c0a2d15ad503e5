package compactiontodopreserver

import (
	"context"
	"strings"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

type fakeHost struct {
	prompts []hostapi.PromptBody
}

func (*fakeHost) SessionMessages(ctx context.Context, sessionID string) ([]hostapi.Message, error) {
	return nil, nil
}
func (f *fakeHost) SessionPromptAsync(ctx context.Context, sessionID string, body hostapi.PromptBody) error {
	f.prompts = append(f.prompts, body)
	return nil
}
func (*fakeHost) SessionSummarize(ctx context.Context, sessionID string) error { return nil }

func todoWriteEvent(sessionID string) *hostapi.Event {
	raw := []byte(`{"tool":"todowrite","args":{"todos":[{"content":"ship the feature","status":"in_progress"},{"content":"write tests","status":"pending"}]}}`)
	return &hostapi.Event{Type: hostapi.EventToolExecuteBefore, Input: raw, InputSessionID: sessionID}
}

func compactedEvent(sessionID string) *hostapi.Event {
	return &hostapi.Event{Type: hostapi.EventSessionCompacted, InputSessionID: sessionID}
}

func TestReinjectsLastTodoSnapshotAfterCompaction(t *testing.T) {
	host := &fakeHost{}
	hook := New(host, audit.New())
	ctx := context.Background()

	if err := hook.Handle(ctx, todoWriteEvent("s1")); err != nil {
		t.Fatal(err)
	}
	if err := hook.Handle(ctx, compactedEvent("s1")); err != nil {
		t.Fatal(err)
	}
	if len(host.prompts) != 1 {
		t.Fatalf("expected one re-prompt, got %d", len(host.prompts))
	}
	text := host.prompts[0].Parts[0].Text
	if !strings.Contains(text, "ship the feature") || !strings.Contains(text, "write tests") {
		t.Errorf("expected both todo items in re-prompt text, got %q", text)
	}
}

func TestNoReinjectionWithoutPriorSnapshot(t *testing.T) {
	host := &fakeHost{}
	hook := New(host, audit.New())

	if err := hook.Handle(context.Background(), compactedEvent("s1")); err != nil {
		t.Fatal(err)
	}
	if len(host.prompts) != 0 {
		t.Error("expected no re-prompt without a captured snapshot")
	}
}
