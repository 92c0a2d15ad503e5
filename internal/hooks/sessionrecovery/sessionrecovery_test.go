package sessionrecovery

import (
	"context"
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

func sessionErrorEvent(sessionID, message, agent, model string) *hostapi.Event {
	raw := []byte(`{"error":{"type":"provider_error","message":"` + message + `"},"agent":"` + agent + `","model":"` + model + `"}`)
	return &hostapi.Event{Type: hostapi.EventSessionError, Input: raw, InputSessionID: sessionID}
}

func TestRepromptsPreservingIdentityOnRetryableError(t *testing.T) {
	host := &fakeHost{}
	hook := New(host, audit.New())

	ev := sessionErrorEvent("s1", "503 service unavailable", "build", "claude-opus")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(host.prompts) != 1 {
		t.Fatalf("expected one re-prompt, got %d", len(host.prompts))
	}
	if host.prompts[0].Agent != "build" || host.prompts[0].Model != "claude-opus" {
		t.Errorf("expected preserved agent/model identity, got %+v", host.prompts[0])
	}
}

func TestNoRepromptOnNonRetryableError(t *testing.T) {
	host := &fakeHost{}
	hook := New(host, audit.New())

	ev := sessionErrorEvent("s1", "maximum context length exceeded", "build", "claude-opus")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(host.prompts) != 0 {
		t.Error("expected no re-prompt for a non-retryable error")
	}
}
