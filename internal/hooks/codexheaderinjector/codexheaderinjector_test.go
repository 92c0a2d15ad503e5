package codexheaderinjector

import (
	"context"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

type fakeHost struct {
	modelID string
}

func (f fakeHost) SessionMessages(ctx context.Context, sessionID string) ([]hostapi.Message, error) {
	return []hostapi.Message{{ID: "1", ModelID: f.modelID}}, nil
}
func (fakeHost) SessionPromptAsync(ctx context.Context, sessionID string, body hostapi.PromptBody) error {
	return nil
}
func (fakeHost) SessionSummarize(ctx context.Context, sessionID string) error { return nil }

func transformEvent(sessionID string) *hostapi.Event {
	in := hostapi.TransformInput{Messages: []hostapi.TransformMessage{
		{Info: hostapi.MessageInfo{Role: "user", SessionID: sessionID}, Parts: []hostapi.Part{{Type: "text", Text: "hello"}}},
	}}
	raw := hostapi.EncodeTransform(in)
	return &hostapi.Event{Type: hostapi.EventChatMessagesTransform, Input: raw, Output: raw, TransformLastUserSessionID: sessionID}
}

func TestInjectsHeaderOnceForCodexModel(t *testing.T) {
	policy := gatewayconfig.Default()
	host := fakeHost{modelID: "gpt-5-codex"}
	hook := New(policy, host)

	ev := transformEvent("s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	out, ok := hostapi.DecodeTransform(ev)
	if !ok || len(out.Messages[0].Parts) != 2 {
		t.Fatalf("expected header part prepended, got %+v", out)
	}
	if !out.Messages[0].Parts[0].Synthetic {
		t.Error("expected injected header part to be marked synthetic")
	}

	second := transformEvent("s1")
	if err := hook.Handle(context.Background(), second); err != nil {
		t.Fatal(err)
	}
	secondOut, _ := hostapi.DecodeTransform(second)
	if len(secondOut.Messages[0].Parts) != 1 {
		t.Error("expected no second injection for the same session")
	}
}

func TestSkipsNonCodexModel(t *testing.T) {
	policy := gatewayconfig.Default()
	host := fakeHost{modelID: "claude-opus"}
	hook := New(policy, host)

	ev := transformEvent("s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	out, _ := hostapi.DecodeTransform(ev)
	if len(out.Messages[0].Parts) != 1 {
		t.Error("expected no header injected for a non-codex model")
	}
}
