package contextinjector

import (
	"context"
	"strings"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

func chatEvent(sessionID, text string) *hostapi.Event {
	raw := hostapi.EncodeChatMessage(hostapi.ChatMessageOutput{Parts: []hostapi.Part{{Type: "text", Text: text}}})
	return &hostapi.Event{Type: hostapi.EventChatMessage, Output: raw, InputSessionID: sessionID}
}

func TestInjectsAndTruncatesOnChatMessage(t *testing.T) {
	policy := gatewayconfig.Default()
	policy.Context.MaxChars = 120
	coll := collector.New()
	coll.Register("s", "test", "large", strings.Repeat("X", 220), collector.PriorityHigh, nil)
	hook := New(policy, coll, audit.New())

	ev := chatEvent("s", "Original prompt")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	out, _ := hostapi.DecodeChatMessage(ev)
	want := strings.Repeat("X", 120-len("Content truncated due to context window limit")) + "Content truncated due to context window limit" + "\n\n---\n\nOriginal prompt"
	if out.Parts[0].Text != want {
		t.Errorf("got %q", out.Parts[0].Text)
	}
	if coll.HasPending("s") {
		t.Error("expected pending bucket consumed")
	}
}

func TestRequeuesWhenNoTextPart(t *testing.T) {
	policy := gatewayconfig.Default()
	coll := collector.New()
	coll.Register("s", "test", "a", "pending content", collector.PriorityNormal, nil)
	hook := New(policy, coll, audit.New())

	raw := hostapi.EncodeChatMessage(hostapi.ChatMessageOutput{Parts: []hostapi.Part{{Type: "tool", Text: "x"}}})
	ev := &hostapi.Event{Type: hostapi.EventChatMessage, Output: raw, InputSessionID: "s"}
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	result := coll.GetPending("s")
	if !result.HasContent || result.Entries[0].Source != "context-injector-requeue" {
		t.Errorf("expected requeue entry, got %+v", result)
	}
}

func transformEvent(sessionID, role, text string) *hostapi.Event {
	in := hostapi.TransformInput{Messages: []hostapi.TransformMessage{
		{Info: hostapi.MessageInfo{Role: role, SessionID: sessionID}, Parts: []hostapi.Part{{Type: "text", Text: text}}},
	}}
	raw := hostapi.EncodeTransform(in)
	return &hostapi.Event{Type: hostapi.EventChatMessagesTransform, Input: raw, Output: raw, TransformLastUserSessionID: sessionID}
}

func TestInsertsSyntheticPartOnTransform(t *testing.T) {
	policy := gatewayconfig.Default()
	coll := collector.New()
	coll.Register("s", "test", "a", "reminder text", collector.PriorityNormal, nil)
	hook := New(policy, coll, audit.New())

	ev := transformEvent("s", "user", "hello")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	out, _ := hostapi.DecodeTransform(ev)
	if len(out.Messages[0].Parts) != 2 || !out.Messages[0].Parts[0].Synthetic {
		t.Fatalf("expected synthetic part inserted, got %+v", out.Messages[0].Parts)
	}
	if coll.HasPending("s") {
		t.Error("expected pending bucket consumed after transform injection")
	}
}

func TestTransformNoUserMessageDoesNotConsume(t *testing.T) {
	policy := gatewayconfig.Default()
	coll := collector.New()
	coll.Register("s", "test", "a", "reminder text", collector.PriorityNormal, nil)
	hook := New(policy, coll, audit.New())

	ev := transformEvent("s", "assistant", "hello")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if !coll.HasPending("s") {
		t.Error("expected pending bucket preserved when no user message is found")
	}
}

func TestSessionDeletedClearsPending(t *testing.T) {
	policy := gatewayconfig.Default()
	coll := collector.New()
	coll.Register("s", "test", "a", "content", collector.PriorityNormal, nil)
	hook := New(policy, coll, audit.New())

	ev := &hostapi.Event{Type: hostapi.EventSessionDeleted, InputSessionID: "s"}
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if coll.HasPending("s") {
		t.Error("expected session.deleted to clear pending bucket")
	}
}
