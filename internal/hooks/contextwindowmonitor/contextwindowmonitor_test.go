package contextwindowmonitor

import (
	"context"
	"strings"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

type fakeHost struct {
	tokens int
}

func (f fakeHost) SessionMessages(ctx context.Context, sessionID string) ([]hostapi.Message, error) {
	return []hostapi.Message{{ID: "1", Tokens: &hostapi.TokenUsage{Input: f.tokens}}}, nil
}
func (fakeHost) SessionPromptAsync(ctx context.Context, sessionID string, body hostapi.PromptBody) error {
	return nil
}
func (fakeHost) SessionSummarize(ctx context.Context, sessionID string) error { return nil }

func toolAfterEvent(sessionID string) *hostapi.Event {
	return &hostapi.Event{
		Type:           hostapi.EventToolExecuteAfter,
		Output:         []byte(`{"output":"tool result"}`),
		InputSessionID: sessionID,
	}
}

func TestAppendsMarkerWhenOverWarnFraction(t *testing.T) {
	policy := gatewayconfig.Default()
	policy.Advisory.ReminderCooldownToolCalls = 1
	policy.Advisory.MinTokenDeltaForReminder = 1
	host := fakeHost{tokens: int(float64(policy.Advisory.DefaultWindowTokens) * 0.8)}
	coll := collector.New()
	hook := New(policy, host, coll)

	ev := toolAfterEvent("s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := hostapi.DecodeToolAfter(ev)
	if !strings.Contains(out.Output, "context window") {
		t.Errorf("expected a context window marker in output, got %q", out.Output)
	}
}

func TestSkipsBelowWarnFraction(t *testing.T) {
	policy := gatewayconfig.Default()
	host := fakeHost{tokens: 10}
	coll := collector.New()
	hook := New(policy, host, coll)

	ev := toolAfterEvent("s1")
	original := string(ev.Output)
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Output) != original {
		t.Error("expected output unchanged below warn fraction")
	}
}

func TestRespectsCooldownBetweenReminders(t *testing.T) {
	policy := gatewayconfig.Default()
	policy.Advisory.ReminderCooldownToolCalls = 100
	policy.Advisory.MinTokenDeltaForReminder = 1000000
	host := fakeHost{tokens: int(float64(policy.Advisory.DefaultWindowTokens) * 0.9)}
	coll := collector.New()
	hook := New(policy, host, coll)

	first := toolAfterEvent("s1")
	if err := hook.Handle(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	firstOut, _ := hostapi.DecodeToolAfter(first)
	if !strings.Contains(firstOut.Output, "context window") {
		t.Fatal("expected first reminder to fire (state starts at zero deltas)")
	}

	second := toolAfterEvent("s1")
	if err := hook.Handle(context.Background(), second); err != nil {
		t.Fatal(err)
	}
	secondOut, _ := hostapi.DecodeToolAfter(second)
	if strings.Contains(secondOut.Output, "context window") {
		t.Error("expected cooldown to suppress a second immediate reminder")
	}
}

func TestIgnoresEventWithoutSessionID(t *testing.T) {
	policy := gatewayconfig.Default()
	hook := New(policy, fakeHost{tokens: 999999999}, collector.New())
	ev := toolAfterEvent("")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
