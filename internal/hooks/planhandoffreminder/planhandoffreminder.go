// Package planhandoffreminder implements plan-handoff-reminder
// advisory family): the specific mode transition out of "/plan" into any
// other mode is a higher-stakes moment than a generic mode switch (spec
// §4.8's mode-transition-reminder covers the general case) — it means
// implementation is about to start — so this hook fires a stronger,
// one-time-per-transition reminder to capture a written plan summary
// before the session leaves planning behind.
package planhandoffreminder

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/modecmd"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "plan-handoff-reminder"

const handoffMessage = "[plan handoff: leaving plan mode — write down the agreed plan and done criteria before starting implementation, so context surviving a compaction or restart doesn't lose them]"

func New(coll *collector.Collector) dispatch.Hook {
	lastMode := runtimemap.New[string](0)
	return dispatch.Hook{ID: ID, Priority: 46, Handle: handler(coll, lastMode)}
}

func handler(coll *collector.Collector, lastMode *runtimemap.Map[string]) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventChatMessage {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}
		out, ok := hostapi.DecodeChatMessage(event)
		if !ok {
			return nil
		}
		mode, ok := modecmd.FromChatMessage(out)
		if !ok {
			return nil
		}

		previous, _ := lastMode.Get(sessionID)
		lastMode.Set(sessionID, mode)
		if previous != "plan" || mode == "plan" {
			return nil
		}

		coll.Register(sessionID, ID, "plan-handoff", handoffMessage, collector.PriorityHigh, map[string]any{"to": mode})
		return nil
	}
}
