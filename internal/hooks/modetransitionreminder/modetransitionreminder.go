// Package modetransitionreminder implements mode-transition-reminder (spec
// §4.8 advisory family): whenever a chat message opens with a recognized
// agent-mode command ("/plan", "/build", "/code") that differs from the
// last mode recorded for the session, registers a reminder to confirm the
// task list and plan are consistent with the new mode. Never rejects.
package modetransitionreminder

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/modecmd"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "mode-transition-reminder"

func New(coll *collector.Collector) dispatch.Hook {
	lastMode := runtimemap.New[string](0)
	return dispatch.Hook{ID: ID, Priority: 47, Handle: handler(coll, lastMode)}
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

		previous, hadPrevious := lastMode.Get(sessionID)
		lastMode.Set(sessionID, mode)
		if !hadPrevious || previous == mode {
			return nil
		}

		message := fmt.Sprintf("[mode reminder: switched from %s to %s — confirm the task list and plan reflect the new mode before proceeding]", previous, mode)
		coll.Register(sessionID, ID, "mode-transition", message, collector.PriorityNormal, map[string]any{"from": previous, "to": mode})
		return nil
	}
}
