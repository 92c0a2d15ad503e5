// Package todoreadcadencereminder implements todoread-cadence-reminder
// (advisory family): counts tool calls since the session last
// invoked the todoread tool, and once that count crosses
// policy.Advisory.ReminderCooldownToolCalls, registers a reminder to
// re-read the task list so a long tool-call streak doesn't silently drift
// from the tracked plan.
package todoreadcadencereminder

import (
	"context"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "todoread-cadence-reminder"

const reminderMessage = "[todo cadence: it has been a while since the task list was last read — re-run todoread to confirm tracked items are still accurate]"

func New(policy *gatewayconfig.Policy, coll *collector.Collector) dispatch.Hook {
	cooldown := policy.Advisory.ReminderCooldownToolCalls
	counters := runtimemap.New[*int](0)
	return dispatch.Hook{ID: ID, Priority: 48, Handle: handler(cooldown, coll, counters)}
}

func handler(cooldown int, coll *collector.Collector, counters *runtimemap.Map[*int]) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		count := counters.GetOrInit(sessionID, func() *int { n := 0; return &n })
		if strings.EqualFold(in.Tool, "todoread") {
			*count = 0
			return nil
		}

		*count++
		if *count < cooldown {
			return nil
		}

		coll.Register(sessionID, ID, "todo-cadence", reminderMessage, collector.PriorityLow, map[string]any{"tool_calls_since_todoread": *count})
		*count = 0
		return nil
	}
}
