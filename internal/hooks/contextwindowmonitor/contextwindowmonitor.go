// Package contextwindowmonitor implements context-window-monitor
// advisory family): estimates token usage from the host's own message
// record (no re-tokenizing) and, once usage crosses
// policy.Advisory.WindowWarnFraction of the effective window, surfaces a
// reminder subject to a dual cooldown (tool-call count AND token delta).
// Never rejects; a host-API failure is swallowed, matching the
// category 2.
package contextwindowmonitor

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/windowusage"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "context-window-monitor"

// reminderState tracks the dual cooldown per session: after the first
// reminder, a subsequent one fires only once both the tool-call count AND
// the token delta since the last reminder clear their thresholds.
type reminderState struct {
	fired                  bool
	toolCallsSinceReminder int
	lastReminderTokens     int
}

func New(policy *gatewayconfig.Policy, host hostapi.Host, coll *collector.Collector) dispatch.Hook {
	adv := policy.Advisory
	states := runtimemap.New[*reminderState](0)
	return dispatch.Hook{ID: ID, Priority: 40, Handle: handler(host, coll, states, adv)}
}

func handler(host hostapi.Host, coll *collector.Collector, states *runtimemap.Map[*reminderState], adv gatewayconfig.AdvisoryPolicy) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteAfter {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		state := states.GetOrInit(sessionID, func() *reminderState { return &reminderState{} })
		state.toolCallsSinceReminder++

		tokens, ok := windowusage.LatestTokens(ctx, host, sessionID)
		if !ok {
			return nil
		}

		limit := windowusage.EffectiveWindow(adv)
		fraction := float64(tokens) / float64(limit)
		if fraction < adv.WindowWarnFraction {
			return nil
		}

		delta := tokens - state.lastReminderTokens
		if delta < 0 {
			delta = -delta
		}
		if state.fired && state.toolCallsSinceReminder < adv.ReminderCooldownToolCalls && delta < adv.MinTokenDeltaForReminder {
			return nil
		}

		message := reminderText(fraction, tokens, limit, adv.GuardVerbosity)
		applyReminder(event, coll, sessionID, message, adv.GuardMarkerMode)

		state.fired = true
		state.toolCallsSinceReminder = 0
		state.lastReminderTokens = tokens
		return nil
	}
}

func reminderText(fraction float64, tokens, limit int, verbosity gatewayconfig.GuardVerbosity) string {
	switch verbosity {
	case gatewayconfig.GuardVerbosityMinimal:
		return "[context window: high usage]"
	case gatewayconfig.GuardVerbosityVerbose:
		return fmt.Sprintf("[context window: %d/%d tokens used (%.0f%%) — consider summarizing or wrapping up soon]", tokens, limit, fraction*100)
	default:
		return fmt.Sprintf("[context window: %.0f%% used]", fraction*100)
	}
}

// applyReminder surfaces message per guardMarkerMode: "marker" appends it to
// the tool output directly (visible immediately), "status" registers a
// collector entry (surfaced on the next chat message instead), "both" does
// both.
func applyReminder(event *hostapi.Event, coll *collector.Collector, sessionID, message string, mode gatewayconfig.GuardMarkerMode) {
	if mode == gatewayconfig.GuardMarkerModeMarker || mode == gatewayconfig.GuardMarkerModeBoth {
		if out, ok := hostapi.DecodeToolAfter(event); ok {
			out.Output = out.Output + "\n" + message
			event.Output = hostapi.EncodeToolAfter(out)
		}
	}
	if mode == gatewayconfig.GuardMarkerModeStatus || mode == gatewayconfig.GuardMarkerModeBoth {
		coll.Register(sessionID, ID, "window-reminder", message, collector.PriorityLow, nil)
	}
}
