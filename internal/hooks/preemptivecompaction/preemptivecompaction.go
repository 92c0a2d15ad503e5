// Package preemptivecompaction implements preemptive-compaction
// advisory family): once token usage crosses
// policy.Advisory.WindowCompactFraction of the effective window, calls the
// host's session.summarize rather than merely reminding (context-window-
// monitor's job at the lower WindowWarnFraction threshold). Summarization
// is itself rate-limited per session so a sustained high-usage streak
// doesn't re-trigger it on every tool call.
package preemptivecompaction

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/windowusage"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "preemptive-compaction"

type compactionState struct {
	toolCallsSinceCompaction int
	lastCompactionTokens     int
	compacted                bool
}

func New(policy *gatewayconfig.Policy, host hostapi.Host, sink *audit.Sink) dispatch.Hook {
	adv := policy.Advisory
	states := runtimemap.New[*compactionState](0)
	return dispatch.Hook{ID: ID, Priority: 41, Handle: handler(host, sink, states, adv)}
}

func handler(host hostapi.Host, sink *audit.Sink, states *runtimemap.Map[*compactionState], adv gatewayconfig.AdvisoryPolicy) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteAfter {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		state := states.GetOrInit(sessionID, func() *compactionState { return &compactionState{} })
		state.toolCallsSinceCompaction++

		tokens, ok := windowusage.LatestTokens(ctx, host, sessionID)
		if !ok {
			return nil
		}

		limit := windowusage.EffectiveWindow(adv)
		fraction := float64(tokens) / float64(limit)
		if fraction < adv.WindowCompactFraction {
			return nil
		}

		delta := tokens - state.lastCompactionTokens
		if delta < 0 {
			delta = -delta
		}
		if state.compacted && state.toolCallsSinceCompaction < adv.ReminderCooldownToolCalls && delta < adv.MinTokenDeltaForReminder {
			return nil
		}

		if err := host.SessionSummarize(ctx, sessionID); err != nil {
			return nil
		}

		sink.Write(event.Directory, audit.Record{
			Hook:       ID,
			Stage:      "dispatch",
			EventType:  string(event.Type),
			ReasonCode: "preemptive_compaction_triggered",
			SessionID:  sessionID,
			Fields: map[string]any{
				"tokens": tokens,
				"limit":  limit,
			},
		})

		state.compacted = true
		state.toolCallsSinceCompaction = 0
		state.lastCompactionTokens = tokens
		return nil
	}
}
