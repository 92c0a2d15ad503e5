// Package processpressure implements global-process-pressure
// advisory family): samples system-wide process/memory counters on
// tool.execute.after, classifies them into WARNING→ARMED→CRITICAL tiers
// against policy.Advisory's RSS thresholds, and on CRITICAL appends a
// warning to the tool output and — when autoPauseOnCritical is set —
// force-stops the session's continuation loop via stopguard.
//
// Sampling is paced with a token-bucket limiter (one sample per
// processPressureSampleIntervalSeconds) so a burst of tool calls doesn't
// re-read system counters more than the configured cadence, following the
// same golang.org/x/time/rate pattern OpenCode's outbound HTTP client
// uses to pace retries.
package processpressure

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/stopguard"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "global-process-pressure"

// Sample is one system-counter reading.
type Sample struct {
	ContinueProcessCount int
	OpencodeProcessCount int
	MaxRssMb             int
}

// Sampler abstracts the system-counter source so tests can supply literal
// readings without touching the real process table.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// Tier is the escalation level a Sample maps to.
type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierArmed
	TierCritical
)

func classify(sample Sample, adv gatewayconfig.AdvisoryPolicy) Tier {
	switch {
	case sample.MaxRssMb >= adv.CriticalMaxRssMb:
		return TierCritical
	case sample.MaxRssMb >= adv.ArmedMaxRssMb:
		return TierArmed
	case sample.MaxRssMb >= adv.WarningMaxRssMb:
		return TierWarning
	default:
		return TierNormal
	}
}

type sessionState struct {
	criticalEventsInWindow int
}

func New(policy *gatewayconfig.Policy, sampler Sampler, guard *stopguard.Guard, sink *audit.Sink, coll *collector.Collector) dispatch.Hook {
	adv := policy.Advisory
	interval := time.Duration(adv.ProcessPressureSampleIntervalSeconds * float64(time.Second))
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	states := runtimemap.New[*sessionState](0)
	return dispatch.Hook{ID: ID, Priority: 42, Handle: handler(adv, sampler, limiter, guard, sink, coll, states)}
}

func handler(adv gatewayconfig.AdvisoryPolicy, sampler Sampler, limiter *rate.Limiter, guard *stopguard.Guard, sink *audit.Sink, coll *collector.Collector, states *runtimemap.Map[*sessionState]) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteAfter {
			return nil
		}
		if !limiter.Allow() {
			return nil
		}

		sample, err := sampler.Sample(ctx)
		if err != nil {
			return nil
		}

		tier := classify(sample, adv)
		sessionID := event.ResolveSessionID()
		state := states.GetOrInit(sessionID, func() *sessionState { return &sessionState{} })

		switch tier {
		case TierCritical:
			state.criticalEventsInWindow++
			appendWarning(event, "Critical memory pressure detected; pausing further autonomous tool calls.")
			sink.Write(event.Directory, audit.Record{
				Hook:       ID,
				Stage:      "dispatch",
				EventType:  string(event.Type),
				ReasonCode: "global_process_pressure_critical_appended",
				SessionID:  sessionID,
				Fields: map[string]any{
					"critical_events_in_window": state.criticalEventsInWindow,
					"max_rss_mb":                sample.MaxRssMb,
				},
			})
			if adv.AutoPauseOnCritical && sessionID != "" {
				guard.ForceStop(event.Directory, sessionID, "continuation_stopped_critical_memory_pressure")
			}
		case TierArmed:
			message := reminderText(tier, sample, adv.GuardVerbosity)
			applyReminder(event, coll, sessionID, message, adv.GuardMarkerMode)
		case TierWarning:
			state.criticalEventsInWindow = 0
			message := reminderText(tier, sample, adv.GuardVerbosity)
			applyReminder(event, coll, sessionID, message, adv.GuardMarkerMode)
		default:
			state.criticalEventsInWindow = 0
		}
		return nil
	}
}

func reminderText(tier Tier, sample Sample, verbosity gatewayconfig.GuardVerbosity) string {
	label := "elevated"
	if tier == TierArmed {
		label = "high"
	}
	if verbosity == gatewayconfig.GuardVerbosityVerbose {
		return fmt.Sprintf("[process pressure: %s — rss=%dMB continueProcesses=%d opencodeProcesses=%d]", label, sample.MaxRssMb, sample.ContinueProcessCount, sample.OpencodeProcessCount)
	}
	return fmt.Sprintf("[process pressure: %s]", label)
}

func appendWarning(event *hostapi.Event, message string) {
	out, ok := hostapi.DecodeToolAfter(event)
	if !ok {
		return
	}
	out.Output = out.Output + "\n" + message
	event.Output = hostapi.EncodeToolAfter(out)
}

func applyReminder(event *hostapi.Event, coll *collector.Collector, sessionID, message string, mode gatewayconfig.GuardMarkerMode) {
	if mode == gatewayconfig.GuardMarkerModeMarker || mode == gatewayconfig.GuardMarkerModeBoth {
		appendWarning(event, message)
	}
	if mode == gatewayconfig.GuardMarkerModeStatus || mode == gatewayconfig.GuardMarkerModeBoth {
		coll.Register(sessionID, ID, "process-pressure", message, collector.PriorityNormal, nil)
	}
}
