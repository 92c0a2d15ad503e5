// Package providerretrybackoff implements provider-retry-backoff-guidance
// (advisory family): on session.error, computes a suggested retry
// delay — an explicit retry-after-ms hint if the provider embedded one,
// else exponential backoff via cenkalti/backoff/v4 capped at
// policy.Advisory.MaxRetryBackoffSeconds — and registers it as pending
// context. Non-retryable classifications (context overflow, auth errors)
// reset the backoff state and suppress guidance entirely: retrying won't
// help and would only restate the same failure.
package providerretrybackoff

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/providerretry"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "provider-retry-backoff"

type sessionBackoff struct {
	b *backoff.ExponentialBackOff
}

func New(policy *gatewayconfig.Policy, coll *collector.Collector) dispatch.Hook {
	maxSeconds := policy.Advisory.MaxRetryBackoffSeconds
	states := runtimemap.New[*sessionBackoff](0)
	return dispatch.Hook{ID: ID, Priority: 44, Handle: handler(maxSeconds, coll, states)}
}

func newBackoff(maxSeconds int) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = time.Duration(maxSeconds) * time.Second
	b.MaxElapsedTime = 0
	return b
}

func handler(maxSeconds int, coll *collector.Collector, states *runtimemap.Map[*sessionBackoff]) dispatch.HandlerFunc {
	maxDelay := time.Duration(maxSeconds) * time.Second
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventSessionError {
			return nil
		}
		payload, ok := hostapi.DecodeSessionError(event)
		if !ok {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		state := states.GetOrInit(sessionID, func() *sessionBackoff {
			return &sessionBackoff{b: newBackoff(maxSeconds)}
		})

		classification := providerretry.Classify(payload.Error.Message)
		if !classification.Retryable {
			state.b.Reset()
			return nil
		}

		var delay time.Duration
		if ms, hinted := providerretry.RetryAfterMs(payload.Error.Message); hinted {
			delay = time.Duration(ms) * time.Millisecond
		} else {
			delay = state.b.NextBackOff()
		}
		if delay > maxDelay {
			delay = maxDelay
		}

		message := fmt.Sprintf("[provider retry guidance: %s — retry in %s]", classification.Category, delay.Round(time.Millisecond))
		coll.Register(sessionID, ID, "retry-guidance", message, collector.PriorityNormal, map[string]any{
			"category": classification.Category,
			"delay_ms": delay.Milliseconds(),
		})
		return nil
	}
}
