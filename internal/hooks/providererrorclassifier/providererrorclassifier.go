// Package providererrorclassifier implements provider-error-classifier
// (advisory family): on session.error, classifies the provider's
// error message via providerretry.Classify and registers the verdict as a
// low-priority pending-context entry so the next user-visible message
// surfaces what kind of failure just occurred. Never rejects; it informs,
// it does not gate.
package providererrorclassifier

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/providerretry"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "provider-error-classifier"

func New(coll *collector.Collector) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 43, Handle: handler(coll)}
}

func handler(coll *collector.Collector) dispatch.HandlerFunc {
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

		classification := providerretry.Classify(payload.Error.Message)
		message := fmt.Sprintf("[provider error: %s]", classification.Category)
		coll.Register(sessionID, ID, "error-classification", message, collector.PriorityLow, map[string]any{
			"category":  classification.Category,
			"retryable": classification.Retryable,
		})
		return nil
	}
}
