// Package sessionrecovery implements session-recovery (advisory
// family): on a recoverable session.error (anything
// providerretry.Classify marks retryable), re-prompts the host with a
// short continuation nudge, preserving the agent/model identity the
// errored turn was running under so the retry doesn't silently switch
// personas. Non-retryable errors (context overflow, auth) are left for the
// user to resolve — recovering from them automatically would just
// reproduce the same failure.
package sessionrecovery

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/providerretry"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "session-recovery"

const recoveryText = "The previous turn ended in a recoverable provider error. Please continue from where you left off."

func New(host hostapi.Host, sink *audit.Sink) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 50, Handle: handler(host, sink)}
}

func handler(host hostapi.Host, sink *audit.Sink) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventSessionError {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}
		payload, ok := hostapi.DecodeSessionError(event)
		if !ok {
			return nil
		}

		classification := providerretry.Classify(payload.Error.Message)
		if !classification.Retryable {
			return nil
		}

		body := hostapi.PromptBody{
			Parts: []hostapi.Part{{Type: "text", Text: recoveryText, Synthetic: true}},
			Agent: payload.Agent,
			Model: payload.Model,
		}
		if err := host.SessionPromptAsync(ctx, sessionID, body); err != nil {
			return nil
		}

		sink.Write(event.Directory, audit.Record{
			Hook:       ID,
			Stage:      "inject",
			EventType:  string(event.Type),
			ReasonCode: "session_recovery_reprompted",
			SessionID:  sessionID,
			Fields:     map[string]any{"category": classification.Category},
		})
		return nil
	}
}
