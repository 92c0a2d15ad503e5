// Package continuation implements the continuation hook
// advisory family): on session.idle, drives the continuation loop state
// machine's re-prompt cycle via Machine.HandleIdle. It never rejects — a
// persistence failure is logged and swallowed, and
// the in-memory view simply re-reads on the next idle event.
package continuation

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
	"github.com/opencode-ai/opencode-gateway/internal/loop"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "continuation"

func New(policy *gatewayconfig.Policy, machine *loop.Machine) dispatch.Hook {
	opts := loop.IdleOptions{
		MaxIgnoredCompletionCycles: policy.Loop.MaxIgnoredCompletionCycles,
		BootstrapFromRuntime:      policy.Loop.BootstrapFromRuntime,
	}
	return dispatch.Hook{ID: ID, Priority: 30, Handle: handler(machine, opts)}
}

func handler(machine *loop.Machine, opts loop.IdleOptions) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventSessionIdle {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}
		idle, _ := hostapi.DecodeSessionIdle(event)

		if err := machine.HandleIdle(ctx, event.Directory, sessionID, idle.LastAssistantMessage, opts); err != nil {
			gatewaylog.Warn().Str("hook", ID).Err(err).Msg("continuation idle handling failed")
		}
		return nil
	}
}
