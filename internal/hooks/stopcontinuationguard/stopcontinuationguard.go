// Package stopcontinuationguard implements stop-continuation-guard (spec
// §9 design note): runs ahead of continuation in dispatch order so an
// explicit autopilot stop takes effect immediately, suppressing any
// session.idle-triggered bootstrap-from-runtime re-activation until the
// next chat.message for that session. Per the design note, no signaling
// channel beyond the persisted loop record is needed: the guard reads and
// clears a marker it writes into GatewayState.Source itself.
package stopcontinuationguard

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "stop-continuation-guard"

// suppressionMarker is the GatewayState.Source value written by the
// autopilot-stop command and read here; it is the same string the
// autopilotloop hook passes to Machine.Stop on an explicit /autopilot stop.
const suppressionMarker = "autopilot_stop_command"

func New(store *gatewaystate.Store) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 5, Handle: handler(store)}
}

func handler(store *gatewaystate.Store) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		switch event.Type {
		case hostapi.EventChatMessage:
			return clearSuppression(store, event.Directory)
		case hostapi.EventSessionIdle:
			return checkSuppression(store, event)
		default:
			return nil
		}
	}
}

func checkSuppression(store *gatewaystate.Store, event *hostapi.Event) error {
	state, err := store.Load(event.Directory)
	if err != nil || state == nil || state.ActiveLoop == nil {
		return nil
	}
	if state.Source != suppressionMarker {
		return nil
	}
	sessionID := event.ResolveSessionID()
	if sessionID == "" || sessionID != state.ActiveLoop.SessionID {
		return nil
	}
	return hookerr.Rejectf(ID, "continuation_suppressed_after_stop", "continuation suppressed for session %q until its next chat message", sessionID)
}

func clearSuppression(store *gatewaystate.Store, directory string) error {
	state, err := store.Load(directory)
	if err != nil || state == nil || state.Source != suppressionMarker {
		return nil
	}
	state.Source = "chat_message_cleared_stop_suppression"
	return store.Save(directory, state)
}
