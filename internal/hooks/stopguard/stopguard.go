// Package stopguard implements the `stopGuard.forceStop` mechanism referenced
// by the process-pressure watchdog: an immediate, best-effort
// deactivation of a session's continuation loop, independent of the normal
// stop-continuation-guard suppression-marker path ("no signaling
// channel beyond the persisted loop record" applies there; forceStop is the
// emergency counterpart invoked from inside another hook's handler rather
// than from an explicit stop command).
package stopguard

import (
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
)

// Guard exposes ForceStop over a shared state Store.
type Guard struct {
	store *gatewaystate.Store
}

func New(store *gatewaystate.Store) *Guard {
	return &Guard{store: store}
}

// ForceStop deactivates directory's ActiveLoop if it belongs to sessionID,
// recording reason as GatewayState.Source. It is a no-op if no loop is
// active for that session. Errors are returned for the caller to decide
// whether to swallow; process-pressure treats a failure here as
// non-fatal to the tool-execute event it is riding on.
func (g *Guard) ForceStop(directory, sessionID, reason string) error {
	state, err := g.store.Load(directory)
	if err != nil {
		return err
	}
	if state == nil {
		state = &gatewaystate.GatewayState{}
	}
	if state.ActiveLoop != nil && state.ActiveLoop.SessionID == sessionID {
		state.ActiveLoop.Active = false
	}
	state.Source = reason
	return g.store.Save(directory, state)
}
