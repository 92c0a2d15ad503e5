// Package staleloop implements the standalone stale-loop sweep (spec
// §4.2's "orphan expiry" and SPEC_FULL.md's domain-stack wiring): unlike
// every other hook in this tree, it is not dispatched on a host lifecycle
// event — it runs on its own cron schedule (policy.Loop.StaleLoopSweepCron,
// parsed with github.com/adhocore/gronx) and deactivates any continuation
// loop whose startedAt age exceeds policy.Loop.StaleLoopMaxAgeHours. The
// actual age check and state mutation is gatewaystate.Store.CleanupOrphan;
// this package only adds the schedule and the fan-out across tracked
// directories.
package staleloop

import (
	"time"

	"github.com/adhocore/gronx"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
)

// Sweeper periodically deactivates stale continuation loops.
type Sweeper struct {
	store       *gatewaystate.Store
	expr        string
	maxAgeHours float64
	gron        gronx.Gronx
}

func New(store *gatewaystate.Store, cronExpr string, maxAgeHours float64) *Sweeper {
	return &Sweeper{store: store, expr: cronExpr, maxAgeHours: maxAgeHours, gron: gronx.New()}
}

// Due reports whether the sweep schedule is due at t, to the minute, per
// gronx's cron-matching semantics. An invalid cron expression is never
// due, rather than erroring the caller's driver loop.
func (s *Sweeper) Due(t time.Time) bool {
	due, err := s.gron.IsDue(s.expr, t)
	return err == nil && due
}

// Sweep deactivates directory's ActiveLoop if its age exceeds
// maxAgeHours.
func (s *Sweeper) Sweep(directory string) (bool, gatewaystate.CleanupReason, error) {
	return s.store.CleanupOrphan(directory, s.maxAgeHours)
}

// SweepAll runs Sweep across every tracked directory. A failure sweeping
// one directory does not stop the others; failures are collected by
// directory for the caller to log.
func (s *Sweeper) SweepAll(directories []string) map[string]error {
	errs := make(map[string]error)
	for _, dir := range directories {
		if _, _, err := s.Sweep(dir); err != nil {
			errs[dir] = err
		}
	}
	return errs
}
