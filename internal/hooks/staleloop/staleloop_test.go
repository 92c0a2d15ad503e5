package staleloop

import (
	"testing"
	"time"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
)

func TestDueMatchesCronSchedule(t *testing.T) {
	sweeper := New(gatewaystate.NewStore(), "*/30 * * * *", 12)
	onSchedule := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	offSchedule := time.Date(2026, 1, 1, 12, 31, 0, 0, time.UTC)

	if !sweeper.Due(onSchedule) {
		t.Error("expected Due at a matching minute")
	}
	if sweeper.Due(offSchedule) {
		t.Error("expected not Due off schedule")
	}
}

func TestDueFalseForInvalidExpression(t *testing.T) {
	sweeper := New(gatewaystate.NewStore(), "not a cron expr", 12)
	if sweeper.Due(time.Now()) {
		t.Error("expected an invalid cron expression to never be due")
	}
}

func TestSweepDeactivatesStaleLoop(t *testing.T) {
	dir := t.TempDir()
	store := gatewaystate.NewStore()
	old := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	if err := store.Save(dir, &gatewaystate.GatewayState{ActiveLoop: &gatewaystate.ActiveLoop{Active: true, SessionID: "s", StartedAt: old}}); err != nil {
		t.Fatal(err)
	}

	sweeper := New(store, "* * * * *", 12)
	changed, reason, err := sweeper.Sweep(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || reason != gatewaystate.ReasonStaleLoopDeactivated {
		t.Errorf("expected stale deactivation, got changed=%v reason=%v", changed, reason)
	}
}

func TestSweepAllCollectsPerDirectoryErrors(t *testing.T) {
	store := gatewaystate.NewStore()
	sweeper := New(store, "* * * * *", 12)

	errs := sweeper.SweepAll([]string{t.TempDir(), t.TempDir()})
	if len(errs) != 0 {
		t.Errorf("expected no errors sweeping empty directories, got %v", errs)
	}
}
