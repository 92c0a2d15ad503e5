package gatewaystate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsNil(t *testing.T) {
	s := NewStore()
	st, err := s.Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil state, got %+v", st)
	}
}

func TestLoadCorruptReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	st, err := s.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil for unparseable file, got %+v", st)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("corrupt file should not be auto-deleted: %v", err)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	want := &GatewayState{
		ActiveLoop: &ActiveLoop{
			Active:         true,
			SessionID:      "sess-1",
			Objective:      "do the thing",
			CompletionMode: CompletionModePromise,
			Iteration:      1,
			StartedAt:      time.Now().UTC().Format(time.RFC3339),
		},
		Source: "start",
	}
	if err := s.Save(dir, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.ActiveLoop == nil {
		t.Fatal("expected loaded state with active loop")
	}
	if got.ActiveLoop.SessionID != "sess-1" || got.ActiveLoop.Objective != "do the thing" {
		t.Errorf("round-trip mismatch: %+v", got.ActiveLoop)
	}

	if _, err := os.Stat(filepath.Join(dir, relPath+".lock")); !os.IsNotExist(err) {
		t.Errorf("lock sidecar should be removed after Save, stat err=%v", err)
	}
}

func TestCleanupOrphanStateMissing(t *testing.T) {
	s := NewStore()
	changed, reason, err := s.CleanupOrphan(t.TempDir(), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed || reason != ReasonStateMissing {
		t.Errorf("expected (false, state_missing), got (%v, %s)", changed, reason)
	}
}

func TestCleanupOrphanStaleDeactivates(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	old := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	st := &GatewayState{ActiveLoop: &ActiveLoop{Active: true, SessionID: "s", StartedAt: old}}
	if err := s.Save(dir, st); err != nil {
		t.Fatal(err)
	}

	changed, reason, err := s.CleanupOrphan(dir, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed || reason != ReasonStaleLoopDeactivated {
		t.Errorf("expected (true, stale_loop_deactivated), got (%v, %s)", changed, reason)
	}

	got, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.ActiveLoop.Active {
		t.Error("expected loop to be deactivated")
	}
}

func TestCleanupOrphanWithinAgeLimit(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	recent := time.Now().Add(-1 * time.Hour).UTC().Format(time.RFC3339)
	st := &GatewayState{ActiveLoop: &ActiveLoop{Active: true, SessionID: "s", StartedAt: recent}}
	if err := s.Save(dir, st); err != nil {
		t.Fatal(err)
	}

	changed, reason, err := s.CleanupOrphan(dir, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed || reason != ReasonWithinAgeLimit {
		t.Errorf("expected (false, within_age_limit), got (%v, %s)", changed, reason)
	}
}
