package loop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

type fakeHost struct {
	prompts []hostapi.PromptBody
}

func (f *fakeHost) SessionMessages(ctx context.Context, sessionID string) ([]hostapi.Message, error) {
	return nil, nil
}

func (f *fakeHost) SessionPromptAsync(ctx context.Context, sessionID string, body hostapi.PromptBody) error {
	f.prompts = append(f.prompts, body)
	return nil
}

func (f *fakeHost) SessionSummarize(ctx context.Context, sessionID string) error { return nil }

func newMachine(t *testing.T) (*Machine, *fakeHost, string) {
	t.Helper()
	dir := t.TempDir()
	host := &fakeHost{}
	m := New(gatewaystate.NewStore(), collector.New(), host)
	return m, host, dir
}

func TestStartCreatesActiveLoop(t *testing.T) {
	m, _, dir := newMachine(t)
	err := m.Start(dir, "s1", "finish the checklist", []string{"a", "b"}, gatewaystate.CompletionModePromise, "DONE", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := m.Store.Load(dir)
	if err != nil || state == nil || state.ActiveLoop == nil {
		t.Fatalf("expected persisted active loop, got state=%+v err=%v", state, err)
	}
	if !state.ActiveLoop.Active || state.ActiveLoop.Iteration != 1 {
		t.Errorf("unexpected loop state: %+v", state.ActiveLoop)
	}
}

func TestHandleIdleAdvancesAndPrompts(t *testing.T) {
	m, host, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", []string{"x"}, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}

	err := m.HandleIdle(context.Background(), dir, "s1", "still working, no promise yet", IdleOptions{MaxIgnoredCompletionCycles: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(host.prompts) != 1 {
		t.Fatalf("expected exactly one prompt, got %d", len(host.prompts))
	}
	if !strings.Contains(host.prompts[0].Parts[0].Text, "Do not ask the user for checklist items") {
		t.Errorf("expected continuation instruction in prompt, got %q", host.prompts[0].Parts[0].Text)
	}

	state, _ := m.Store.Load(dir)
	if state.ActiveLoop.Iteration != 2 {
		t.Errorf("expected iteration 2, got %d", state.ActiveLoop.Iteration)
	}
}

func TestHandleIdleIgnoresOtherSession(t *testing.T) {
	m, host, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", nil, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}

	if err := m.HandleIdle(context.Background(), dir, "s2", "anything", IdleOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.prompts) != 0 {
		t.Error("expected no prompt for non-matching session")
	}
}

func TestHandleIdleCompletesOnPromiseWithNoRuntimeFile(t *testing.T) {
	m, host, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", nil, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}

	err := m.HandleIdle(context.Background(), dir, "s1", "all finished <promise>DONE</promise>", IdleOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.prompts) != 0 {
		t.Error("expected no further prompt once terminal")
	}

	state, _ := m.Store.Load(dir)
	if state.ActiveLoop.Active {
		t.Error("expected loop deactivated on completion")
	}
	if state.Source != "loop_completed" {
		t.Errorf("expected source loop_completed, got %q", state.Source)
	}
}

func TestHandleIdleRuntimeIncompleteIgnoresPromiseUntilThreshold(t *testing.T) {
	m, host, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", nil, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}

	runtimePath := filepath.Join(dir, "rt.json")
	writeRuntime(t, runtimePath, `{"status":"running","blockers":["completion_promise_missing"]}`)
	t.Setenv("MY_OPENCODE_AUTOPILOT_RUNTIME_PATH", runtimePath)

	opts := IdleOptions{MaxIgnoredCompletionCycles: 2}

	// First idle: promise observed but runtime says incomplete -> ignored, advances.
	if err := m.HandleIdle(context.Background(), dir, "s1", "<promise>DONE</promise>", opts); err != nil {
		t.Fatal(err)
	}
	state, _ := m.Store.Load(dir)
	if !state.ActiveLoop.Active || state.ActiveLoop.IgnoredCompletionCycles != 1 || state.ActiveLoop.Iteration != 2 {
		t.Fatalf("unexpected state after first ignored cycle: %+v", state.ActiveLoop)
	}
	if len(host.prompts) != 1 {
		t.Fatalf("expected one prompt after first ignored cycle, got %d", len(host.prompts))
	}

	// Second idle: same promise again, still incomplete -> exceeds threshold, deactivates.
	if err := m.HandleIdle(context.Background(), dir, "s1", "<promise>DONE</promise>", opts); err != nil {
		t.Fatal(err)
	}
	state, _ = m.Store.Load(dir)
	if state.ActiveLoop.Active {
		t.Error("expected loop deactivated after exceeding ignored-cycle threshold")
	}
	if state.Source != "gateway_loop_completion_stalled_runtime" {
		t.Errorf("expected stalled-runtime source, got %q", state.Source)
	}
	if len(host.prompts) != 1 {
		t.Errorf("expected no additional prompt once stalled, got %d total", len(host.prompts))
	}
}

func TestHandleIdleRespectsMaxIterations(t *testing.T) {
	m, host, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", nil, gatewaystate.CompletionModePromise, "DONE", 1); err != nil {
		t.Fatal(err)
	}

	// iteration starts at 1; maxIterations=1 means iteration+1 > 1 on first idle.
	if err := m.HandleIdle(context.Background(), dir, "s1", "not done yet", IdleOptions{}); err != nil {
		t.Fatal(err)
	}
	state, _ := m.Store.Load(dir)
	if state.ActiveLoop.Active {
		t.Error("expected loop deactivated at iteration ceiling")
	}
	if state.Source != "max_iterations_reached" {
		t.Errorf("expected max_iterations_reached, got %q", state.Source)
	}
	if len(host.prompts) != 0 {
		t.Error("expected no prompt once ceiling reached")
	}
}

func TestPauseThenResume(t *testing.T) {
	m, _, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", []string{"a"}, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Pause(dir); err != nil {
		t.Fatal(err)
	}
	state, _ := m.Store.Load(dir)
	if state.ActiveLoop.Active {
		t.Fatal("expected paused loop to be inactive")
	}
	if state.ActiveLoop.Objective != "goal" {
		t.Error("expected objective preserved across pause")
	}

	if err := m.Resume(dir); err != nil {
		t.Fatal(err)
	}
	state, _ = m.Store.Load(dir)
	if !state.ActiveLoop.Active {
		t.Fatal("expected resumed loop to be active")
	}
}

func TestStopDeactivatesAndRetainsFields(t *testing.T) {
	m, _, dir := newMachine(t)
	if err := m.Start(dir, "s1", "goal", []string{"a"}, gatewaystate.CompletionModePromise, "DONE", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(dir, "stop"); err != nil {
		t.Fatal(err)
	}
	state, _ := m.Store.Load(dir)
	if state.ActiveLoop.Active {
		t.Error("expected stopped loop inactive")
	}
	if state.ActiveLoop.Objective != "goal" {
		t.Error("expected fields retained after stop")
	}
	if state.Source != "stop" {
		t.Errorf("expected source stop, got %q", state.Source)
	}
}

func writeRuntime(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
