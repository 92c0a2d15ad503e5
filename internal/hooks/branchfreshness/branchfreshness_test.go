package branchfreshness

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func writeCommit(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-q", "-m", name)
}

func prEvent(dir, command string) *hostapi.Event {
	return &hostapi.Event{
		Type:      hostapi.EventToolExecuteBefore,
		Directory: dir,
		Input:     []byte(`{"tool":"bash","args":{"command":"` + command + `"}}`),
	}
}

func TestSkipsWhenBaseRefAbsent(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "feature")
	writeCommit(t, dir, "a.txt")

	hook := New(gatewayconfig.Default())
	err := hook.Handle(context.Background(), prEvent(dir, `gh pr create --title x`))
	if err != nil {
		t.Errorf("expected skip when no base ref resolves, got %v", err)
	}
}

func TestBlocksStaleBranch(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "main")
	writeCommit(t, dir, "a.txt")
	runGit(t, dir, "checkout", "-q", "-b", "feature")
	runGit(t, dir, "checkout", "-q", "main")
	writeCommit(t, dir, "b.txt")
	runGit(t, dir, "checkout", "-q", "feature")

	policy := gatewayconfig.Default()
	policy.Guards.MaxBehindCommits = 0
	hook := New(policy)

	err := hook.Handle(context.Background(), prEvent(dir, `gh pr create --title x`))
	rej, ok := hookerr.AsGuardRejection(err)
	if !ok || rej.ReasonCode != "branch_stale" {
		t.Fatalf("expected branch_stale rejection, got %v", err)
	}
}

func TestAllowsFreshBranch(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "main")
	writeCommit(t, dir, "a.txt")
	runGit(t, dir, "checkout", "-q", "-b", "feature")

	hook := New(gatewayconfig.Default())
	if err := hook.Handle(context.Background(), prEvent(dir, `gh pr create --title x`)); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestIgnoresNonPRCommand(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q", "-b", "feature")
	writeCommit(t, dir, "a.txt")

	hook := New(gatewayconfig.Default())
	if err := hook.Handle(context.Background(), prEvent(dir, `gh pr view`)); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}
