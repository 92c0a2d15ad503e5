// Package gitshell is the opaque git/gh subprocess adapter the gateway calls
// for ("git/gh process invocation (treated as opaque subprocess
// adapter)"). Branch-freshness, post-merge-sync, and gh-checks-merge guards
// shell out through here instead of talking to libgit2 or a gh API client
// directly, matching how OpenCode treats VCS state: a thin exec.Command
// wrapper plus a watched cache (internal/vcs.Watcher) rather than an
// in-process git implementation.
package gitshell

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// run executes name with args in dir, returning trimmed stdout. Any
// non-zero exit or spawn failure is reported as an error; callers treat a
// failed git call as "cannot determine," never as a guard rejection on its
// own (advisory swallow, or policy-gated failOpenOnError
// for guards that require the result).
func run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether dir is inside a git working tree.
func IsRepo(ctx context.Context, dir string) bool {
	_, err := run(ctx, dir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// CurrentBranch returns the checked-out branch name, or "" if it cannot be
// determined (detached HEAD, not a repo, git not installed).
func CurrentBranch(ctx context.Context, dir string) string {
	branch, err := run(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return branch
}

// GitDir resolves the repository's .git directory, following worktrees.
func GitDir(ctx context.Context, dir string) string {
	gitDir, err := run(ctx, dir, "git", "rev-parse", "--git-dir")
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	return gitDir
}

// RefExists reports whether ref resolves to a commit, used by
// branch-freshness-guard to implement its "if base ref absent, skip" edge
// case.
func RefExists(ctx context.Context, dir, ref string) bool {
	_, err := run(ctx, dir, "git", "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// CommitsBehind returns how many commits branch is behind base (i.e. commits
// reachable from base but not from branch), used by branch-freshness-guard.
// Returns an error if either ref cannot be resolved.
func CommitsBehind(ctx context.Context, dir, branch, base string) (int, error) {
	out, err := run(ctx, dir, "git", "rev-list", "--count", branch+".."+base)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// StagedDiffNames returns the paths of files with staged changes, used by
// docs-drift-guard and secret-commit-guard to inspect what a `git commit`
// is about to record.
func StagedDiffNames(ctx context.Context, dir string) ([]string, error) {
	out, err := run(ctx, dir, "git", "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// StagedDiff returns the full staged diff text, used by secret-commit-guard
// to scan for secret-pattern matches before a commit is made.
func StagedDiff(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "git", "diff", "--cached")
}

// GHPRView returns the raw `gh pr view --json <fields>` output for the PR
// associated with the current branch, used by gh-checks-merge-guard and
// post-merge-sync-guard to inspect draft/approval/check state without the
// Gateway depending on the GitHub API client directly.
func GHPRView(ctx context.Context, dir string, fields ...string) (string, error) {
	args := []string{"pr", "view", "--json", strings.Join(fields, ",")}
	return run(ctx, dir, "gh", args...)
}
