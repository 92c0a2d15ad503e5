// Package branchfreshness implements branch-freshness-guard:
// rejects a `gh pr create`/`gh pr merge` invocation when the current branch
// is behind its base by more than policy's configured threshold. If the
// base ref cannot be resolved (no local main/master), the guard skips
// rather than blocking — the "if base ref absent, skip" edge case.
//
// The current-branch lookup goes through a per-directory gitshell.BranchCache
// (fsnotify-watched .git/HEAD, per SPEC_FULL.md's supplement) instead of
// shelling out to `git branch --show-current` on every gh invocation;
// CommitsBehind still shells out, since it has no cheap filesystem signal
// to watch.
package branchfreshness

import (
	"context"
	"sync"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gitshell"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "branch-freshness-guard"

var candidateBases = []string{"main", "master"}

// branchCaches lazily creates and holds one BranchCache per working
// directory this guard has seen, since a single Gateway process may handle
// events for multiple repositories across its lifetime.
type branchCaches struct {
	mu    sync.Mutex
	byDir map[string]*gitshell.BranchCache
}

func (c *branchCaches) currentBranch(ctx context.Context, dir string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byDir == nil {
		c.byDir = make(map[string]*gitshell.BranchCache)
	}
	cache, ok := c.byDir[dir]
	if !ok {
		cache, _ = gitshell.NewBranchCache(ctx, dir) // nil on error: fall through to direct lookup below.
		c.byDir[dir] = cache
	}
	if cache != nil {
		return cache.Current()
	}
	return gitshell.CurrentBranch(ctx, dir)
}

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	caches := &branchCaches{}
	return dispatch.Hook{ID: ID, Priority: 15, Handle: handler(policy.Guards.MaxBehindCommits, caches)}
}

func handler(maxBehind int, caches *branchCaches) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		if !isGHPRCreateOrMerge(command) {
			return nil
		}

		base := resolveBase(ctx, event.Directory)
		if base == "" {
			return nil // no resolvable base ref: skip.
		}

		branch := caches.currentBranch(ctx, event.Directory)
		if branch == "" || branch == base {
			return nil
		}

		behind, err := gitshell.CommitsBehind(ctx, event.Directory, branch, base)
		if err != nil {
			return nil // cannot determine: fail open.
		}
		if behind > maxBehind {
			return hookerr.Rejectf(ID, "branch_stale", "branch %q is %d commits behind %q (max %d); rebase or merge %q first", branch, behind, base, maxBehind, base)
		}
		return nil
	}
}

func resolveBase(ctx context.Context, dir string) string {
	for _, candidate := range candidateBases {
		if gitshell.RefExists(ctx, dir, candidate) {
			return candidate
		}
	}
	return ""
}

func isGHPRCreateOrMerge(command string) bool {
	commands, err := bashparse.Parse(command)
	if err != nil {
		return false
	}
	for _, c := range commands {
		if c.Name == "gh" && len(c.Args) >= 2 && c.Args[0] == "pr" && (c.Args[1] == "create" || c.Args[1] == "merge") {
			return true
		}
	}
	return false
}
