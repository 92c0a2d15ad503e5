// Package postmergesync implements post-merge-sync-guard:
// rejects a `gh pr merge` invocation missing `--delete-branch` when policy
// requires it, or missing an inline main-sync step (a `git checkout
// main && git pull` chained into the same command) when policy requires
// that instead.
package postmergesync

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "post-merge-sync-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{
		ID:       ID,
		Priority: 17,
		Handle: handler(
			policy.Guards.RequireDeleteBranchOnMerge,
			policy.Guards.RequireInlineMainSync,
		),
	}
}

func handler(requireDeleteBranch, requireInlineSync bool) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		commands, err := bashparse.Parse(command)
		if err != nil {
			return nil
		}

		var mergeCmd *bashparse.Command
		for i := range commands {
			c := commands[i]
			if c.Name == "gh" && len(c.Args) >= 2 && c.Args[0] == "pr" && c.Args[1] == "merge" {
				mergeCmd = &c
				break
			}
		}
		if mergeCmd == nil {
			return nil
		}

		if requireDeleteBranch && !mergeCmd.HasFlag("--delete-branch") && !mergeCmd.HasFlag("-d") {
			return hookerr.Rejectf(ID, "post_merge_missing_delete_branch", "gh pr merge must pass --delete-branch")
		}
		if requireInlineSync && !hasInlineMainSync(commands) {
			return hookerr.Rejectf(ID, "post_merge_missing_main_sync", "merge command must chain a main-branch checkout and pull")
		}
		return nil
	}
}

func hasInlineMainSync(commands []bashparse.Command) bool {
	sawMainCheckout := false
	for _, c := range commands {
		if c.Name != "git" {
			continue
		}
		if c.Subcommand == "checkout" && (c.HasFlag("main") || c.HasFlag("master")) {
			sawMainCheckout = true
		}
		if sawMainCheckout && c.Subcommand == "pull" {
			return true
		}
	}
	return false
}
