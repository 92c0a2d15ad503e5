// Package workflowconformance implements workflow-conformance-guard (spec
// §4.8): rejects a write/edit tool call made while the current git branch
// is one of policy's protected branches, steering direct edits onto a
// feature branch instead.
package workflowconformance

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gitshell"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "workflow-conformance-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 20, Handle: handler(policy.Guards.ProtectedBranches)}
}

func handler(protectedBranches []string) dispatch.HandlerFunc {
	protected := make(map[string]bool, len(protectedBranches))
	for _, b := range protectedBranches {
		protected[b] = true
	}

	return func(ctx context.Context, event *hostapi.Event) error {
		if len(protected) == 0 || event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || (in.Tool != "write" && in.Tool != "edit") {
			return nil
		}
		if !gitshell.IsRepo(ctx, event.Directory) {
			return nil
		}

		branch := gitshell.CurrentBranch(ctx, event.Directory)
		if branch == "" || !protected[branch] {
			return nil
		}
		return hookerr.Rejectf(ID, "workflow_protected_branch_edit", "refusing to edit files while on protected branch %q; create a feature branch first", branch)
	}
}
