// Package ghchecksmerge implements gh-checks-merge-guard:
// rejects a `gh pr merge` invocation when the PR is a draft, lacks
// approval, or has a non-passing check suite, inspected via `gh pr view
// --json`. A `gh` failure (not authenticated, no network) fails open when
// policy.failOpenOnError is set, otherwise the guard rejects defensively.
package ghchecksmerge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gitshell"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "gh-checks-merge-guard"

type prView struct {
	IsDraft           bool   `json:"isDraft"`
	ReviewDecision    string `json:"reviewDecision"`
	StatusCheckRollup []struct {
		Conclusion string `json:"conclusion"`
		State      string `json:"state"`
	} `json:"statusCheckRollup"`
}

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 18, Handle: handler(policy.Guards.FailOpenOnError)}
}

func handler(failOpenOnError bool) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		if !isGHPRMerge(command) {
			return nil
		}

		raw, err := gitshell.GHPRView(ctx, event.Directory, "isDraft", "reviewDecision", "statusCheckRollup")
		if err != nil {
			if failOpenOnError {
				return nil
			}
			return hookerr.Rejectf(ID, "gh_checks_unavailable", "could not verify PR status via gh: %v", err)
		}

		var view prView
		if err := json.Unmarshal([]byte(raw), &view); err != nil {
			if failOpenOnError {
				return nil
			}
			return hookerr.Rejectf(ID, "gh_checks_unavailable", "could not parse gh pr view output")
		}

		return evaluatePRView(view)
	}
}

// evaluatePRView applies the draft/approval/checks decision rules to an
// already-decoded `gh pr view` result, split out from handler so the
// decision logic is testable without shelling out to gh.
func evaluatePRView(view prView) error {
	if view.IsDraft {
		return hookerr.Rejectf(ID, "gh_checks_pr_is_draft", "PR is still a draft")
	}
	if view.ReviewDecision != "" && view.ReviewDecision != "APPROVED" {
		return hookerr.Rejectf(ID, "gh_checks_not_approved", "PR review decision is %q, not APPROVED", view.ReviewDecision)
	}
	for _, check := range view.StatusCheckRollup {
		if check.State != "" && !strings.EqualFold(check.State, "SUCCESS") {
			return hookerr.Rejectf(ID, "gh_checks_failing", "a required check is in state %q", check.State)
		}
		if check.Conclusion != "" && !strings.EqualFold(check.Conclusion, "SUCCESS") {
			return hookerr.Rejectf(ID, "gh_checks_failing", "a required check concluded %q", check.Conclusion)
		}
	}
	return nil
}

func isGHPRMerge(command string) bool {
	commands, err := bashparse.Parse(command)
	if err != nil {
		return false
	}
	for _, c := range commands {
		if c.Name == "gh" && len(c.Args) >= 2 && c.Args[0] == "pr" && c.Args[1] == "merge" {
			return true
		}
	}
	return false
}
