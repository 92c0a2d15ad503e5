package ghchecksmerge

import (
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
)

// evaluatePRView is exercised directly since the full handler path shells
// out to the gh CLI, which is not available in this test environment
// (no GitHub auth); see gitshell_test.go's equivalent omission of
// TestGHPRView.

func TestEvaluatePRViewBlocksDraft(t *testing.T) {
	err := evaluatePRView(prView{IsDraft: true})
	rej, ok := hookerr.AsGuardRejection(err)
	if !ok || rej.ReasonCode != "gh_checks_pr_is_draft" {
		t.Fatalf("expected draft rejection, got %v", err)
	}
}

func TestEvaluatePRViewBlocksUnapproved(t *testing.T) {
	err := evaluatePRView(prView{ReviewDecision: "CHANGES_REQUESTED"})
	rej, ok := hookerr.AsGuardRejection(err)
	if !ok || rej.ReasonCode != "gh_checks_not_approved" {
		t.Fatalf("expected not-approved rejection, got %v", err)
	}
}

func TestEvaluatePRViewBlocksFailingCheck(t *testing.T) {
	view := prView{
		ReviewDecision: "APPROVED",
		StatusCheckRollup: []struct {
			Conclusion string `json:"conclusion"`
			State      string `json:"state"`
		}{{State: "COMPLETED", Conclusion: "FAILURE"}},
	}
	err := evaluatePRView(view)
	rej, ok := hookerr.AsGuardRejection(err)
	if !ok || rej.ReasonCode != "gh_checks_failing" {
		t.Fatalf("expected failing-check rejection, got %v", err)
	}
}

func TestEvaluatePRViewAllowsCleanPR(t *testing.T) {
	view := prView{
		ReviewDecision: "APPROVED",
		StatusCheckRollup: []struct {
			Conclusion string `json:"conclusion"`
			State      string `json:"state"`
		}{{State: "COMPLETED", Conclusion: "SUCCESS"}},
	}
	if err := evaluatePRView(view); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestIsGHPRMerge(t *testing.T) {
	if !isGHPRMerge(`gh pr merge 42 --squash`) {
		t.Error("expected gh pr merge to be detected")
	}
	if isGHPRMerge(`gh pr view`) {
		t.Error("expected gh pr view not to be detected as merge")
	}
}
