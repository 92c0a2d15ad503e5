// Package prbodyevidence implements pr-body-evidence-guard:
// rejects a `gh pr create` invocation whose `--body`/`--body-file` content
// is missing required sections, per policy's requireSummarySection/
// requireValidationSection/requireValidationEvidence flags.
package prbodyevidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "pr-body-evidence-guard"

type requirements struct {
	summary            bool
	validationSection  bool
	validationEvidence bool
}

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	req := requirements{
		summary:            policy.Guards.RequireSummarySection,
		validationSection:  policy.Guards.RequireValidationSection,
		validationEvidence: policy.Guards.RequireValidationEvidence,
	}
	return dispatch.Hook{ID: ID, Priority: 16, Handle: handler(req)}
}

func handler(req requirements) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		body, ok := prCreateBody(command, event.Directory)
		if !ok {
			return nil
		}

		if req.summary && !strings.Contains(body, "## Summary") {
			return hookerr.Rejectf(ID, "pr_body_missing_summary_section", "PR body is missing a \"## Summary\" section")
		}
		if req.validationSection && !strings.Contains(body, "## Validation") {
			return hookerr.Rejectf(ID, "pr_body_missing_validation_section", "PR body is missing a \"## Validation\" section")
		}
		if req.validationEvidence && req.validationSection {
			if idx := strings.Index(body, "## Validation"); idx >= 0 {
				section := body[idx:]
				if end := strings.Index(section[len("## Validation"):], "\n## "); end >= 0 {
					section = section[:len("## Validation")+end]
				}
				if strings.TrimSpace(strings.TrimPrefix(section, "## Validation")) == "" {
					return hookerr.Rejectf(ID, "pr_body_missing_validation_evidence", "PR body's \"## Validation\" section has no evidence content")
				}
			}
		}
		return nil
	}
}

// prCreateBody returns the PR body text for a `gh pr create` invocation,
// resolved from --body, --body-file (read relative to dir), or the
// presence of neither (ok=false: nothing to check, e.g. --fill or
// --web-driven creation).
func prCreateBody(command, dir string) (string, bool) {
	commands, err := bashparse.Parse(command)
	if err != nil {
		return "", false
	}
	for _, c := range commands {
		if c.Name != "gh" || len(c.Args) < 2 || c.Args[0] != "pr" || c.Args[1] != "create" {
			continue
		}
		for i, a := range c.Args {
			if a == "--body" && i+1 < len(c.Args) {
				return c.Args[i+1], true
			}
			if strings.HasPrefix(a, "--body=") {
				return strings.TrimPrefix(a, "--body="), true
			}
			if a == "--body-file" && i+1 < len(c.Args) {
				return readBodyFile(dir, c.Args[i+1])
			}
			if strings.HasPrefix(a, "--body-file=") {
				return readBodyFile(dir, strings.TrimPrefix(a, "--body-file="))
			}
		}
		return "", false
	}
	return "", false
}

func readBodyFile(dir, path string) (string, bool) {
	if path == "-" {
		return "", false // stdin body: nothing this hook can inspect.
	}
	full := path
	if dir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", false
	}
	return string(data), true
}
