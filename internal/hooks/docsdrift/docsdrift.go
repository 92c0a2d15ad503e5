// Package docsdrift implements docs-drift-guard: rejects a
// `git commit` invocation when the staged changes touch source files
// (policy.sourcePatterns) but no matching docs files (policy.docsPatterns),
// nudging the author to update documentation in the same commit.
package docsdrift

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gitshell"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "docs-drift-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{
		ID:       ID,
		Priority: 19,
		Handle:   handler(policy.Guards.SourcePatterns, policy.Guards.DocsPatterns),
	}
}

func handler(sourcePatterns, docsPatterns []string) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if len(sourcePatterns) == 0 || len(docsPatterns) == 0 {
			return nil
		}
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		if !isGitCommit(in.ArgString("command")) {
			return nil
		}

		names, err := gitshell.StagedDiffNames(ctx, event.Directory)
		if err != nil {
			return nil // cannot inspect: fail open.
		}

		touchesSource := false
		touchesDocs := false
		for _, name := range names {
			if hookutil.MatchesAnyGlob(sourcePatterns, name) {
				touchesSource = true
			}
			if hookutil.MatchesAnyGlob(docsPatterns, name) {
				touchesDocs = true
			}
		}

		if touchesSource && !touchesDocs {
			return hookerr.Rejectf(ID, "docs_drift_detected", "staged changes touch source files but no matching docs files")
		}
		return nil
	}
}

func isGitCommit(command string) bool {
	commands, err := bashparse.Parse(command)
	if err != nil {
		return false
	}
	for _, c := range commands {
		if c.Name == "git" && c.Subcommand == "commit" {
			return true
		}
	}
	return false
}
