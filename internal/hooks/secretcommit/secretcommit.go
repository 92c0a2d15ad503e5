// Package secretcommit implements secret-commit-guard: rejects
// a `git commit` invocation whose staged diff matches one of policy's
// opaque secret regex patterns.
package secretcommit

import (
	"context"
	"regexp"

	"github.com/opencode-ai/opencode-gateway/internal/bashparse"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gitshell"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "secret-commit-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	patterns := hookutil.CompilePatterns(policy.Guards.SecretPatterns)
	return dispatch.Hook{ID: ID, Priority: 13, Handle: handler(patterns)}
}

func handler(patterns []*regexp.Regexp) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		if !isGitCommit(command) {
			return nil
		}

		diff, err := gitshell.StagedDiff(ctx, event.Directory)
		if err != nil {
			return nil // cannot inspect: fail open.
		}
		if m := hookutil.FirstMatch(patterns, diff); m != nil {
			return hookerr.Rejectf(ID, "secret_commit_blocked", "staged diff matched secret pattern %q", m.String())
		}
		return nil
	}
}

// isGitCommit reports whether command contains a parsed "git commit"
// invocation. Unparseable commands are treated as not a commit.
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
