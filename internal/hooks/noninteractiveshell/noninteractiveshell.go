// Package noninteractiveshell implements noninteractive-shell-guard (spec
// §4.8): rejects a bash command matching one of policy's
// nonInteractiveCommandPrefixes (e.g. "npm init") when it lacks the
// non-interactive flag conventionally required to avoid the command
// blocking on a TTY prompt that will never come from this host.
package noninteractiveshell

import (
	"context"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "noninteractive-shell-guard"

// nonInteractiveFlag is the flag that satisfies each known prefix's
// non-interactive requirement.
var nonInteractiveFlag = map[string]string{
	"npm init":        "-y",
	"npm install":     "--yes",
	"yarn add":        "-y",
	"pip install":     "--no-input",
	"apt-get install": "-y",
	"apt install":     "-y",
}

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 11, Handle: handler(policy.Guards.NonInteractiveCommandPrefixes)}
}

func handler(prefixes []string) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")

		for _, prefix := range prefixes {
			if !strings.Contains(command, prefix) {
				continue
			}
			flag, known := nonInteractiveFlag[prefix]
			if !known {
				continue
			}
			if hasNonInteractiveFlag(command, flag) {
				continue
			}
			return hookerr.Rejectf(ID, "noninteractive_shell_missing_flag", "command %q matches %q but is missing its non-interactive flag %q", command, prefix, flag)
		}
		return nil
	}
}

// hasNonInteractiveFlag reports whether command carries flag or one of the
// common aliases that also suppress interactive prompts.
func hasNonInteractiveFlag(command, flag string) bool {
	if strings.Contains(command, flag) {
		return true
	}
	for _, alias := range []string{"-y", "--yes", "-f", "--force"} {
		if strings.Contains(command, alias) {
			return true
		}
	}
	return false
}
