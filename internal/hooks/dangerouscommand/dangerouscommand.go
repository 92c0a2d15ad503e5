// Package dangerouscommand implements dangerous-command-guard
// guard table): rejects a bash invocation whose command text matches one of
// policy's opaque dangerous-command regex patterns.
package dangerouscommand

import (
	"context"
	"regexp"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// ID is the hook's registry identifier.
const ID = "dangerous-command-guard"

// New builds the registered Hook, compiling
// policy.Guards.DangerousCommandPatterns once at construction time.
func New(policy *gatewayconfig.Policy) dispatch.Hook {
	patterns := hookutil.CompilePatterns(policy.Guards.DangerousCommandPatterns)
	return dispatch.Hook{ID: ID, Priority: 10, Handle: handler(patterns)}
}

func handler(patterns []*regexp.Regexp) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore && event.Type != hostapi.EventCommandExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "bash" {
			return nil
		}
		command := in.ArgString("command")
		if command == "" {
			return nil
		}
		if m := hookutil.FirstMatch(patterns, command); m != nil {
			return hookerr.Rejectf(ID, "dangerous_command_blocked", "command matched blocked pattern %q", m.String())
		}
		return nil
	}
}
