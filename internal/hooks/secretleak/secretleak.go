// Package secretleak implements secret-leak-guard: redacts any
// substring of a tool's post-execution output that matches one of policy's
// opaque secret regex patterns. Unlike secretcommit, this hook never
// rejects — it mutates Event.Output in place, replacing each match with a
// fixed placeholder, so the host still receives output but never a live
// credential.
package secretleak

import (
	"context"
	"regexp"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "secret-leak-guard"

const redactionPlaceholder = "[REDACTED]"

func New(policy *gatewayconfig.Policy, sink *audit.Sink) dispatch.Hook {
	patterns := hookutil.CompilePatterns(policy.Guards.SecretPatterns)
	return dispatch.Hook{ID: ID, Priority: 70, Handle: handler(patterns, sink)}
}

func handler(patterns []*regexp.Regexp, sink *audit.Sink) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteAfter {
			return nil
		}
		out, ok := hostapi.DecodeToolAfter(event)
		if !ok || out.Output == "" {
			return nil
		}

		redacted := out.Output
		matches := 0
		for _, p := range patterns {
			if p.MatchString(redacted) {
				matches += len(p.FindAllString(redacted, -1))
			}
			redacted = p.ReplaceAllString(redacted, redactionPlaceholder)
		}
		if redacted == out.Output {
			return nil
		}

		out.Output = redacted
		event.Output = hostapi.EncodeToolAfter(out)

		sessionID := event.ResolveSessionID()
		sink.Write(event.Directory, audit.Record{
			Hook:       ID,
			Stage:      "inject",
			EventType:  string(event.Type),
			ReasonCode: "secret_output_redacted",
			SessionID:  sessionID,
			Fields:     map[string]any{"redaction_count": matches},
		})
		return nil
	}
}
