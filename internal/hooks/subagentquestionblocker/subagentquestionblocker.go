// Package subagentquestionblocker implements subagent-question-blocker-guard
// rejects a `question` tool call made from a subagent session,
// since subagents have no user to answer it and would otherwise stall
// waiting on a prompt that never arrives.
package subagentquestionblocker

import (
	"context"
	"regexp"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "subagent-question-blocker-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	pattern := policy.Guards.SubagentSessionPattern
	var re *regexp.Regexp
	if pattern != "" {
		re, _ = regexp.Compile(pattern)
	}
	return dispatch.Hook{ID: ID, Priority: 21, Handle: handler(re)}
}

func handler(subagentPattern *regexp.Regexp) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if subagentPattern == nil || event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "question" {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" || !subagentPattern.MatchString(sessionID) {
			return nil
		}
		return hookerr.Rejectf(ID, "subagent_question_blocked", "subagent session %q cannot use the question tool", sessionID)
	}
}
