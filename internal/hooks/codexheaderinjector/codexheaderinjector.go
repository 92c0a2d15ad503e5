// Package codexheaderinjector implements codex-header-injector
// advisory family): the first time a session's active model matches
// policy.Advisory.CodexHeaderModelPattern, prepends a synthetic header part
// to the last user message of an experimental.chat.messages.transform
// payload. The header is injected at most once per session — tracked in
// an in-process set, since it is a one-time orientation note rather than a
// recurring reminder.
package codexheaderinjector

import (
	"context"
	"regexp"

	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
)

const ID = "codex-header-injector"

const headerText = "Note: this session is running on a Codex-family model. Tool call conventions and formatting may differ slightly from the default assistant; follow the host's tool schemas exactly."

func New(policy *gatewayconfig.Policy, host hostapi.Host) dispatch.Hook {
	pattern := regexp.MustCompile(policy.Advisory.CodexHeaderModelPattern)
	injected := runtimemap.New[bool](0)
	return dispatch.Hook{ID: ID, Priority: 45, Handle: handler(host, pattern, injected)}
}

func handler(host hostapi.Host, pattern *regexp.Regexp, injected *runtimemap.Map[bool]) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventChatMessagesTransform {
			return nil
		}
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}
		if already, ok := injected.Get(sessionID); ok && already {
			return nil
		}

		in, ok := hostapi.DecodeTransform(event)
		if !ok || len(in.Messages) == 0 {
			return nil
		}

		model := currentModel(ctx, host, sessionID)
		if model == "" || !pattern.MatchString(model) {
			return nil
		}

		lastUserIdx := -1
		for i := len(in.Messages) - 1; i >= 0; i-- {
			if in.Messages[i].Info.Role == "user" {
				lastUserIdx = i
				break
			}
		}
		if lastUserIdx < 0 {
			return nil
		}

		header := hostapi.Part{Type: "text", Text: headerText, Synthetic: true}
		in.Messages[lastUserIdx].Parts = append([]hostapi.Part{header}, in.Messages[lastUserIdx].Parts...)
		event.Output = hostapi.EncodeTransform(in)
		injected.Set(sessionID, true)
		return nil
	}
}

func currentModel(ctx context.Context, host hostapi.Host, sessionID string) string {
	messages, err := host.SessionMessages(ctx, sessionID)
	if err != nil {
		return ""
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ModelID != "" {
			return messages[i].ModelID
		}
		if messages[i].Model != "" {
			return messages[i].Model
		}
	}
	return ""
}
