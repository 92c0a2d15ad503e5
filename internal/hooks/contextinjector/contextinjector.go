// Package contextinjector implements the Context-Injector hook of spec
// §4.4: on chat.message, consumes the session's pending-context bucket and
// prepends it to the first text part (re-queueing under a fallback key if
// none exists); on experimental.chat.messages.transform, inserts it as a
// synthetic text part on the last user message; on session.deleted, clears
// the bucket. Both injection paths delegate the actual text surgery to
// internal/inject's total primitives and differ only in payload shape and
// bookkeeping.
package contextinjector

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/inject"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "context-injector"

func New(policy *gatewayconfig.Policy, coll *collector.Collector, sink *audit.Sink) dispatch.Hook {
	maxChars := policy.Context.MaxChars
	return dispatch.Hook{ID: ID, Priority: 60, Handle: handler(maxChars, coll, sink)}
}

func handler(maxChars int, coll *collector.Collector, sink *audit.Sink) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		switch event.Type {
		case hostapi.EventChatMessage:
			return handleChatMessage(event, maxChars, coll, sink)
		case hostapi.EventChatMessagesTransform:
			return handleTransform(event, maxChars, coll, sink)
		case hostapi.EventSessionDeleted:
			sessionID := event.ResolveSessionID()
			if sessionID != "" {
				coll.Clear(sessionID)
			}
			return nil
		default:
			return nil
		}
	}
}

func handleChatMessage(event *hostapi.Event, maxChars int, coll *collector.Collector, sink *audit.Sink) error {
	sessionID := event.ResolveSessionID()
	if sessionID == "" || !coll.HasPending(sessionID) {
		return nil
	}

	out, ok := hostapi.DecodeChatMessage(event)
	if !ok {
		return nil
	}

	pending := coll.Consume(sessionID)
	parts, outcome := inject.InjectTextPrefix(out.Parts, pending.Merged, maxChars)

	if outcome.Reason == inject.ReasonNoTextPart {
		coll.Register(sessionID, "context-injector-requeue", "chat-message-fallback", pending.Merged, collector.PriorityHigh, nil)
		sink.Write(event.Directory, audit.Record{
			Hook: ID, Stage: "inject", EventType: string(event.Type),
			ReasonCode: "context_requeued_no_text_part", SessionID: sessionID,
		})
		return nil
	}

	out.Parts = parts
	event.Output = hostapi.EncodeChatMessage(out)

	reasonCode := "context_inject_chat"
	if outcome.Reason == inject.ReasonTruncated {
		reasonCode = "context_truncated_chat"
	}
	sink.Write(event.Directory, audit.Record{
		Hook: ID, Stage: "inject", EventType: string(event.Type),
		ReasonCode: reasonCode, SessionID: sessionID,
		Fields: map[string]any{
			"context_length_before": outcome.ContextLenBefore,
			"context_length_after":  outcome.ContextLenAfter,
		},
	})
	return nil
}

func handleTransform(event *hostapi.Event, maxChars int, coll *collector.Collector, sink *audit.Sink) error {
	sessionID := event.ResolveSessionID()
	if sessionID == "" || !coll.HasPending(sessionID) {
		return nil
	}

	in, ok := hostapi.DecodeTransform(event)
	if !ok {
		return nil
	}
	// An empty messages array carries no inspectable "parts" field at all
	// (typed decoding can't distinguish a present-but-empty parts array
	// from an absent one on a message that does exist); that is the one
	// case this hook can observe distinctly from "no user message found".
	if len(in.Messages) == 0 {
		sink.Write(event.Directory, audit.Record{
			Hook: ID, Stage: "inject", EventType: string(event.Type),
			ReasonCode: "pending_context_transform_missing_parts", SessionID: sessionID,
		})
		return nil
	}

	pending := coll.GetPending(sessionID)
	messages, outcome := inject.InsertSyntheticUserPart(in.Messages, pending.Merged, maxChars)

	switch outcome.Reason {
	case inject.ReasonNoUserMessage:
		sink.Write(event.Directory, audit.Record{
			Hook: ID, Stage: "inject", EventType: string(event.Type),
			ReasonCode: "pending_context_transform_no_user_message", SessionID: sessionID,
		})
		return nil
	}

	in.Messages = messages
	event.Output = hostapi.EncodeTransform(in)
	coll.Consume(sessionID)

	reasonCode := "context_inject_transform"
	if outcome.Reason == inject.ReasonTruncated {
		reasonCode = "context_truncated_transform"
	}
	sink.Write(event.Directory, audit.Record{
		Hook: ID, Stage: "inject", EventType: string(event.Type),
		ReasonCode: reasonCode, SessionID: sessionID,
		Fields: map[string]any{
			"context_length_before": outcome.ContextLenBefore,
			"context_length_after":  outcome.ContextLenAfter,
		},
	})
	return nil
}
