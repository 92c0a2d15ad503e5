package hostapi

import "encoding/json"

// EventType enumerates the closed set of lifecycle events the host may
// deliver.
type EventType string

const (
	EventChatMessage              EventType = "chat.message"
	EventCommandExecuteBefore     EventType = "command.execute.before"
	EventToolExecuteBefore        EventType = "tool.execute.before"
	EventToolExecuteAfter         EventType = "tool.execute.after"
	EventSessionIdle              EventType = "session.idle"
	EventSessionError             EventType = "session.error"
	EventSessionCompacted         EventType = "session.compacted"
	EventSessionDeleted           EventType = "session.deleted"
	EventChatMessagesTransform    EventType = "experimental.chat.messages.transform"
	EventMessageUpdated           EventType = "message.updated"
)

// Event is the tagged-union envelope the dispatcher routes: a working
// directory, an event type, an event-type-specific Input/Output payload,
// and whatever sessionId aliases the host happened to populate. Payload
// shape varies by Type — args for pre-tool, output text for post-tool,
// parts for chat, messages for transform — so Input/Output are carried as
// raw JSON and decoded by each hook body into the shape it expects,
// mirroring the dynamic-payload handling this codebase uses elsewhere ("defensive
// field extraction with typed fall-throughs").
type Event struct {
	Type      EventType
	Directory string
	Input     json.RawMessage
	Output    json.RawMessage

	// Alias fields, populated opportunistically from wherever the host put
	// them; ResolveSessionID walks these in a fixed priority order.
	InputSessionID      string
	InputSessionId      string
	PropertiesSessionID string
	PropertiesInfoID    string
	// TransformLastUserSessionID is the resolved sessionID (preferring the
	// sessionID alias) of the last user message in a transform payload's
	// messages array, populated by the caller only for
	// EventChatMessagesTransform.
	TransformLastUserSessionID string
}

// ResolveSessionID implements "sessionId resolution is
// deterministic and order-sensitive across the alias list": the first
// non-empty alias, in the documented order, wins. Returns "" if none of the
// aliases is populated; callers that require a sessionId must treat that as
// "skip silently", never as an error.
func (e Event) ResolveSessionID() string {
	for _, candidate := range []string{
		e.InputSessionID,
		e.InputSessionId,
		e.PropertiesSessionID,
		e.PropertiesInfoID,
		e.TransformLastUserSessionID,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
