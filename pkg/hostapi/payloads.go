package hostapi

import "encoding/json"

// ToolBeforeInput is Event.Input decoded for EventToolExecuteBefore /
// EventCommandExecuteBefore: the tool name plus its free-form argument map.
// Individual guard bodies pull the one or two keys they care about
// (args["command"], args["filePath"]) out of Args, matching the
// "defensive field extraction with typed fall-throughs" rather than a
// rigid per-tool struct.
type ToolBeforeInput struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// DecodeToolBefore decodes event.Input as a ToolBeforeInput. ok is false if
// the payload does not parse as an object.
func DecodeToolBefore(event *Event) (ToolBeforeInput, bool) {
	var in ToolBeforeInput
	if len(event.Input) == 0 {
		return in, false
	}
	if err := json.Unmarshal(event.Input, &in); err != nil {
		return in, false
	}
	return in, true
}

// ArgString extracts a string argument, returning "" if absent or not a
// string.
func (t ToolBeforeInput) ArgString(key string) string {
	v, ok := t.Args[key].(string)
	if !ok {
		return ""
	}
	return v
}

// ToolAfterOutput is Event.Output decoded for EventToolExecuteAfter: the raw
// text the tool produced.
type ToolAfterOutput struct {
	Output string `json:"output"`
}

// DecodeToolAfter decodes event.Output as a ToolAfterOutput.
func DecodeToolAfter(event *Event) (ToolAfterOutput, bool) {
	var out ToolAfterOutput
	if len(event.Output) == 0 {
		return out, false
	}
	if err := json.Unmarshal(event.Output, &out); err != nil {
		return out, false
	}
	return out, true
}

// EncodeToolAfter re-encodes a mutated ToolAfterOutput back to raw JSON for
// Event.Output.
func EncodeToolAfter(out ToolAfterOutput) json.RawMessage {
	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return data
}

// ChatMessageOutput is Event.Output decoded for EventChatMessage: the parts
// array the context-injector mutates in place.
type ChatMessageOutput struct {
	Parts []Part `json:"parts"`
}

// DecodeChatMessage decodes event.Output as a ChatMessageOutput.
func DecodeChatMessage(event *Event) (ChatMessageOutput, bool) {
	var out ChatMessageOutput
	if len(event.Output) == 0 {
		return out, false
	}
	if err := json.Unmarshal(event.Output, &out); err != nil {
		return out, false
	}
	return out, true
}

// EncodeChatMessage re-encodes a mutated ChatMessageOutput back to raw JSON
// for Event.Output.
func EncodeChatMessage(out ChatMessageOutput) json.RawMessage {
	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return data
}

// TransformInput is Event.Input decoded for EventChatMessagesTransform: the
// full message list the context-injector and compaction hooks inspect.
type TransformInput struct {
	Messages []TransformMessage `json:"messages"`
}

// DecodeTransform decodes event.Input as a TransformInput.
func DecodeTransform(event *Event) (TransformInput, bool) {
	var in TransformInput
	if len(event.Input) == 0 {
		return in, false
	}
	if err := json.Unmarshal(event.Input, &in); err != nil {
		return in, false
	}
	return in, true
}

// EncodeTransform re-encodes a mutated TransformInput back to raw JSON for
// Event.Input.
func EncodeTransform(in TransformInput) json.RawMessage {
	data, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return data
}

// SessionIdlePayload is Event.Input decoded for EventSessionIdle: the most
// recent assistant message text, if the host included it.
type SessionIdlePayload struct {
	LastAssistantMessage string `json:"lastAssistantMessage"`
}

// DecodeSessionIdle decodes event.Input as a SessionIdlePayload.
func DecodeSessionIdle(event *Event) (SessionIdlePayload, bool) {
	var in SessionIdlePayload
	if len(event.Input) == 0 {
		return in, false
	}
	if err := json.Unmarshal(event.Input, &in); err != nil {
		return in, false
	}
	return in, true
}

// SessionErrorPayload is Event.Input decoded for EventSessionError.
type SessionErrorPayload struct {
	Error      MessageError `json:"error"`
	Agent      string       `json:"agent,omitempty"`
	Model      string       `json:"model,omitempty"`
	ProviderID string       `json:"providerID,omitempty"`
}

// DecodeSessionError decodes event.Input as a SessionErrorPayload.
func DecodeSessionError(event *Event) (SessionErrorPayload, bool) {
	var in SessionErrorPayload
	if len(event.Input) == 0 {
		return in, false
	}
	if err := json.Unmarshal(event.Input, &in); err != nil {
		return in, false
	}
	return in, true
}
