package hostapi

// Part is a single entry of a message's parts array, as carried on
// chat.message output and experimental.chat.messages.transform payloads.
// Only the fields the Gateway's injection primitives and
// guard bodies need are modeled; unrecognized fields round-trip through
// Extra.
type Part struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	Synthetic bool           `json:"synthetic,omitempty"`
	Extra     map[string]any `json:"-"`
}

// IsText reports whether this part carries inspectable/injectable text.
func (p *Part) IsText() bool {
	return p != nil && p.Type == "text"
}

// TransformMessage is one entry of the messages array on an
// experimental.chat.messages.transform payload.
type TransformMessage struct {
	Info  MessageInfo `json:"info"`
	Parts []Part      `json:"parts"`
}

// MessageInfo is the subset of Message.info referenced by transform
// payloads: role and the sessionID aliases the gateway needs to
// resolve from.
type MessageInfo struct {
	Role      string `json:"role"`
	SessionID string `json:"sessionID,omitempty"`
	SessionId string `json:"sessionId,omitempty"`
}

// ResolvedSessionID returns whichever sessionID alias is non-empty,
// preferring sessionID over sessionId.
func (m MessageInfo) ResolvedSessionID() string {
	if m.SessionID != "" {
		return m.SessionID
	}
	return m.SessionId
}
