// Package hostapi defines the wire shapes the Gateway exchanges with the
// assistant host: messages returned by session.messages, and the parts
// carried on chat.message / experimental.chat.messages.transform payloads.
package hostapi

// Message mirrors the Message.info shape used for
// session.messages(sessionId) -> {data: Message[]}.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"` // "user" | "assistant" | "system"
	Time      MessageTime `json:"time"`

	Agent      string      `json:"agent,omitempty"`
	Model      *ModelRef   `json:"model,omitempty"`
	ModelID    string      `json:"modelID,omitempty"`
	ProviderID string      `json:"providerID,omitempty"`
	Tokens     *TokenUsage `json:"tokens,omitempty"`

	Finish *string       `json:"finish,omitempty"`
	Error  *MessageError `json:"error,omitempty"`
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// ModelRef references a specific model from a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// TokenUsage contains token usage statistics for a message, used by the
// context-window-monitor and preemptive-compaction hooks to estimate
// consumption without re-tokenizing text.
type TokenUsage struct {
	Input     int        `json:"input"`
	Output    int        `json:"output"`
	Reasoning int        `json:"reasoning,omitempty"`
	Cache     CacheUsage `json:"cache,omitempty"`
}

// CacheUsage contains cache hit/write statistics.
type CacheUsage struct {
	Read  int `json:"read"`
	Write int `json:"write"`
}

// MessageError represents an error surfaced on a message, consumed by
// provider-error-classifier and session-recovery.
type MessageError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
