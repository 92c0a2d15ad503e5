// Package hostio implements the newline-JSON stdio transport
// cmd/gateway-plugin's "serve" subcommand speaks: events arrive as one JSON
// object per line on stdin, dispatch results are written one JSON object
// per line to stdout, and the few outbound host-API calls (session.messages,
// session.promptAsync, session.summarize) are multiplexed onto the same
// pair of streams as request/response lines correlated by an integer id,
// since the assistant host process on the other end of the pipe is out of
// scope here and this is only the adapter's transport, not a new
// architectural component.
package hostio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// WireEvent is the newline-delimited JSON shape one "serve" input line
// decodes into. It carries the same sessionId aliases hostapi.Event
// resolves from, flattened onto one envelope instead of nested
// "properties"/"info" objects, since this transport is the one place in
// the tree that owns the wire format end to end.
type WireEvent struct {
	Type                string          `json:"type"`
	Directory           string          `json:"directory"`
	Input               json.RawMessage `json:"input,omitempty"`
	Output              json.RawMessage `json:"output,omitempty"`
	SessionID           string          `json:"sessionId,omitempty"`
	PropertiesSessionID string          `json:"propertiesSessionId,omitempty"`
	PropertiesInfoID    string          `json:"propertiesInfoId,omitempty"`
}

// DecodeEvent parses one input line as a WireEvent and lifts it into a
// hostapi.Event. For experimental.chat.messages.transform payloads, it also
// resolves TransformLastUserSessionID from the last user-role message in
// Input, since transform payloads carry no sessionId of their own.
func DecodeEvent(line []byte) (*hostapi.Event, error) {
	var w WireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("decode event line: %w", err)
	}

	event := &hostapi.Event{
		Type:                w.Type,
		Directory:           w.Directory,
		Input:               w.Input,
		Output:              w.Output,
		InputSessionID:      w.SessionID,
		PropertiesSessionID: w.PropertiesSessionID,
		PropertiesInfoID:    w.PropertiesInfoID,
	}

	if hostapi.EventType(w.Type) == hostapi.EventChatMessagesTransform {
		if in, ok := hostapi.DecodeTransform(event); ok {
			for i := len(in.Messages) - 1; i >= 0; i-- {
				if in.Messages[i].Info.Role == "user" {
					event.TransformLastUserSessionID = in.Messages[i].Info.ResolvedSessionID()
					break
				}
			}
		}
	}

	return event, nil
}

// EncodeResult re-flattens event's (possibly hook-mutated) Input/Output
// back onto a WireEvent for the "serve" output line.
func EncodeResult(event *hostapi.Event) []byte {
	w := WireEvent{
		Type:      string(event.Type),
		Directory: event.Directory,
		Input:     event.Input,
		Output:    event.Output,
		SessionID: event.ResolveSessionID(),
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil
	}
	return data
}

// rpcRequest is one outbound host-API call, written as a line on out.
type rpcRequest struct {
	ID        uint64          `json:"rpcId"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

// rpcResponse is the correlated reply line, read back from in.
type rpcResponse struct {
	ID     uint64          `json:"rpcId"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Host implements hostapi.Host over a pair of newline-JSON streams. Calls
// block until a response line with a matching rpcId arrives; concurrent
// callers are serialized by mu, since this is a small sequential async
// interface with no intra-event parallelism anyway.
type Host struct {
	mu     sync.Mutex
	reader *bufio.Reader
	writer io.Writer
	nextID uint64
}

// NewHost creates a Host that reads RPC responses from in and writes RPC
// requests to out.
func NewHost(in io.Reader, out io.Writer) *Host {
	return &Host{reader: bufio.NewReader(in), writer: out}
}

// ReadLine reads one newline-delimited line from the same underlying
// reader the Host's RPC calls read responses from. "serve" uses this
// instead of its own bufio.Scanner over stdin, so inbound event lines and
// inbound RPC-response lines — both arriving on one pipe — are never read
// through two independent, desynchronized buffers.
func (h *Host) ReadLine() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	line, err := h.reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return line, nil
}

func (h *Host) call(ctx context.Context, method, sessionID string, body any) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var rawBody json.RawMessage
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
		rawBody = encoded
	}

	h.nextID++
	req := rpcRequest{ID: h.nextID, Method: method, SessionID: sessionID, Body: rawBody}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	if _, err := h.writer.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write %s request: %w", method, err)
	}

	for {
		respLine, err := h.reader.ReadBytes('\n')
		if err != nil && len(respLine) == 0 {
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}
		var resp rpcResponse
		if err := json.Unmarshal(respLine, &resp); err != nil {
			continue // not a well-formed response line; skip and keep waiting.
		}
		if resp.ID != req.ID {
			continue // stale or out-of-order line; the host is expected to reply in order.
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("%s: %s", method, resp.Error)
		}
		return resp.Result, nil
	}
}

// SessionMessages implements hostapi.Host.
func (h *Host) SessionMessages(ctx context.Context, sessionID string) ([]hostapi.Message, error) {
	result, err := h.call(ctx, "session.messages", sessionID, nil)
	if err != nil {
		return nil, err
	}
	var messages []hostapi.Message
	if err := json.Unmarshal(result, &messages); err != nil {
		return nil, fmt.Errorf("decode session.messages result: %w", err)
	}
	return messages, nil
}

// SessionPromptAsync implements hostapi.Host.
func (h *Host) SessionPromptAsync(ctx context.Context, sessionID string, body hostapi.PromptBody) error {
	_, err := h.call(ctx, "session.promptAsync", sessionID, body)
	return err
}

// SessionSummarize implements hostapi.Host.
func (h *Host) SessionSummarize(ctx context.Context, sessionID string) error {
	_, err := h.call(ctx, "session.summarize", sessionID, nil)
	return err
}
