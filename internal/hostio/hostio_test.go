package hostio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

func TestDecodeEventResolvesTransformSessionID(t *testing.T) {
	line := []byte(`{"type":"experimental.chat.messages.transform","directory":"/tmp/p","input":{"messages":[{"info":{"role":"assistant"},"parts":[]},{"info":{"role":"user","sessionID":"s1"},"parts":[{"type":"text","text":"hi"}]}]}}`)

	event, err := DecodeEvent(line)
	if err != nil {
		t.Fatal(err)
	}
	if event.TransformLastUserSessionID != "s1" {
		t.Errorf("got %q", event.TransformLastUserSessionID)
	}
	if event.ResolveSessionID() != "s1" {
		t.Errorf("expected resolved sessionID s1, got %q", event.ResolveSessionID())
	}
}

func TestDecodeEventPlainEventUsesSessionIDAlias(t *testing.T) {
	line := []byte(`{"type":"tool.execute.before","directory":"/tmp/p","sessionId":"s2","input":{"tool":"bash","args":{"command":"ls"}}}`)

	event, err := DecodeEvent(line)
	if err != nil {
		t.Fatal(err)
	}
	if event.ResolveSessionID() != "s2" {
		t.Errorf("got %q", event.ResolveSessionID())
	}
}

func TestEncodeResultRoundTrips(t *testing.T) {
	event := &hostapi.Event{
		Type:           hostapi.EventToolExecuteAfter,
		Directory:      "/tmp/p",
		Output:         json.RawMessage(`{"output":"redacted"}`),
		InputSessionID: "s3",
	}
	line := EncodeResult(event)

	var decoded WireEvent
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.SessionID != "s3" || !strings.Contains(string(decoded.Output), "redacted") {
		t.Errorf("got %+v", decoded)
	}
}

func TestHostSessionMessagesRoundTrip(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"rpcId":1,"result":[{"id":"m1","sessionID":"s","role":"user"}]}` + "\n")

	host := NewHost(in, &out)
	messages, err := host.SessionMessages(context.Background(), "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 || messages[0].ID != "m1" {
		t.Fatalf("got %+v", messages)
	}

	var req rpcRequest
	if err := json.Unmarshal(out.Bytes(), &req); err != nil {
		t.Fatal(err)
	}
	if req.Method != "session.messages" || req.SessionID != "s" {
		t.Errorf("got %+v", req)
	}
}

func TestHostSessionPromptAsyncSendsBody(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"rpcId":1,"result":null}` + "\n")

	host := NewHost(in, &out)
	body := hostapi.PromptBody{Parts: []hostapi.Part{{Type: "text", Text: "hello"}}, Agent: "build"}
	if err := host.SessionPromptAsync(context.Background(), "s", body); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), `"agent":"build"`) {
		t.Errorf("expected encoded body in request, got %s", out.String())
	}
}

func TestHostCallReturnsErrorOnRPCError(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"rpcId":1,"error":"boom"}` + "\n")

	host := NewHost(in, &out)
	if err := host.SessionSummarize(context.Background(), "s"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected boom error, got %v", err)
	}
}
