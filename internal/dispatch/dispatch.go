// Package dispatch implements the Hook Registry & Dispatcher:
// deterministic routing of one event to an ordered list of hooks, with
// guard-rejection short-circuiting and exception-swallowing for everything
// else. It replaces OpenCode's event.Bus — which spawns one goroutine
// per subscriber and fans a published event out concurrently — with
// strictly sequential invocation, since hooks must run
// sequentially in deterministic order" with "no intra-event hook
// parallelism." The registration bookkeeping (a slice of named handlers
// behind one mutex) still follows OpenCode's Bus.Subscribe shape.
package dispatch

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// TelemetryTopic is the watermill gochannel topic Dispatch publishes a
// summary message to after every completed pass, for out-of-band consumers
// (e.g. cmd/gateway-plugin's "serve" loop, or a host's own observability
// pipeline) that want a live event feed without sitting on the hook path
// itself. Unlike OpenCode's event.Bus, which only exposes its gochannel
// via PubSub() for callers to wire up themselves, Dispatch actually
// publishes to it — the sequential hook pipeline above remains the sole
// mechanism for hook invocation and rejection; this topic is read-only
// telemetry, never a second dispatch path.
const TelemetryTopic = "gateway.dispatch"

// telemetryMessage is the JSON payload published to TelemetryTopic.
type telemetryMessage struct {
	EventType string `json:"event_type"`
	Directory string `json:"directory"`
	SessionID string `json:"session_id,omitempty"`
	Rejected  bool   `json:"rejected"`
}

// HandlerFunc handles one event for one hook. Guards reject by returning a
// *hookerr.GuardRejection; any other non-nil error is treated as an
// internal, swallowed failure.
type HandlerFunc func(ctx context.Context, event *hostapi.Event) error

// Hook is one registered pipeline stage.
type Hook struct {
	ID       string
	Priority int
	Handle   HandlerFunc
}

// Dispatcher holds the registered hook set and routes events to them in
// policy order.
type Dispatcher struct {
	mu     sync.Mutex
	hooks  []Hook
	audit  *audit.Sink
	pubsub *gochannel.GoChannel
}

// New creates a Dispatcher that writes dispatch-level audit records through
// sink (which may be a disabled Sink; writes become no-ops per
// internal/audit's env gate).
func New(sink *audit.Sink) *Dispatcher {
	return &Dispatcher{
		audit: sink,
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
	}
}

// Subscribe returns a channel of telemetry messages published after each
// dispatch pass. Callers that never subscribe pay nothing extra: gochannel
// only buffers messages for topics with at least one active subscriber.
func (d *Dispatcher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return d.pubsub.Subscribe(ctx, TelemetryTopic)
}

// Close releases the underlying pubsub transport.
func (d *Dispatcher) Close() error {
	return d.pubsub.Close()
}

func (d *Dispatcher) publishTelemetry(event *hostapi.Event, sessionID string, rejected bool) {
	payload, err := json.Marshal(telemetryMessage{
		EventType: string(event.Type),
		Directory: event.Directory,
		SessionID: sessionID,
		Rejected:  rejected,
	})
	if err != nil {
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	// Best-effort: gochannel.Publish only errors if the transport is closed,
	// which would mean the host process is shutting down anyway.
	_ = d.pubsub.Publish(TelemetryTopic, msg)
}

// Register adds hook to the registry. Order of Register calls does not
// determine dispatch order; Dispatch resolves that from policy each time.
func (d *Dispatcher) Register(hook Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, hook)
}

// effectiveOrder resolves the hook list for one dispatch call, per spec
// §4.1 step 1: explicit policy.hooks.order wins (unknown ids silently
// skipped), otherwise ascending priority then lexical id; policy.hooks.disabled
// is always excluded.
func (d *Dispatcher) effectiveOrder(policy *gatewayconfig.Policy) []Hook {
	d.mu.Lock()
	byID := make(map[string]Hook, len(d.hooks))
	all := make([]Hook, len(d.hooks))
	copy(all, d.hooks)
	d.mu.Unlock()

	for _, h := range all {
		byID[h.ID] = h
	}

	disabled := make(map[string]bool, len(policy.Hooks.Disabled))
	for _, id := range policy.Hooks.Disabled {
		disabled[id] = true
	}

	if len(policy.Hooks.Order) > 0 {
		ordered := make([]Hook, 0, len(policy.Hooks.Order))
		for _, id := range policy.Hooks.Order {
			h, ok := byID[id]
			if !ok || disabled[id] {
				continue
			}
			ordered = append(ordered, h)
		}
		return ordered
	}

	filtered := make([]Hook, 0, len(all))
	for _, h := range all {
		if !disabled[h.ID] {
			filtered = append(filtered, h)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Priority != filtered[j].Priority {
			return filtered[i].Priority < filtered[j].Priority
		}
		return filtered[i].ID < filtered[j].ID
	})
	return filtered
}

// Dispatch runs event through the effective hook list in order. It returns
// the first guard rejection encountered (stopping the pipeline); all other
// hook errors are swallowed and audited. After a full pass, one
// "event_dispatch" audit record is emitted.
func (d *Dispatcher) Dispatch(ctx context.Context, policy *gatewayconfig.Policy, event *hostapi.Event) error {
	if !policy.Hooks.Enabled {
		return nil
	}

	sessionID := event.ResolveSessionID()
	for _, hook := range d.effectiveOrder(policy) {
		err := hook.Handle(ctx, event)
		if err == nil {
			continue
		}

		if rejection, ok := hookerr.AsGuardRejection(err); ok {
			d.audit.Write(event.Directory, audit.Record{
				Hook:       rejection.HookID,
				Stage:      "dispatch",
				EventType:  string(event.Type),
				ReasonCode: rejection.ReasonCode,
				SessionID:  sessionID,
				Fields:     map[string]any{"message": rejection.Message},
			})
			d.publishTelemetry(event, sessionID, true)
			return rejection
		}

		gatewaylog.Warn().
			Str("hook", hook.ID).
			Str("event_type", string(event.Type)).
			Err(err).
			Msg("hook handler failed, swallowing")
		d.audit.Write(event.Directory, audit.Record{
			Hook:       hook.ID,
			Stage:      "dispatch",
			EventType:  string(event.Type),
			ReasonCode: "host_api_error",
			SessionID:  sessionID,
			Fields:     map[string]any{"error": err.Error()},
		})
	}

	d.audit.Write(event.Directory, audit.Record{
		Stage:      "dispatch",
		EventType:  string(event.Type),
		ReasonCode: "event_dispatch",
		SessionID:  sessionID,
	})
	d.publishTelemetry(event, sessionID, false)
	return nil
}
