// Package loop implements the Continuation Loop State Machine:
// ownership of the persisted ActiveLoop record, slash-command-driven
// start/stop/pause/resume transitions, and the session.idle-driven
// re-prompt cycle with its promise/objective completion evaluation and
// runtime-incomplete override.
package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const (
	promiseOpenTag  = "<promise>"
	promiseCloseTag = "</promise>"
)

// Machine owns ActiveLoop transitions for a single Gateway instance. Its
// only mutable state lives in the GatewayState file the Store persists;
// Machine itself holds no per-directory in-memory cache, so persistence
// failures never leave the in-memory and on-disk views out of sync (spec
// §4.2's "in-memory loop state is not advanced if persistence fails" falls
// out naturally from always re-reading before mutating).
type Machine struct {
	Store     *gatewaystate.Store
	Collector *collector.Collector
	Host      hostapi.Host
}

// New creates a Machine.
func New(store *gatewaystate.Store, coll *collector.Collector, host hostapi.Host) *Machine {
	return &Machine{Store: store, Collector: coll, Host: host}
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// Start implements Inactive → Active: creates ActiveLoop with iteration=1.
func (m *Machine) Start(directory, sessionID, objective string, doneCriteria []string, mode gatewaystate.CompletionMode, completionPromise string, maxIterations uint64) error {
	state, err := m.Store.Load(directory)
	if err != nil {
		return err
	}
	if state == nil {
		state = &gatewaystate.GatewayState{}
	}

	state.ActiveLoop = &gatewaystate.ActiveLoop{
		Active:            true,
		SessionID:         sessionID,
		Objective:         objective,
		DoneCriteria:      doneCriteria,
		CompletionMode:    mode,
		CompletionPromise: completionPromise,
		Iteration:         1,
		MaxIterations:     maxIterations,
		StartedAt:         nowISO(),
	}
	state.Source = "start"
	state.LastUpdatedAt = nowISO()
	return m.Store.Save(directory, state)
}

// Stop implements Active → Stopped: deactivates but retains fields.
func (m *Machine) Stop(directory, source string) error {
	state, err := m.Store.Load(directory)
	if err != nil || state == nil || state.ActiveLoop == nil {
		return err
	}
	state.ActiveLoop.Active = false
	state.Source = source
	state.LastUpdatedAt = nowISO()
	return m.Store.Save(directory, state)
}

// Pause writes active=false but preserves objective/doneCriteria/completionMode,
// so a subsequent Resume re-activates the same record.
func (m *Machine) Pause(directory string) error {
	state, err := m.Store.Load(directory)
	if err != nil || state == nil || state.ActiveLoop == nil {
		return err
	}
	state.ActiveLoop.Active = false
	state.Source = "pause"
	state.LastUpdatedAt = nowISO()
	return m.Store.Save(directory, state)
}

// Resume re-activates a paused (but not stopped-and-forgotten) record.
func (m *Machine) Resume(directory string) error {
	state, err := m.Store.Load(directory)
	if err != nil || state == nil || state.ActiveLoop == nil {
		return err
	}
	state.ActiveLoop.Active = true
	state.Source = "resume"
	state.LastUpdatedAt = nowISO()
	return m.Store.Save(directory, state)
}

// IdleOptions configures one HandleIdle call.
type IdleOptions struct {
	MaxIgnoredCompletionCycles uint64
	BootstrapFromRuntime       bool
}

// HandleIdle implements the session.idle-driven Active → Active (next
// iteration) / Stopped / Stalled-Deactivated transitions.
// lastAssistantMessage is the text of the most recent assistant message for
// sessionID, or "" if none is available.
func (m *Machine) HandleIdle(ctx context.Context, directory, sessionID, lastAssistantMessage string, opts IdleOptions) error {
	state, err := m.Store.Load(directory)
	if err != nil {
		return err
	}

	runtime, _ := ReadRuntimeStatus()

	if state == nil || state.ActiveLoop == nil || !state.ActiveLoop.Active {
		if !opts.BootstrapFromRuntime || runtime == nil || runtime.Status != "running" {
			return nil
		}
		state = bootstrapState(sessionID, runtime)
	}

	loop := state.ActiveLoop
	if loop.SessionID != sessionID {
		return nil
	}

	satisfied := m.evaluateCompletion(loop, lastAssistantMessage, runtime)

	if satisfied {
		if runtime.IsRunningIncomplete() {
			loop.IgnoredCompletionCycles++
			if loop.IgnoredCompletionCycles >= opts.MaxIgnoredCompletionCycles {
				loop.Active = false
				state.Source = "gateway_loop_completion_stalled_runtime"
				state.LastUpdatedAt = nowISO()
				return m.Store.Save(directory, state)
			}
			// Fall through: still running, so this cycle advances and
			// re-prompts rather than terminating.
		} else {
			loop.Active = false
			state.Source = "loop_completed"
			state.LastUpdatedAt = nowISO()
			return m.Store.Save(directory, state)
		}
	}

	if loop.MaxIterations > 0 && loop.Iteration+1 > loop.MaxIterations {
		loop.Active = false
		state.Source = "max_iterations_reached"
		state.LastUpdatedAt = nowISO()
		return m.Store.Save(directory, state)
	}

	loop.Iteration++
	state.Source = "continuation"
	state.LastUpdatedAt = nowISO()

	m.Collector.Register(sessionID, "autopilot-loop", sessionID,
		objectiveSummary(loop), collector.PriorityNormal, nil)

	if err := m.Host.SessionPromptAsync(ctx, sessionID, continuationPrompt(loop)); err != nil {
		return fmt.Errorf("continuation prompt: %w", err)
	}

	return m.Store.Save(directory, state)
}

func (m *Machine) evaluateCompletion(loop *gatewaystate.ActiveLoop, lastAssistantMessage string, runtime *RuntimeStatus) bool {
	switch loop.CompletionMode {
	case gatewaystate.CompletionModeObjective:
		return runtime.IsTerminal()
	default: // CompletionModePromise
		return detectPromiseToken(lastAssistantMessage, loop.CompletionPromise)
	}
}

// detectPromiseToken scans message for a <promise>...</promise> span whose
// inner content contains promise as a literal, case-sensitive substring.
func detectPromiseToken(message, promise string) bool {
	if promise == "" {
		return false
	}
	start := strings.Index(message, promiseOpenTag)
	if start < 0 {
		return false
	}
	rest := message[start+len(promiseOpenTag):]
	end := strings.Index(rest, promiseCloseTag)
	if end < 0 {
		return false
	}
	return strings.Contains(rest[:end], promise)
}

func bootstrapState(sessionID string, runtime *RuntimeStatus) *gatewaystate.GatewayState {
	mode := gatewaystate.CompletionModePromise
	if runtime.Objective.CompletionMode == "objective" {
		mode = gatewaystate.CompletionModeObjective
	}
	promise := runtime.Objective.CompletionPromise
	if promise == "" {
		promise = "DONE"
	}
	return &gatewaystate.GatewayState{
		Source: "bootstrap_from_runtime",
		ActiveLoop: &gatewaystate.ActiveLoop{
			Active:            true,
			SessionID:         sessionID,
			Objective:         runtime.Objective.Goal,
			DoneCriteria:      runtime.Objective.DoneCriteria,
			CompletionMode:    mode,
			CompletionPromise: promise,
			Iteration:         1,
			StartedAt:         nowISO(),
		},
	}
}

func objectiveSummary(loop *gatewaystate.ActiveLoop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s", loop.Objective)
	if len(loop.DoneCriteria) > 0 {
		b.WriteString("\nDone criteria:\n")
		for _, c := range loop.DoneCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// continuationPrompt synthesizes the re-prompt body, including the
// persisted objective, done criteria, and the explicit instruction not to
// re-prompt the user for checklist items.
func continuationPrompt(loop *gatewaystate.ActiveLoop) hostapi.PromptBody {
	var b strings.Builder
	fmt.Fprintf(&b, "Continue working toward the objective: %s\n", loop.Objective)
	if len(loop.DoneCriteria) > 0 {
		b.WriteString("Remaining checklist items:\n")
		for _, c := range loop.DoneCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("Do not ask the user for checklist items; work through them autonomously.")

	return hostapi.PromptBody{
		Parts: []hostapi.Part{{Type: "text", Text: b.String()}},
	}
}
