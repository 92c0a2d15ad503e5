// Package autopilotloop implements the autopilot-loop-command hook:
// recognizes an autopilot slash command in either the form it arrives in —
// typed (command.execute.before, the literal "/autopilot ...") or rendered
// template (tool.execute.before on a bash invocation of the autopilot
// command script) — resolves its action, and drives the continuation loop
// state machine's start/stop/pause/resume transitions. It never rejects —
// an unrecognized or malformed command is simply ignored ("parse failure
// ... treated as non-matching and ignored; no state change").
package autopilotloop

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
	"github.com/opencode-ai/opencode-gateway/internal/loop"
	"github.com/opencode-ai/opencode-gateway/internal/slashcmd"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "autopilot-loop-command"

func New(policy *gatewayconfig.Policy, machine *loop.Machine) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 31, Handle: handler(machine, policy.Loop)}
}

func handler(machine *loop.Machine, loopPolicy gatewayconfig.LoopPolicy) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		var parsed slashcmd.Parsed
		var matched bool

		switch event.Type {
		case hostapi.EventCommandExecuteBefore:
			in, ok := hostapi.DecodeToolBefore(event)
			if !ok {
				return nil
			}
			raw := in.ArgString("command")
			if raw == "" {
				return nil
			}
			parsed, matched = slashcmd.ParseSlashCommand(raw)
			if !matched {
				parsed, matched = slashcmd.ParseAutopilotTemplateCommand(raw)
			}
		case hostapi.EventToolExecuteBefore:
			in, ok := hostapi.DecodeToolBefore(event)
			if !ok || in.Tool != "bash" {
				return nil
			}
			raw := in.ArgString("command")
			if raw == "" {
				return nil
			}
			parsed, matched = slashcmd.ParseAutopilotTemplateCommand(raw)
		default:
			return nil
		}

		if !matched {
			return nil
		}

		action := slashcmd.ResolveAutopilotAction(parsed.Name, parsed.Args)
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		var err error
		switch action {
		case slashcmd.ActionStart:
			goal := slashcmd.ParseGoal(parsed.Args)
			if goal == "" {
				return nil
			}
			mode := gatewaystate.CompletionModePromise
			if slashcmd.ParseCompletionMode(parsed.Args) == "objective" {
				mode = gatewaystate.CompletionModeObjective
			}
			promise := slashcmd.ParseCompletionPromise(parsed.Args, loopPolicy.DefaultCompletionPromise)
			maxIterations := slashcmd.ParseMaxIterations(parsed.Args, loopPolicy.DefaultMaxIterations)
			doneCriteria := slashcmd.ParseDoneCriteria(parsed.Args)
			err = machine.Start(event.Directory, sessionID, goal, doneCriteria, mode, promise, maxIterations)
		case slashcmd.ActionStop:
			err = machine.Stop(event.Directory, "autopilot_stop_command")
		case slashcmd.ActionPause:
			err = machine.Pause(event.Directory)
		case slashcmd.ActionResume:
			err = machine.Resume(event.Directory)
		default:
			return nil
		}

		if err != nil {
			gatewaylog.Warn().Str("hook", ID).Err(err).Msg("autopilot command failed to apply")
		}
		return nil
	}
}
