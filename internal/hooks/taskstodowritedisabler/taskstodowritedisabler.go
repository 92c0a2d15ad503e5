// Package taskstodowritedisabler implements tasks-todowrite-disabler-guard
// rejects a `task` tool call when policy.tasksToolEnabled is
// false, steering the host toward plain todowrite-based tracking instead of
// spawning subagent tasks.
package taskstodowritedisabler

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "tasks-todowrite-disabler-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 22, Handle: handler(policy.Guards.TasksToolEnabled)}
}

func handler(tasksToolEnabled bool) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if tasksToolEnabled || event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "task" {
			return nil
		}
		return hookerr.Rejectf(ID, "tasks_tool_disabled", "the task tool is disabled; use todowrite to track work instead")
	}
}
