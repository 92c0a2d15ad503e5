// Package compactiontodopreserver implements compaction-todo-preserver
// (advisory family): captures the most recent todowrite snapshot
// per session, and on session.compacted re-injects it via
// host.SessionPromptAsync so the freshly summarized context doesn't lose
// track of in-flight todo items the compaction just dropped.
package compactiontodopreserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/runtimemap"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "compaction-todo-preserver"

func New(host hostapi.Host, sink *audit.Sink) dispatch.Hook {
	snapshots := runtimemap.New[string](0)
	return dispatch.Hook{ID: ID, Priority: 49, Handle: handler(host, sink, snapshots)}
}

func handler(host hostapi.Host, sink *audit.Sink, snapshots *runtimemap.Map[string]) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}

		switch event.Type {
		case hostapi.EventToolExecuteBefore:
			in, ok := hostapi.DecodeToolBefore(event)
			if !ok || !strings.EqualFold(in.Tool, "todowrite") {
				return nil
			}
			snapshots.Set(sessionID, formatSnapshot(in.Args))
			return nil

		case hostapi.EventSessionCompacted:
			snapshot, ok := snapshots.Get(sessionID)
			if !ok || snapshot == "" {
				return nil
			}
			body := hostapi.PromptBody{Parts: []hostapi.Part{{
				Type:      "text",
				Text:      "Context was just compacted. Restoring the tracked todo list so it isn't lost:\n" + snapshot,
				Synthetic: true,
			}}}
			if err := host.SessionPromptAsync(ctx, sessionID, body); err != nil {
				return nil
			}
			sink.Write(event.Directory, audit.Record{
				Hook:       ID,
				Stage:      "inject",
				EventType:  string(event.Type),
				ReasonCode: "compaction_todo_preserved",
				SessionID:  sessionID,
			})
			return nil

		default:
			return nil
		}
	}
}

func formatSnapshot(args map[string]any) string {
	todos, ok := args["todos"].([]any)
	if !ok {
		data, err := json.Marshal(args)
		if err != nil {
			return ""
		}
		return string(data)
	}

	var lines []string
	for _, item := range todos {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		content, _ := entry["content"].(string)
		status, _ := entry["status"].(string)
		if content == "" {
			continue
		}
		if status == "" {
			status = "pending"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s", status, content))
	}
	return strings.Join(lines, "\n")
}
