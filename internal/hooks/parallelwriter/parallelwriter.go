// Package parallelwriter implements parallel-writer-conflict-guard (spec
// §4.8): rejects an edit/write tool call when the host-reported active
// writer count exceeds policy's cap, or when the write path falls outside
// the calling session's own reservation coverage, or overlaps another
// session's active reservation. The host communicates this shared,
// cross-process state via environment variables
// rather than an RPC, since writer coordination happens across independent
// Gateway-host processes sharing one working directory.
package parallelwriter

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "parallel-writer-conflict-guard"

const (
	envActiveWriters          = "MY_OPENCODE_ACTIVE_WRITERS"
	envFileReservationPaths   = "MY_OPENCODE_FILE_RESERVATION_PATHS"
	envActiveReservationPaths = "MY_OPENCODE_ACTIVE_RESERVATION_PATHS"
)

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	return dispatch.Hook{ID: ID, Priority: 14, Handle: handler(policy.Guards.MaxConcurrentWriters)}
}

func handler(maxConcurrentWriters int) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || (in.Tool != "edit" && in.Tool != "write") {
			return nil
		}
		filePath := in.ArgString("filePath")
		if filePath == "" {
			return nil
		}

		if count := activeWriterCount(); count > maxConcurrentWriters {
			return hookerr.Rejectf(ID, "parallel_writer_too_many_active", "active writer count %d exceeds max %d", count, maxConcurrentWriters)
		}

		ownReservations := splitPaths(os.Getenv(envFileReservationPaths))
		if len(ownReservations) > 0 && !hookutil.MatchesAnyGlob(ownReservations, filePath) {
			return hookerr.Rejectf(ID, "parallel_writer_outside_reservation", "path %q is outside this session's file reservation", filePath)
		}

		activeReservations := splitPaths(os.Getenv(envActiveReservationPaths))
		conflicting := subtractPaths(activeReservations, ownReservations)
		if hookutil.MatchesAnyGlob(conflicting, filePath) {
			return hookerr.Rejectf(ID, "parallel_writer_reservation_conflict", "path %q overlaps another session's active reservation", filePath)
		}
		return nil
	}
}

func activeWriterCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envActiveWriters)))
	if err != nil {
		return 0
	}
	return n
}

func splitPaths(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func subtractPaths(all, own []string) []string {
	if len(own) == 0 {
		return all
	}
	ownSet := make(map[string]bool, len(own))
	for _, p := range own {
		ownSet[p] = true
	}
	var out []string
	for _, p := range all {
		if !ownSet[p] {
			out = append(out, p)
		}
	}
	return out
}
