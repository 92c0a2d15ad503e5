// Package writeexistingfile implements write-existing-file-guard (spec
// §4.8): rejects a `write` tool call whose target file already exists,
// steering the caller toward `edit`, unless the path matches one of
// policy's exempt globs (default ".sisyphus/*.md").
package writeexistingfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/hookerr"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/hookutil"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "write-existing-file-guard"

func New(policy *gatewayconfig.Policy) dispatch.Hook {
	exempt := policy.Guards.WriteExistingFileExemptGlobs
	return dispatch.Hook{ID: ID, Priority: 12, Handle: handler(exempt)}
}

func handler(exemptGlobs []string) dispatch.HandlerFunc {
	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || in.Tool != "write" {
			return nil
		}
		relPath := in.ArgString("filePath")
		if relPath == "" {
			return nil
		}
		if hookutil.MatchesAnyGlob(exemptGlobs, relPath) {
			return nil
		}

		fullPath := relPath
		if event.Directory != "" && !filepath.IsAbs(relPath) {
			fullPath = filepath.Join(event.Directory, relPath)
		}
		if _, err := os.Stat(fullPath); err != nil {
			return nil // does not exist (or unreadable): nothing to guard.
		}
		return hookerr.Rejectf(ID, "blocked_existing_write", "file %q already exists. Use edit tool instead", relPath)
	}
}
