// Package dependencyrisk implements dependency-risk-guard
// supplemented: named in the hook suite but not detailed in the original
// table). It never rejects: when a write/edit targets a dependency
// manifest and the diff introduces a new dependency line, it registers a
// pending-context entry reminding the continuation loop to record the new
// dependency's provenance, grounded on OpenCode's manifest-walking
// idiom (project.FromDirectory) applied here to single-file diffing
// instead of whole-tree discovery.
package dependencyrisk

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

const ID = "dependency-risk-guard"

// dependencyLinePatterns match a line plausibly declaring a dependency in
// one of the manifest formats listed in policy.Guards.ManifestFiles:
// go.mod's "require path vX.Y.Z", package.json's quoted "name": "range",
// requirements.txt's "name==X.Y.Z", and Cargo.toml's "name = "X.Y.Z"".
var dependencyLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^require\s+\S+\s+v[0-9]+\.[0-9]+`),
	regexp.MustCompile(`^"[^"]+"\s*:\s*"[^"]*[0-9]+\.[0-9]+`),
	regexp.MustCompile(`^[A-Za-z0-9_.\-]+\s*==\s*[0-9]+\.[0-9]+`),
	regexp.MustCompile(`^[A-Za-z0-9_.\-]+\s*=\s*"[0-9]+\.[0-9]+`),
}

func looksLikeDependencyLine(line string) bool {
	for _, p := range dependencyLinePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func New(policy *gatewayconfig.Policy, coll *collector.Collector) dispatch.Hook {
	manifests := policy.Guards.ManifestFiles
	return dispatch.Hook{ID: ID, Priority: 23, Handle: handler(manifests, coll)}
}

func handler(manifestFiles []string, coll *collector.Collector) dispatch.HandlerFunc {
	manifestSet := make(map[string]bool, len(manifestFiles))
	for _, name := range manifestFiles {
		manifestSet[name] = true
	}

	return func(ctx context.Context, event *hostapi.Event) error {
		if event.Type != hostapi.EventToolExecuteBefore {
			return nil
		}
		in, ok := hostapi.DecodeToolBefore(event)
		if !ok || (in.Tool != "write" && in.Tool != "edit") {
			return nil
		}
		relPath := in.ArgString("filePath")
		if relPath == "" || !manifestSet[filepath.Base(relPath)] {
			return nil
		}

		newContent := newContentFor(in)
		if newContent == "" {
			return nil
		}

		fullPath := relPath
		if event.Directory != "" && !filepath.IsAbs(relPath) {
			fullPath = filepath.Join(event.Directory, relPath)
		}
		existing := ""
		if data, err := os.ReadFile(fullPath); err == nil {
			existing = string(data)
		}

		added := addedDependencyLines(existing, newContent)
		if len(added) == 0 {
			return nil
		}

		sessionID := event.ResolveSessionID()
		if sessionID == "" {
			return nil
		}
		reminder := "New dependency line(s) detected in " + relPath + ":\n" + strings.Join(added, "\n") +
			"\nRecord provenance (why this dependency, what it replaces or enables) before the change lands."
		coll.Register(sessionID, ID, relPath, reminder, collector.PriorityNormal, map[string]any{"file": relPath, "addedLines": len(added)})
		return nil
	}
}

func newContentFor(in hostapi.ToolBeforeInput) string {
	if in.Tool == "write" {
		return in.ArgString("content")
	}
	return in.ArgString("newString")
}

// addedDependencyLines returns lines present in newContent but not in
// existing that also look like a dependency declaration. A manifest with
// no prior content (new file) treats every dependency-looking line as
// added.
func addedDependencyLines(existing, newContent string) []string {
	existingLines := make(map[string]bool)
	for _, line := range strings.Split(existing, "\n") {
		existingLines[strings.TrimSpace(line)] = true
	}

	var added []string
	for _, line := range strings.Split(newContent, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || existingLines[trimmed] {
			continue
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if looksLikeDependencyLine(trimmed) {
			added = append(added, trimmed)
		}
	}
	return added
}
