package dependencyrisk

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

func editEvent(dir, filePath, newString, sessionID string) *hostapi.Event {
	payload, _ := json.Marshal(map[string]any{
		"tool": "edit",
		"args": map[string]any{"filePath": filePath, "newString": newString},
	})
	return &hostapi.Event{Type: hostapi.EventToolExecuteBefore, Directory: dir, Input: payload, InputSessionID: sessionID}
}

func TestRegistersReminderForNewDependencyLine(t *testing.T) {
	dir := t.TempDir()
	goMod := filepath.Join(dir, "go.mod")
	if err := os.WriteFile(goMod, []byte("module example.com/x\n\nrequire github.com/foo/bar v1.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	coll := collector.New()
	hook := New(gatewayconfig.Default(), coll)

	newContent := "module example.com/x\n\nrequire github.com/foo/bar v1.0.0\nrequire github.com/new/dep v2.3.4\n"
	ev := editEvent(dir, "go.mod", newContent, "s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := coll.Consume("s1")
	if !result.HasContent {
		t.Fatal("expected a registered reminder")
	}
}

func TestIgnoresNonManifestFile(t *testing.T) {
	dir := t.TempDir()
	coll := collector.New()
	hook := New(gatewayconfig.Default(), coll)

	ev := editEvent(dir, "main.go", "package main\nconst v = \"1.2.3\"\n", "s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.HasPending("s1") {
		t.Error("expected no reminder for a non-manifest file")
	}
}

func TestIgnoresEditWithoutVersionLikeLine(t *testing.T) {
	dir := t.TempDir()
	goMod := filepath.Join(dir, "go.mod")
	if err := os.WriteFile(goMod, []byte("module example.com/x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	coll := collector.New()
	hook := New(gatewayconfig.Default(), coll)

	ev := editEvent(dir, "go.mod", "module example.com/x\n\ngo 1.21\n", "s1")
	if err := hook.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.HasPending("s1") {
		t.Error("expected no reminder when no dependency-looking line was added")
	}
}
