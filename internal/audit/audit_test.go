package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	s := New()
	s.Write(dir, Record{ReasonCode: "event_dispatch"})

	if _, err := os.Stat(filepath.Join(dir, relPath)); !os.IsNotExist(err) {
		t.Fatalf("expected no audit file when disabled, stat err=%v", err)
	}
}

func TestWriteAppendsLine(t *testing.T) {
	dir := t.TempDir()
	s := New(WithEnabled(true))
	s.Write(dir, Record{ReasonCode: "event_dispatch", EventType: "chat.message"})
	s.Write(dir, Record{ReasonCode: "context_inject_chat", SessionID: "s1"})

	data, err := os.ReadFile(filepath.Join(dir, relPath))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], `"session_id":"s1"`) {
		t.Errorf("expected session_id field in second line, got %s", lines[1])
	}
	if s.LastError() != nil {
		t.Errorf("expected no error, got %v", s.LastError())
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	s := New(WithEnabled(true), WithMaxBytes(200), WithMaxBackups(2))

	// Each record is well under 200 bytes; after enough writes the active
	// file must rotate and backups must be capped at 2.
	for i := 0; i < 80; i++ {
		s.Write(dir, Record{ReasonCode: "event_dispatch", Fields: map[string]any{"i": i}})
	}

	path := filepath.Join(dir, relPath)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected active file to exist: %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected .1 backup to exist: %v", err)
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Fatalf("expected .2 backup to exist: %v", err)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected no .3 backup beyond maxBackups, err=%v", err)
	}

	// The oldest records should now live in the highest-index backup file.
	f, err := os.Open(path + ".2")
	if err != nil {
		t.Fatalf("open .2: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected at least one line in .2 backup")
	}
	if !strings.Contains(scanner.Text(), `"i":0`) {
		t.Errorf("expected oldest record (i=0) in highest-index backup, got %s", scanner.Text())
	}
}
