// Package audit implements the append-only JSONL event log: size-triggered
// rotation with N backups, environment-gated writes, and best-effort I/O
// that never fails the event it is auditing.
//
// The write path follows the same write-then-rename discipline
// storage.Storage.Put uses for JSON documents elsewhere in this codebase,
// applied here to an append workload instead of a whole-file replace.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	defaultMaxBytes   = 1 << 20 // 1 MiB
	defaultMaxBackups = 5
	relPath           = ".opencode/gateway-events.jsonl"
)

// Record is one audit line. Timestamp and ID are stamped by Sink.Write;
// callers supply everything else.
type Record struct {
	Timestamp string         `json:"timestamp"`
	ID        string         `json:"id"`
	Hook      string         `json:"hook,omitempty"`
	Stage     string         `json:"stage,omitempty"` // dispatch | inject | skip | state
	EventType string         `json:"event_type,omitempty"`
	ReasonCode string        `json:"reason_code"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"-"`
}

// MarshalJSON flattens Fields alongside the named columns so records stay a
// single flat JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"timestamp":   r.Timestamp,
		"id":          r.ID,
		"reason_code": r.ReasonCode,
	}
	if r.Hook != "" {
		m["hook"] = r.Hook
	}
	if r.Stage != "" {
		m["stage"] = r.Stage
	}
	if r.EventType != "" {
		m["event_type"] = r.EventType
	}
	if r.SessionID != "" {
		m["session_id"] = r.SessionID
	}
	for k, v := range r.Fields {
		m[k] = v
	}
	return json.Marshal(m)
}

// Sink appends audit records to a per-directory JSONL file, rotating it by
// size. One Sink instance is expected per Gateway; it synchronizes its own
// writes, but concurrent writers for distinct directories must use distinct
// Sink instances.
type Sink struct {
	mu         sync.Mutex
	enabled    bool
	maxBytes   int64
	maxBackups int
	lastErr    error
}

// Option configures a Sink.
type Option func(*Sink)

// WithEnabled overrides the MY_OPENCODE_GATEWAY_EVENT_AUDIT gate.
func WithEnabled(enabled bool) Option { return func(s *Sink) { s.enabled = enabled } }

// WithMaxBytes overrides the rotation threshold.
func WithMaxBytes(n int64) Option {
	return func(s *Sink) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithMaxBackups overrides the number of retained rotated files.
func WithMaxBackups(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.maxBackups = n
		}
	}
}

// New creates a Sink. By default it is gated by MY_OPENCODE_GATEWAY_EVENT_AUDIT
// and sized via MY_OPENCODE_GATEWAY_EVENT_AUDIT_MAX_BYTES / _MAX_BACKUPS.
func New(opts ...Option) *Sink {
	s := &Sink{
		enabled:    os.Getenv("MY_OPENCODE_GATEWAY_EVENT_AUDIT") == "true",
		maxBytes:   defaultMaxBytes,
		maxBackups: defaultMaxBackups,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enabled reports whether the sink will actually write.
func (s *Sink) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// LastError returns the most recent I/O error the sink swallowed, for test
// inspection: writes are best-effort but the failure is still inspectable.
func (s *Sink) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func auditPath(directory string) string {
	if override := os.Getenv("MY_OPENCODE_GATEWAY_EVENT_AUDIT_PATH"); override != "" {
		return override
	}
	return filepath.Join(directory, relPath)
}

// Path returns the on-disk audit log path for directory, honoring the same
// MY_OPENCODE_GATEWAY_EVENT_AUDIT_PATH override Write uses. Exported for
// read-only consumers (cmd/gateway-plugin's "audit tail") that need the
// path without going through a Sink.
func Path(directory string) string {
	return auditPath(directory)
}

// Write appends one record, stamping Timestamp/ID if unset, rotating first
// if the append would exceed the configured size. Every failure is swallowed
// and recorded to LastError; this method never returns an error because
// auditing must never fail the event it observes.
func (s *Sink) Write(directory string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		s.lastErr = err
		return
	}
	line = append(line, '\n')

	path := auditPath(directory)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.lastErr = err
		return
	}

	if info, err := os.Stat(path); err == nil {
		if info.Size()+int64(len(line)) > s.maxBytes {
			if rerr := s.rotate(path); rerr != nil {
				s.lastErr = rerr
				return
			}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.lastErr = err
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		s.lastErr = err
		return
	}
	s.lastErr = nil
}

// rotate shifts path.1..path.N to path.2..path.N+1 (dropping anything past
// maxBackups) and moves path itself to path.1, so the oldest records end up
// in the highest-index file.
func (s *Sink) rotate(path string) error {
	for i := s.maxBackups; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if i == s.maxBackups {
			if err := os.Remove(src); err != nil {
				return err
			}
			continue
		}
		dst := fmt.Sprintf("%s.%d", path, i+1)
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	if s.maxBackups > 0 {
		return os.Rename(path, fmt.Sprintf("%s.1", path))
	}
	return os.Remove(path)
}
