package loop

import (
	"encoding/json"
	"os"
)

// RuntimeStatus mirrors the read-only runtime-status JSON the enclosing
// CLI/slash-command scripts write: path from env
// MY_OPENCODE_AUTOPILOT_RUNTIME_PATH.
type RuntimeStatus struct {
	Status    string `json:"status"`
	Objective struct {
		Goal              string   `json:"goal"`
		CompletionMode    string   `json:"completion_mode"`
		CompletionPromise string   `json:"completion_promise"`
		DoneCriteria      []string `json:"done_criteria"`
	} `json:"objective"`
	Progress struct {
		CompletedCycles int `json:"completed_cycles"`
		PendingCycles   int `json:"pending_cycles"`
	} `json:"progress"`
	Blockers []string `json:"blockers"`
}

// terminalStatuses are runtime statuses that honor a promise token as
// terminal rather than treating it as ignored.
var terminalStatuses = map[string]bool{
	"budget_stopped": true,
	"completed":      true,
	"failed":         true,
	"cancelled":      true,
}

// IsTerminal reports whether status is one of the terminal values.
func (r *RuntimeStatus) IsTerminal() bool {
	return r != nil && terminalStatuses[r.Status]
}

// IsRunningIncomplete reports whether the runtime is still running with
// outstanding work, per the runtime-incomplete override:
// "status ∈ {running} AND (blockers non-empty OR progress.pending_cycles > 0)".
func (r *RuntimeStatus) IsRunningIncomplete() bool {
	if r == nil || r.Status != "running" {
		return false
	}
	return len(r.Blockers) > 0 || r.Progress.PendingCycles > 0
}

// ReadRuntimeStatus reads and parses the runtime status file at the path
// named by MY_OPENCODE_AUTOPILOT_RUNTIME_PATH. Returns nil, nil if the env
// var is unset, the file is missing, or it fails to parse — the runtime
// file is an optional, best-effort signal, never a hard dependency.
func ReadRuntimeStatus() (*RuntimeStatus, error) {
	path := os.Getenv("MY_OPENCODE_AUTOPILOT_RUNTIME_PATH")
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}

	var status RuntimeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, nil
	}
	return &status, nil
}
