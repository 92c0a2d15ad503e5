// Package hookerr defines the structured error a guard hook uses to reject
// an event, the only error category that crosses the host boundary
// It plays the same role here that
// permission.RejectedError plays in the reference OpenCode server: a typed,
// user-facing rejection distinct from an ordinary Go error.
package hookerr

import "fmt"

// GuardRejection is returned by a guard hook to reject the in-flight event.
// The dispatcher stops iterating the hook list and propagates this value to
// the host unchanged.
type GuardRejection struct {
	HookID     string
	ReasonCode string
	Message    string
}

func (e *GuardRejection) Error() string {
	return fmt.Sprintf("%s: %s", e.HookID, e.Message)
}

// Reject constructs a GuardRejection.
func Reject(hookID, reasonCode, message string) *GuardRejection {
	return &GuardRejection{HookID: hookID, ReasonCode: reasonCode, Message: message}
}

// Rejectf is Reject with a formatted message.
func Rejectf(hookID, reasonCode, format string, args ...any) *GuardRejection {
	return Reject(hookID, reasonCode, fmt.Sprintf(format, args...))
}

// AsGuardRejection reports whether err is (or wraps) a *GuardRejection.
func AsGuardRejection(err error) (*GuardRejection, bool) {
	if err == nil {
		return nil, false
	}
	gr, ok := err.(*GuardRejection)
	return gr, ok
}
