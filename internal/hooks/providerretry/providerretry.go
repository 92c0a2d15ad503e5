// Package providerretry holds classifyProviderRetryReason, the
// table shared by provider-error-classifier and provider-retry-backoff-
// guidance: a closed set of provider error categories, each with a
// retryability verdict, derived from substring matches against the
// provider's own error message text (the host API exposes no structured
// error code, only MessageError.Message).
package providerretry

import (
	"regexp"
	"strconv"
	"strings"
)

// Classification is the category+retryability verdict for one provider
// error message.
type Classification struct {
	Category  string
	Retryable bool
}

// Classify maps a provider error message to a Classification. Order
// matters: context-overflow phrasing is checked first since it can
// otherwise overlap with generic "too many"/"limit" wording.
func Classify(message string) Classification {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "context length", "maximum context", "context_length_exceeded", "too many tokens", "context window exceeded"):
		return Classification{Category: "context_overflow", Retryable: false}
	case containsAny(lower, "rate limit", "429", "too many requests"):
		return Classification{Category: "rate_limited", Retryable: true}
	case containsAny(lower, "timeout", "connection reset", "econnreset", "network error"):
		return Classification{Category: "transient_network", Retryable: true}
	case containsAny(lower, "500", "502", "503", "internal server error", "service unavailable", "bad gateway"):
		return Classification{Category: "server_error", Retryable: true}
	case containsAny(lower, "invalid api key", "unauthorized", "401", "403", "forbidden"):
		return Classification{Category: "auth_error", Retryable: false}
	default:
		return Classification{Category: "unknown", Retryable: true}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry-after-ms[:=]\s*(\d+)`)

// RetryAfterMs extracts an explicit retry-after-ms hint from a provider
// error message, when the provider embedded one, in place of a dedicated
// response header the host API does not surface.
func RetryAfterMs(message string) (int, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
