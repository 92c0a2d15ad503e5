// Package windowusage provides the token-usage estimate shared by
// context-window-monitor and preemptive-compaction: the latest message's
// provider-reported token counts, and the effective context-window size
// for the active model family. Grounded on the `session.messages`
// host-API shape (`Message.info.tokens: {input, cache: {read}}`), which
// the Gateway treats as ground truth rather than re-tokenizing text
// itself.
package windowusage

import (
	"context"
	"os"

	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// LatestTokens returns the total context footprint (input + cache-read) of
// the most recent message in sessionID's history that reports token usage.
// ok is false if the host call fails or no message carries usage data.
func LatestTokens(ctx context.Context, host hostapi.Host, sessionID string) (int, bool) {
	messages, err := host.SessionMessages(ctx, sessionID)
	if err != nil {
		return 0, false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := messages[i].Tokens
		if tokens == nil {
			continue
		}
		return tokens.Input + tokens.Cache.Read, true
	}
	return 0, false
}

// EffectiveWindow returns the context-window token budget in force: the
// extended window when ANTHROPIC_1M_CONTEXT is set, else the
// policy default.
func EffectiveWindow(adv gatewayconfig.AdvisoryPolicy) int {
	if os.Getenv("ANTHROPIC_1M_CONTEXT") != "" {
		return adv.ExtendedWindowTokens
	}
	return adv.DefaultWindowTokens
}
