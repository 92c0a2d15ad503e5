// Package inject implements the two sanctioned message-mutation primitives
// injectTextPrefix and insertSyntheticUserPart. Both are total
// functions that return a reason code instead of throwing, the same
// "defensive field extraction with typed fall-throughs" idiom this
// prescribes for the whole core.
package inject

import (
	"strings"

	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// ReasonCode is the closed set of outcomes these primitives can report.
type ReasonCode string

const (
	ReasonInjected             ReasonCode = "injected"
	ReasonTruncated            ReasonCode = "truncated"
	ReasonNoTextPart           ReasonCode = "no_text_part"
	ReasonNoUserMessage        ReasonCode = "no_user_message"
	TruncationMarker                      = "Content truncated due to context window limit"
)

// Outcome reports what InjectTextPrefix / InsertSyntheticUserPart did.
type Outcome struct {
	Reason            ReasonCode
	ContextLenBefore   int
	ContextLenAfter    int
}

// budget truncates content to at most maxChars characters, appending
// TruncationMarker inside that budget when truncation occurs, per spec
// §4.4's truncation rule and §8's truncation-budget property.
func budget(content string, maxChars int) (truncated string, wasTruncated bool) {
	if maxChars <= 0 || len(content) <= maxChars {
		return content, false
	}
	if maxChars <= len(TruncationMarker) {
		// No room to keep both content and marker distinct; the marker
		// itself is the budget.
		return TruncationMarker[:maxChars], true
	}
	keep := maxChars - len(TruncationMarker)
	return content[:keep] + TruncationMarker, true
}

// InjectTextPrefix prepends prefix (merged pending context) to the first
// text part in parts, applying maxChars truncation to prefix beforehand. It
// mutates parts in place and returns whether a text part was found.
func InjectTextPrefix(parts []hostapi.Part, prefix string, maxChars int) ([]hostapi.Part, Outcome) {
	before := len(prefix)
	budgeted, truncated := budget(prefix, maxChars)

	for i := range parts {
		if !parts[i].IsText() {
			continue
		}
		parts[i].Text = budgeted + MergeWithOriginalSeparator + parts[i].Text
		reason := ReasonInjected
		if truncated {
			reason = ReasonTruncated
		}
		return parts, Outcome{Reason: reason, ContextLenBefore: before, ContextLenAfter: len(budgeted)}
	}

	return parts, Outcome{Reason: ReasonNoTextPart, ContextLenBefore: before, ContextLenAfter: 0}
}

// MergeWithOriginalSeparator joins injected content with the original text
// part's content: "<merged>\n\n---\n\n<original text>".
const MergeWithOriginalSeparator = "\n\n---\n\n"

// InsertSyntheticUserPart finds the last message with role "user" and
// inserts a synthetic text part at index 0 of its Parts, applying maxChars
// truncation to text beforehand.
func InsertSyntheticUserPart(messages []hostapi.TransformMessage, text string, maxChars int) ([]hostapi.TransformMessage, Outcome) {
	before := len(text)
	budgeted, truncated := budget(text, maxChars)

	idx := lastUserMessageIndex(messages)
	if idx < 0 {
		return messages, Outcome{Reason: ReasonNoUserMessage, ContextLenBefore: before}
	}

	synthetic := hostapi.Part{Type: "text", Text: budgeted, Synthetic: true}
	messages[idx].Parts = append([]hostapi.Part{synthetic}, messages[idx].Parts...)

	reason := ReasonInjected
	if truncated {
		reason = ReasonTruncated
	}
	return messages, Outcome{Reason: reason, ContextLenBefore: before, ContextLenAfter: len(budgeted)}
}

func lastUserMessageIndex(messages []hostapi.TransformMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Info.Role, "user") {
			return i
		}
	}
	return -1
}
