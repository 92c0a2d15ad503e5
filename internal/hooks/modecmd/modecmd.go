// Package modecmd extracts an agent-mode slash command ("/plan", "/build",
// or any other leading "/name") from a chat.message payload's text parts,
// shared by mode-transition-reminder and plan-handoff-reminder so both
// hooks agree on what counts as a mode switch.
package modecmd

import (
	"github.com/opencode-ai/opencode-gateway/internal/slashcmd"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// modeNames is the closed set of recognized agent-mode commands; any other
// slash command is ignored for mode-transition purposes.
var modeNames = map[string]bool{
	"plan":  true,
	"build": true,
	"code":  true,
}

// FromChatMessage scans out.Parts for the first text part that opens with a
// recognized mode command, returning its canonical name and ok=true.
func FromChatMessage(out hostapi.ChatMessageOutput) (string, bool) {
	for i := range out.Parts {
		part := &out.Parts[i]
		if !part.IsText() {
			continue
		}
		parsed, ok := slashcmd.ParseSlashCommand(part.Text)
		if !ok {
			continue
		}
		if modeNames[parsed.Name] {
			return parsed.Name, true
		}
	}
	return "", false
}
