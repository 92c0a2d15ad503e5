// Package slashcmd implements the pure, I/O-free slash-command parsing and
// canonicalization contract: splitting `/name args`, folding
// legacy aliases, recognizing rendered Python-template invocations, and
// extracting the autopilot loop's flags. It borrows the
// named-argument-regex idiom from OpenCode's command.Executor.parseArguments
// (`--flag value` / `--flag=value`), adapted to the fixed, closed flag set
// the autopilot loop actually uses instead of an open template context.
package slashcmd

import (
	"regexp"
	"strings"
)

// Parsed is the result of splitting a raw slash-command line.
type Parsed struct {
	Name string
	Args string
}

// ParseSlashCommand splits a leading "/name" from its remainder. name is
// lowercased; arg spacing is preserved verbatim. Input not starting with
// "/" yields a zero-value Parsed with ok=false.
func ParseSlashCommand(raw string) (Parsed, bool) {
	raw = strings.TrimLeft(raw, " \t")
	if !strings.HasPrefix(raw, "/") {
		return Parsed{}, false
	}
	raw = raw[1:]

	name, args, _ := strings.Cut(raw, " ")
	if name == "" {
		return Parsed{}, false
	}
	return Parsed{Name: strings.ToLower(name), Args: strings.TrimPrefix(args, " ")}, true
}

// templateInvocation matches a rendered autopilot_command.py template
// invocation: `<interpreter> ".../autopilot_command.py" <subcommand> <args>`.
var templateInvocation = regexp.MustCompile(`^\S*python3?\s+"[^"]*autopilot_command\.py"\s+(\S+)(?:\s+(.*))?$`)

// ParseAutopilotTemplateCommand recognizes a rendered template invocation
// (as opposed to a literal typed slash command) and maps it onto the
// canonical `autopilot-<subcommand>` identifier.
func ParseAutopilotTemplateCommand(raw string) (Parsed, bool) {
	m := templateInvocation.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Parsed{}, false
	}
	return Parsed{Name: "autopilot-" + strings.ToLower(m[1]), Args: m[2]}, true
}

// legacyAliases folds deprecated command names onto their canonical
// replacement. Anything absent from this table is its own canonical form.
var legacyAliases = map[string]string{
	"ralph-loop":         "autopilot-go",
	"ralph-status":       "autopilot-status",
	"ralph-pause":        "autopilot-pause",
	"ralph-resume":       "autopilot-resume",
	"cancel-ralph":       "autopilot-stop",
	"ralph-stop":         "autopilot-stop",
	"ralph-report":       "autopilot-report",
}

// CanonicalAutopilotCommandName folds legacy aliases onto their canonical
// identifier; names not in the table pass through unchanged.
func CanonicalAutopilotCommandName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := legacyAliases[name]; ok {
		return canonical
	}
	return name
}

// Action classifies what a resolved autopilot command should do to the
// continuation loop state machine.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
	ActionPause Action = "pause"
	ActionResume Action = "resume"
	ActionStatus Action = "status"
	ActionReport Action = "report"
	ActionNone  Action = "none"
)

var subcommandActions = map[string]Action{
	"go":     ActionStart,
	"start":  ActionStart,
	"stop":   ActionStop,
	"cancel": ActionStop,
	"pause":  ActionPause,
	"resume": ActionResume,
	"status": ActionStatus,
	"report": ActionReport,
}

// ResolveAutopilotAction classifies a canonicalized autopilot command name
// (plus, for the bare "autopilot" form, its first positional argument) into
// a loop-state-machine action.
func ResolveAutopilotAction(name, args string) Action {
	name = CanonicalAutopilotCommandName(name)

	if !strings.HasPrefix(name, "autopilot-") {
		// Bare "autopilot <subcommand>" form: classify off the first arg.
		if name == "autopilot" {
			first, _, _ := strings.Cut(strings.TrimSpace(args), " ")
			if action, ok := subcommandActions[strings.ToLower(first)]; ok {
				return action
			}
		}
		return ActionNone
	}

	subcommand := strings.TrimPrefix(name, "autopilot-")
	if action, ok := subcommandActions[subcommand]; ok {
		return action
	}
	return ActionNone
}

var namedFlag = regexp.MustCompile(`--([\w-]+)(?:=(\S+)|\s+"([^"]*)"|\s+(\S+))?`)

// flagValues extracts every --flag occurrence from args into a name->value
// map, first-occurrence wins, following OpenCode's parseArguments regex
// shape (quoted, `=`-joined, and bare-word forms).
func flagValues(args string) map[string]string {
	out := make(map[string]string)
	for _, m := range namedFlag.FindAllStringSubmatch(args, -1) {
		name := m[1]
		if _, exists := out[name]; exists {
			continue
		}
		value := m[2]
		if value == "" {
			value = m[3]
		}
		if value == "" {
			value = m[4]
		}
		out[name] = value
	}
	return out
}

// ParseGoal extracts --goal "<quoted>" or --goal <bareword>; first
// occurrence wins. Returns "" if absent.
func ParseGoal(args string) string {
	return flagValues(args)["goal"]
}

// ParseCompletionMode extracts --completion-mode, defaulting to "promise"
// for anything absent or unrecognized (completionMode ∈
// {promise, objective}).
func ParseCompletionMode(args string) string {
	switch flagValues(args)["completion-mode"] {
	case "objective":
		return "objective"
	default:
		return "promise"
	}
}

// ParseCompletionPromise extracts --completion-promise, falling back to
// defaultPromise when absent.
func ParseCompletionPromise(args, defaultPromise string) string {
	if v, ok := flagValues(args)["completion-promise"]; ok && v != "" {
		return v
	}
	return defaultPromise
}

// ParseMaxIterations extracts --max-iterations as a non-negative integer;
// 0 is a valid, preserved value (meaning unbounded). Anything
// absent or unparseable falls back to defaultMax.
func ParseMaxIterations(args string, defaultMax uint64) uint64 {
	raw, ok := flagValues(args)["max-iterations"]
	if !ok {
		return defaultMax
	}
	var n uint64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return defaultMax
		}
		n = n*10 + uint64(r-'0')
	}
	if raw == "" {
		return defaultMax
	}
	return n
}

// ParseDoneCriteria extracts --done-criteria "a;b;c" into its trimmed,
// non-empty segments; absent yields nil.
func ParseDoneCriteria(args string) []string {
	raw, ok := flagValues(args)["done-criteria"]
	if !ok || raw == "" {
		return nil
	}
	var out []string
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}
