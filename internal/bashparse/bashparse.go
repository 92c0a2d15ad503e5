// Package bashparse does structured parsing of shell command strings so
// guard hooks can reason about command name/subcommand/arguments instead of
// regexing raw text. It is a direct generalization of OpenCode's
// permission.ParseBashCommand/BashCommand: same mvdan.cc/sh/v3 walk over
// *syntax.CallExpr nodes, reused here across several guards (dangerous
// command, noninteractive shell, docs drift, branch freshness, post-merge
// sync, gh checks, PR body evidence) instead of living inside one checker.
package bashparse

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Command is one parsed simple command within a (possibly compound) shell
// command line.
type Command struct {
	Name       string   // e.g. "git", "rm", "gh"
	Args       []string // everything after Name, in order
	Subcommand string   // first non-flag argument, e.g. "commit" in "git commit -m x"
}

// HasFlag reports whether any argument equals flag exactly (e.g. "--json").
func (c Command) HasFlag(flag string) bool {
	for _, a := range c.Args {
		if a == flag {
			return true
		}
	}
	return false
}

// HasFlagPrefixed reports whether any argument starts with prefix (e.g.
// "--body=" matching "--body=foo").
func (c Command) HasFlagPrefixed(prefix string) bool {
	for _, a := range c.Args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// Parse splits command into its simple commands (pipelines, `&&`/`;`
// sequences, and subshells all yield one Command each per CallExpr).
// Commands the shell grammar cannot parse are reported as an error; callers
// treat that as "unable to classify" and typically fail open or skip,
// matching OpenCode's checker behavior on parse failure.
func Parse(command string) ([]Command, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("bashparse: %w", err)
	}

	var commands []Command
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if cmd := extractCommand(call); cmd != nil {
				commands = append(commands, *cmd)
			}
		}
		return true
	})

	return commands, nil
}

// Contains reports whether any simple command within raw has the given
// name, tolerating parse failures by falling back to a substring check —
// guards use this as a best-effort early filter before a stricter check.
func Contains(raw, name string) bool {
	commands, err := Parse(raw)
	if err != nil {
		return strings.Contains(raw, name)
	}
	for _, c := range commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

func extractCommand(call *syntax.CallExpr) *Command {
	if len(call.Args) == 0 {
		return nil
	}

	cmd := &Command{Name: wordToString(call.Args[0])}
	if cmd.Name == "" {
		return nil
	}

	for _, arg := range call.Args[1:] {
		argStr := wordToString(arg)
		cmd.Args = append(cmd.Args, argStr)
		if cmd.Subcommand == "" && !strings.HasPrefix(argStr, "-") {
			cmd.Subcommand = argStr
		}
	}

	return cmd
}

func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}
