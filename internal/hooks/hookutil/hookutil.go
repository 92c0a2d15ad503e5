// Package hookutil collects small helpers shared across hook bodies:
// compiling a policy's regex-pattern lists once at construction time, and
// glob matching against doublestar patterns. Splitting this out keeps each
// hook package focused on its own trigger/action pair instead of repeating
// pattern-compilation boilerplate.
package hookutil

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/opencode-ai/opencode-gateway/internal/gatewaylog"
)

// CompilePatterns compiles each pattern in patterns, skipping (and logging)
// any that fail to compile rather than panicking a hook's constructor on a
// malformed policy-supplied regex.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			gatewaylog.Warn().Str("pattern", p).Err(err).Msg("skipping malformed policy pattern")
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// FirstMatch returns the first pattern in patterns that matches s, or nil.
func FirstMatch(patterns []*regexp.Regexp, s string) *regexp.Regexp {
	for _, re := range patterns {
		if re.MatchString(s) {
			return re
		}
	}
	return nil
}

// MatchesAnyGlob reports whether path matches any of the doublestar globs,
// per spec's use of glob-style path patterns (protected paths, reservation
// coverage, source/docs patterns). A malformed glob never matches.
func MatchesAnyGlob(globs []string, path string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true
		}
	}
	return false
}
