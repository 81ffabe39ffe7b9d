// Package match implements the Pattern Matcher (spec.md §4.1): gitignore-style
// glob matching against relative file paths, with negation precedence. The
// FileDiscovery stage checks the run's patterns with ValidatePatterns.
package match

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternSyntaxError wraps a malformed glob pattern. This kind of error is
// always fatal: callers never silently discard a bad pattern.
type PatternSyntaxError struct {
	Pattern string
	Err     error
}

func (e *PatternSyntaxError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternSyntaxError) Unwrap() error { return e.Err }

// ValidatePatterns checks that every pattern in patterns is syntactically
// valid doublestar glob syntax, returning the first PatternSyntaxError found.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &PatternSyntaxError{Pattern: p, Err: fmt.Errorf("malformed glob")}
		}
	}
	return nil
}

// Matches reports whether path matches any of patterns. path must already be
// normalized to forward-slash, relative form. A leading "!" negates the
// pattern it prefixes; negated patterns are evaluated gitignore-style, in
// order, with the last matching pattern (positive or negated) winning.
func Matches(path string, patterns []string) bool {
	matched := false
	for _, p := range patterns {
		negate := false
		pat := p
		if len(pat) > 0 && pat[0] == '!' {
			negate = true
			pat = pat[1:]
		}
		ok, err := doublestar.Match(pat, path)
		if err != nil || !ok {
			continue
		}
		matched = !negate
	}
	return matched
}

// Filter returns the subset of paths that pass include/exclude filtering.
// exclude-wins-over-include at the per-call level: a path is kept only if it
// is not excluded, and (len(include) == 0 or it matches an include pattern).
// Ordering of the input is preserved; callers needing a stable final order
// should sort upstream (see internal/pipeline/stages SortFiles).
func Filter(paths []string, include, exclude []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if Matches(p, exclude) {
			continue
		}
		if len(include) > 0 && !Matches(p, include) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortStable sorts paths lexically, used wherever a deterministic tie-break
// order is required (e.g. before --head truncation when sort=path ties).
func SortStable(paths []string) {
	sort.Strings(paths)
}
