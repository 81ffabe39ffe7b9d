package discovery

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter decides whether a discovered path survives into the candidate
// set, combining exclude globs, include globs, and a bare-extension
// shorthand. Exclude always wins over include: a path can never be rescued
// from an exclude match by also matching an include pattern (the
// always-include override lives one layer up, in the AlwaysInclude pipeline
// stage).
//
// With no include patterns and no extensions configured, every path that
// isn't excluded passes through.
type PathFilter struct {
	includes   []string
	excludes   []string
	extensions []string // lowercase, no leading dot
	logger     *slog.Logger
}

// PathFilterOptions configures a new PathFilter.
type PathFilterOptions struct {
	// Includes are doublestar glob patterns. If any are set, a path must
	// match one of them (or one Extensions entry) to pass.
	Includes []string

	// Excludes are doublestar glob patterns. A path matching any of these
	// is dropped regardless of Includes/Extensions.
	Excludes []string

	// Extensions is a shorthand alternative to Includes: bare extensions
	// (with or without a leading dot), matched case-insensitively.
	Extensions []string
}

// NewPathFilter builds a PathFilter from opts, normalizing extensions to
// lowercase without a leading dot and copying all slices so later mutation
// of the caller's opts cannot reach back into the filter.
func NewPathFilter(opts PathFilterOptions) *PathFilter {
	extensions := make([]string, len(opts.Extensions))
	for i, ext := range opts.Extensions {
		extensions[i] = strings.ToLower(strings.TrimLeft(ext, "."))
	}

	includes := append([]string(nil), opts.Includes...)
	excludes := append([]string(nil), opts.Excludes...)

	logger := slog.Default().With("component", "path-filter")
	logger.Debug("path filter initialized",
		"includes", len(includes), "excludes", len(excludes), "extensions", len(extensions))

	return &PathFilter{
		includes:   includes,
		excludes:   excludes,
		extensions: extensions,
		logger:     logger,
	}
}

// Matches reports whether path (repo-relative, forward-slash or not) should
// be kept: not excluded, and either pass-through (no includes/extensions
// configured) or matching at least one include pattern or extension.
func (f *PathFilter) Matches(path string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "./")
	if normalized == "" {
		return false
	}

	if f.matchesAny(f.excludes, normalized, "exclude") {
		f.logger.Debug("path excluded", "path", normalized)
		return false
	}

	if len(f.includes) == 0 && len(f.extensions) == 0 {
		return true
	}

	if f.matchesAny(f.includes, normalized, "include") {
		return true
	}

	if len(f.extensions) == 0 {
		return false
	}
	ext := strings.ToLower(strings.TrimLeft(filepath.Ext(normalized), "."))
	for _, want := range f.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (f *PathFilter) matchesAny(patterns []string, path, kind string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			f.logger.Debug("invalid "+kind+" pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// HasFilters reports whether any include, exclude, or extension criteria are
// configured. When false, Matches always returns true (pass-through).
func (f *PathFilter) HasFilters() bool {
	return len(f.includes) > 0 || len(f.excludes) > 0 || len(f.extensions) > 0
}
