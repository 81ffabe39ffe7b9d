package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// CopytreeincludeMatcher loads and evaluates .copytreeinclude patterns
// hierarchically, using the same gitignore pattern syntax and per-directory
// precedence model as CopytreeignoreMatcher, but inverted in meaning: a match
// forces the path back in regardless of any other exclusion. Per spec.md
// §4.9's precedence algebra, `.copytreeinclude` is top-precedence, above
// `--always` and profile `always` only in the sense that all three are
// unioned at the AlwaysInclude stage; this matcher supplies its member of
// that union.
type CopytreeincludeMatcher struct {
	root     string
	matchers map[string]*gitignore.GitIgnore
	dirs     []string
	logger   *slog.Logger
}

// NewCopytreeincludeMatcher creates a CopytreeincludeMatcher rooted at rootDir.
// A tree with no .copytreeinclude files is valid; IsIncluded always returns
// false in that case.
func NewCopytreeincludeMatcher(rootDir string) (*CopytreeincludeMatcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", rootDir, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root path %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", absRoot)
	}

	logger := slog.Default().With("component", "copytreeinclude")

	m := &CopytreeincludeMatcher{
		root:     absRoot,
		matchers: make(map[string]*gitignore.GitIgnore),
		logger:   logger,
	}

	if err := m.discoverCopytreeincludeFiles(); err != nil {
		return nil, fmt.Errorf("discovering .copytreeinclude files in %s: %w", absRoot, err)
	}

	logger.Debug("copytreeinclude matcher initialized",
		"root", absRoot,
		"copytreeinclude_count", len(m.matchers),
	)

	return m, nil
}

func (m *CopytreeincludeMatcher) discoverCopytreeincludeFiles() error {
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return filepath.SkipDir
		}

		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		if d.IsDir() || d.Name() != ".copytreeinclude" {
			return nil
		}

		dirPath := filepath.Dir(path)
		relDir, err := filepath.Rel(m.root, dirPath)
		if err != nil {
			m.logger.Debug("skipping .copytreeinclude, cannot compute relative path",
				"path", path, "error", err)
			return nil
		}

		compiled, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			m.logger.Debug("skipping unreadable .copytreeinclude",
				"path", path, "error", err)
			return nil
		}

		if relDir == "" {
			relDir = "."
		}

		m.matchers[relDir] = compiled
		m.logger.Debug("loaded .copytreeinclude", "dir", relDir, "path", path)

		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory tree: %w", err)
	}

	m.dirs = make([]string, 0, len(m.matchers))
	for dir := range m.matchers {
		m.dirs = append(m.dirs, dir)
	}
	sort.Strings(m.dirs)

	return nil
}

// IsIncluded reports whether path is forced back into the file set by any
// loaded .copytreeinclude file, evaluated root-to-leaf like
// CopytreeignoreMatcher.IsIgnored.
func (m *CopytreeincludeMatcher) IsIncluded(path string, isDir bool) bool {
	normalizedPath := filepath.ToSlash(path)
	normalizedPath = strings.TrimPrefix(normalizedPath, "./")

	if normalizedPath == "" || normalizedPath == "." {
		return false
	}

	matchPath := normalizedPath
	if isDir && !strings.HasSuffix(matchPath, "/") {
		matchPath += "/"
	}

	for _, dir := range m.dirs {
		matcher := m.matchers[dir]

		if dir != "." {
			prefix := dir + "/"
			if !strings.HasPrefix(normalizedPath, prefix) {
				continue
			}
		}

		var relPath string
		if dir == "." {
			relPath = matchPath
		} else {
			relPath = strings.TrimPrefix(matchPath, dir+"/")
		}

		if matcher.MatchesPath(relPath) {
			m.logger.Debug("path matched copytreeinclude",
				"path", normalizedPath,
				"copytreeinclude_dir", dir,
				"rel_path", relPath,
			)
			return true
		}
	}

	return false
}

// PatternCount returns the total number of .copytreeinclude files loaded.
func (m *CopytreeincludeMatcher) PatternCount() int {
	return len(m.matchers)
}
