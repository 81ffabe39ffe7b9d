package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/copytree/copytree/internal/pipeline"
)

// WalkerConfig holds configuration for the file discovery walker.
type WalkerConfig struct {
	// Root is the target directory to walk.
	Root string

	// GitignoreMatcher handles .gitignore pattern matching.
	GitignoreMatcher Ignorer

	// CopytreeignoreMatcher handles .copytreeignore pattern matching.
	CopytreeignoreMatcher Ignorer

	// DefaultIgnorer handles built-in default ignore patterns.
	DefaultIgnorer Ignorer

	// PathFilter applies include/exclude/extension filtering.
	PathFilter *PathFilter

	// GitTrackedOnly restricts discovery to git-tracked files when true.
	GitTrackedOnly bool

	// SkipLargeFiles is the file size threshold in bytes. Files exceeding this
	// size are skipped. A value of 0 disables large file skipping.
	SkipLargeFiles int64

	// Concurrency is reserved for callers that want to bound a downstream
	// content-loading phase at the same value used for the walk; the walk
	// itself is single-threaded (filepath.WalkDir has no parallel variant in
	// the standard library). Defaults to runtime.NumCPU() if <= 0.
	Concurrency int
}

// Walker is the core file discovery engine (spec.md §4.9 stage 1). It
// traverses a directory tree and applies ignore rules, binary detection, size
// limits, and pattern filters, producing FileRecords with no content loaded
// (Loaded == false): content loading is the FileLoading stage's job, kept
// separate so discovery stays cheap even over large trees with a tight
// --head or profile filter applied later in the stage chain.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new Walker instance.
func NewWalker() *Walker {
	return &Walker{
		logger: slog.Default().With("component", "walker"),
	}
}

// Walk discovers files in the directory tree rooted at cfg.Root, applying all
// configured filters. Context cancellation stops the walk promptly.
func (w *Walker) Walk(ctx context.Context, cfg WalkerConfig) (*pipeline.DiscoveryResult, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", cfg.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	composite := NewCompositeIgnorer(
		cfg.DefaultIgnorer,
		cfg.GitignoreMatcher,
		cfg.CopytreeignoreMatcher,
	)

	var gitTracked map[string]bool
	if cfg.GitTrackedOnly {
		gitTracked, err = GitTrackedFiles(root)
		if err != nil {
			return nil, fmt.Errorf("loading git tracked files: %w", err)
		}
		w.logger.Debug("git-tracked-only mode", "tracked_files", len(gitTracked))
	}

	symResolver := NewSymlinkResolver()

	var files []pipeline.FileRecord
	skipReasons := make(map[string]int)
	var mu sync.Mutex
	totalFound := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			w.logger.Debug("walk error", "path", path, "error", walkErr)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == "." {
			return nil
		}

		isDir := d.IsDir()

		if isDir && d.Name() == ".git" {
			w.logger.Debug("skipping .git directory", "path", relPath)
			return fs.SkipDir
		}

		if composite.IsIgnored(relPath, isDir) {
			w.logger.Debug("ignored by pattern", "path", relPath, "is_dir", isDir)
			if isDir {
				mu.Lock()
				skipReasons["ignored_dir"]++
				mu.Unlock()
				return fs.SkipDir
			}
			mu.Lock()
			totalFound++
			skipReasons["ignored"]++
			mu.Unlock()
			return nil
		}

		if isDir {
			return nil
		}

		mu.Lock()
		totalFound++
		mu.Unlock()

		isSymlink := d.Type()&os.ModeSymlink != 0
		absPath := path
		if isSymlink {
			realPath, isLoop, err := symResolver.Resolve(path)
			if err != nil {
				w.logger.Debug("symlink error", "path", relPath, "error", err)
				mu.Lock()
				skipReasons["symlink_error"]++
				mu.Unlock()
				return nil
			}
			if isLoop {
				w.logger.Debug("symlink loop", "path", relPath)
				mu.Lock()
				skipReasons["symlink_loop"]++
				mu.Unlock()
				return nil
			}
			symResolver.MarkVisited(realPath)
			absPath = realPath
		}

		if cfg.GitTrackedOnly && gitTracked != nil {
			if !gitTracked[relPath] {
				w.logger.Debug("not git-tracked", "path", relPath)
				mu.Lock()
				skipReasons["not_tracked"]++
				mu.Unlock()
				return nil
			}
		}

		fileInfo, err := os.Stat(absPath)
		if err != nil {
			w.logger.Debug("stat error", "path", relPath, "error", err)
			mu.Lock()
			skipReasons["stat_error"]++
			mu.Unlock()
			return nil
		}

		if cfg.SkipLargeFiles > 0 && fileInfo.Size() > cfg.SkipLargeFiles {
			w.logger.Debug("large file skipped",
				"path", relPath, "size", fileInfo.Size(), "threshold", cfg.SkipLargeFiles)
			mu.Lock()
			skipReasons["large_file"]++
			mu.Unlock()
			return nil
		}

		isBin, binErr := IsBinary(absPath)
		if binErr != nil {
			w.logger.Debug("binary detection error, including file anyway", "path", relPath, "error", binErr)
		}

		if cfg.PathFilter != nil && cfg.PathFilter.HasFilters() {
			if !cfg.PathFilter.Matches(relPath) {
				w.logger.Debug("pattern filter excluded", "path", relPath)
				mu.Lock()
				skipReasons["pattern_filter"]++
				mu.Unlock()
				return nil
			}
		}

		fr := pipeline.FileRecord{
			AbsPath: absPath,
			RelPath: relPath,
			Size:    fileInfo.Size(),
			ModTime: fileInfo.ModTime(),
			Binary:  isBin,
		}
		mu.Lock()
		files = append(files, fr)
		mu.Unlock()

		return nil
	})

	if walkErr != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	totalSkipped := 0
	for _, count := range skipReasons {
		totalSkipped += count
	}

	result := &pipeline.DiscoveryResult{
		Files:        files,
		TotalFound:   totalFound,
		TotalSkipped: totalSkipped,
		SkipReasons:  skipReasons,
	}

	w.logger.Info("discovery complete",
		"files", len(files), "total_found", totalFound, "total_skipped", totalSkipped)

	return result, nil
}

// ReadFile reads the entire content of a file, honoring context cancellation.
// Exported for reuse by the FileLoading stage (stage 8 of spec.md §4.9),
// which performs the content-loading phase the teacher's walker used to do
// inline.
func ReadFile(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return string(data), nil
}
