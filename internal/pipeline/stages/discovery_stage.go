// Package stages implements the ordered pipeline stages enumerated in
// spec.md §4.9, each a thin adapter wiring internal/discovery, internal/match,
// internal/transform, internal/render, internal/sink, internal/cache, and
// internal/secrets into the pipeline.Stage contract.
package stages

import (
	"context"
	"fmt"

	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/match"
	"github.com/copytree/copytree/internal/pipeline"
)

// FileDiscovery walks the run's base path, applying gitignore,
// .copytreeignore, built-in default ignores, and the run's include/exclude
// patterns, producing unloaded FileRecords (stage 1 of spec.md §4.9).
type FileDiscovery struct{}

func (s *FileDiscovery) Name() string { return "file_discovery" }

func (s *FileDiscovery) Process(ctx *pipeline.Context, _ []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	root := ctx.Opts.BasePath
	if root == "" {
		root = "."
	}

	if err := match.ValidatePatterns(ctx.Opts.Filter); err != nil {
		return nil, err
	}
	if err := match.ValidatePatterns(ctx.Opts.Exclude); err != nil {
		return nil, err
	}

	result, err := walk(ctx, root, discovery.PathFilterOptions{
		Includes: ctx.Opts.Filter,
		Excludes: ctx.Opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	ctx.Stats.FilesTotal = result.TotalFound
	return result.Files, nil
}

// walk assembles a Walker with the standard ignore chain and runs it rooted
// at root, applying the supplied pattern filter.
func walk(ctx *pipeline.Context, root string, filterOpts discovery.PathFilterOptions) (*pipeline.DiscoveryResult, error) {
	cfg := discovery.WalkerConfig{
		Root:           root,
		DefaultIgnorer: discovery.NewDefaultIgnoreMatcher(),
		PathFilter:  discovery.NewPathFilter(filterOpts),
	}

	if gitignoreMatcher, err := discovery.NewGitignoreMatcher(root); err != nil {
		ctx.Logger.Debug("gitignore matcher unavailable", "err", err)
	} else {
		cfg.GitignoreMatcher = gitignoreMatcher
	}
	if copytreeignoreMatcher, err := discovery.NewCopytreeignoreMatcher(root); err != nil {
		ctx.Logger.Debug("copytreeignore matcher unavailable", "err", err)
	} else {
		cfg.CopytreeignoreMatcher = copytreeignoreMatcher
	}

	w := discovery.NewWalker()
	result, err := w.Walk(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return result, nil
}

// ProfileFilter passes its input through unchanged. Discovery already applies
// include/exclude during the walk (keeping the walk itself cheap over large
// trees); this stage exists as the named extension point spec.md §4.9
// reserves for profile-level include/exclude rules layered on top of the
// flags already applied by FileDiscovery.
type ProfileFilter struct{}

func (s *ProfileFilter) Name() string { return "profile_filter" }

func (s *ProfileFilter) Process(_ *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	return input, nil
}
