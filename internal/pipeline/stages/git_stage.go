package stages

import (
	"fmt"

	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/pipeline"
)

// GitFilter restricts records to files with uncommitted modifications
// (--modified) or files changed relative to a ref (--changed), per spec.md
// §4.9 stage 3. With --with-git-status it also tags each record with its git
// status. It is a no-op when none of these flags is set.
type GitFilter struct{}

func (s *GitFilter) Name() string { return "git_filter" }

func (s *GitFilter) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if ctx.Opts.WithGitStatus {
		statusRoot := ctx.Opts.BasePath
		if statusRoot == "" {
			statusRoot = "."
		}
		sq := discovery.NewGitQuery(statusRoot)
		tagged := make([]pipeline.FileRecord, len(input))
		for i, fr := range input {
			tagged[i] = fr
			if status, err := sq.Status(fr.RelPath); err == nil {
				tagged[i] = fr.Clone()
				tagged[i].GitStatus = status
			}
		}
		input = tagged
	}
	if !ctx.Opts.Modified && ctx.Opts.Changed == "" {
		return input, nil
	}

	root := ctx.Opts.BasePath
	if root == "" {
		root = "."
	}
	q := discovery.NewGitQuery(root)

	var allowed map[string]bool
	var err error
	switch {
	case ctx.Opts.Modified:
		allowed, err = q.Modified()
	case ctx.Opts.Changed != "":
		allowed, err = q.Changed(ctx.Opts.Changed)
	}
	if err != nil {
		return nil, fmt.Errorf("git filter: %w", err)
	}

	out := make([]pipeline.FileRecord, 0, len(input))
	for _, fr := range input {
		if allowed[fr.RelPath] {
			out = append(out, fr)
		}
	}
	return out, nil
}

// AlwaysInclude force-includes every file matching an --always pattern, even
// if an earlier stage excluded it, per spec.md §4.9 stage 7. Patterns are
// resolved against a fresh, unfiltered walk so always-included files are
// found regardless of --filter/--exclude.
type AlwaysInclude struct{}

func (s *AlwaysInclude) Name() string { return "always_include" }

func (s *AlwaysInclude) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if len(ctx.Opts.Always) == 0 {
		return input, nil
	}

	present := make(map[string]bool, len(input))
	for _, fr := range input {
		present[fr.RelPath] = true
	}

	root := ctx.Opts.BasePath
	if root == "" {
		root = "."
	}
	result, err := walk(ctx, root, discovery.PathFilterOptions{Includes: ctx.Opts.Always})
	if err != nil {
		return nil, fmt.Errorf("always_include: %w", err)
	}

	out := append([]pipeline.FileRecord(nil), input...)
	for _, fr := range result.Files {
		if !present[fr.RelPath] {
			out = append(out, fr)
			present[fr.RelPath] = true
		}
	}
	return out, nil
}
