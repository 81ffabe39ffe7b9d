package stages

import (
	"path"
	"sort"

	"github.com/copytree/copytree/internal/pipeline"
)

// SortFiles orders records per ctx.Opts.Sort, defaulting to path order, stage
// 4 of spec.md §4.9. Sorting happens before --head so the head selection is
// deterministic.
type SortFiles struct{}

func (s *SortFiles) Name() string { return "sort_files" }

func (s *SortFiles) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	out := append([]pipeline.FileRecord(nil), input...)

	less := func(i, j int) bool { return out[i].RelPath < out[j].RelPath }
	switch ctx.Opts.Sort {
	case pipeline.SortSize:
		less = func(i, j int) bool { return out[i].Size < out[j].Size }
	case pipeline.SortModified:
		less = func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) }
	case pipeline.SortName:
		less = func(i, j int) bool { return baseName(out[i].RelPath) < baseName(out[j].RelPath) }
	case pipeline.SortExtension:
		less = func(i, j int) bool { return path.Ext(out[i].RelPath) < path.Ext(out[j].RelPath) }
	}

	sort.SliceStable(out, less)
	return out, nil
}

func baseName(relPath string) string {
	for i := len(relPath) - 1; i >= 0; i-- {
		if relPath[i] == '/' {
			return relPath[i+1:]
		}
	}
	return relPath
}

// Limit truncates the record list to ctx.Opts.Head entries, stage 5 of
// spec.md §4.9. Zero or negative Head means unlimited.
type Limit struct{}

func (s *Limit) Name() string { return "limit" }

func (s *Limit) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if ctx.Opts.Head <= 0 || ctx.Opts.Head >= len(input) {
		return input, nil
	}
	return input[:ctx.Opts.Head], nil
}

// Deduplicate drops records whose content hash has already been seen,
// keeping the first occurrence, stage 11 of spec.md §4.9. It is a no-op
// unless --dedupe is set, and only considers loaded (non-binary-skipped)
// records since unloaded records carry a zero ContentHash.
type Deduplicate struct{}

func (s *Deduplicate) Name() string { return "deduplicate" }

func (s *Deduplicate) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if !ctx.Opts.Dedupe {
		return input, nil
	}

	seen := make(map[uint64]bool, len(input))
	out := make([]pipeline.FileRecord, 0, len(input))
	for _, fr := range input {
		if !fr.Loaded {
			out = append(out, fr)
			continue
		}
		if seen[fr.ContentHash] {
			continue
		}
		seen[fr.ContentHash] = true
		out = append(out, fr)
	}
	return out, nil
}
