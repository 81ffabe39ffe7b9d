package stages

import (
	"sort"

	"github.com/copytree/copytree/internal/pipeline"
)

// CharLimit enforces ctx.Opts.CharLimit, the total character budget across
// all record content, stage 10 of spec.md §4.9. When the budget is
// exceeded, lowest-priority records (highest Tier number) are dropped first
// until the remaining set fits; ties break by keeping earlier records in the
// current order. Zero or negative CharLimit means unlimited.
type CharLimit struct{}

func (s *CharLimit) Name() string { return "char_limit" }

func (s *CharLimit) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if ctx.Opts.CharLimit <= 0 {
		return input, nil
	}

	total := 0
	for _, fr := range input {
		total += len(fr.Content())
	}
	if total <= ctx.Opts.CharLimit {
		return input, nil
	}

	order := make([]int, len(input))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return input[order[a]].Tier < input[order[b]].Tier
	})

	keep := make([]bool, len(input))
	budget := ctx.Opts.CharLimit
	for _, idx := range order {
		size := len(input[idx].Content())
		if size > budget {
			break
		}
		keep[idx] = true
		budget -= size
	}

	out := make([]pipeline.FileRecord, 0, len(input))
	for i, fr := range input {
		if keep[i] {
			out = append(out, fr)
		}
	}
	return out, nil
}
