package stages

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/copytree/copytree/internal/config"
	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/tokenizer"
)

// cacheRoot returns the directory backing the transformer cache and external
// source clones: ~/.cache/copytree, honoring XDG_CACHE_HOME.
func cacheRoot() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir + "/copytree"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".copytree-cache"
	}
	return home + "/.cache/copytree"
}

// buildOrchestrator assembles the ordered stage list from spec.md §4.9 into
// an Orchestrator wired against the run's options. withOutput controls
// whether the terminal OutputFormatting stage is attached; Preview omits it
// since it never writes a document.
func buildOrchestrator(noCache, withOutput bool) *pipeline.Orchestrator {
	cache := cacheRoot()
	orch := pipeline.NewOrchestrator(false).Through(
		&FileDiscovery{},
		NewExternalSource(cache),
		&GitFilter{},
		&SortFiles{},
		&Limit{},
		&ProfileFilter{},
		&AlwaysInclude{},
		&FileLoading{},
		NewTransform(cache, noCache),
		&CharLimit{},
		&Deduplicate{},
		&Instructions{},
	)
	if withOutput {
		orch.Through(&OutputFormatting{})
	}
	return orch
}

// Run executes the full pipeline for opts, writing rendered output to every
// configured sink, per spec.md §4.8's orchestrator driving §4.9's stage list.
// listeners, if given, are subscribed to the run's event emitter before the
// first stage runs -- the hook cmd/copytree's progress UI and metrics
// observers attach through, without internal/pipeline ever importing them.
func Run(ctx context.Context, opts pipeline.RunOptions, listeners ...pipeline.Listener) error {
	pctx := pipeline.NewContext(opts, config.NewLogger("pipeline"))
	for _, l := range listeners {
		pctx.Events.On(l)
	}

	orch := buildOrchestrator(opts.NoCache, true)
	records, err := orch.Process(pctx, nil)
	if err != nil {
		return err
	}

	if opts.Tokenizer != "" && strings.ToLower(opts.Tokenizer) != "none" {
		if err := enforceTokenBudget(pctx, records); err != nil {
			return err
		}
	}

	return nil
}

// Preview runs discovery through token counting without the OutputFormatting
// stage, returning the resolved file set with token counts filled in and the
// per-file line counts for the preview/token-report commands.
func Preview(ctx context.Context, opts pipeline.RunOptions) (*pipeline.PreviewResult, error) {
	previewOpts := opts
	previewOpts.DryRun = true

	pctx := pipeline.NewContext(previewOpts, config.NewLogger("pipeline"))
	orch := buildOrchestrator(previewOpts.NoCache, false)

	records, err := orch.Process(pctx, nil)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.NewTokenizer(opts.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("building tokenizer: %w", err)
	}
	counter := tokenizer.NewTokenCounter(tok)

	lineCounts := make(map[string]int, len(records))
	counted := make([]pipeline.FileRecord, 0, len(records))
	for _, fr := range records {
		counted = append(counted, counter.CountFile(fr))
		lineCounts[fr.RelPath] = strings.Count(fr.Content(), "\n") + 1
	}

	return &pipeline.PreviewResult{Files: counted, LineCounts: lineCounts}, nil
}

func enforceTokenBudget(ctx *pipeline.Context, records []pipeline.FileRecord) error {
	if ctx.Opts.MaxTokens <= 0 {
		return nil
	}

	tok, err := tokenizer.NewTokenizer(ctx.Opts.Tokenizer)
	if err != nil {
		return fmt.Errorf("building tokenizer: %w", err)
	}
	counter := tokenizer.NewTokenCounter(tok)
	strategy := tokenizer.TruncationStrategy(ctx.Opts.TruncationStrategy)
	if strategy == "" {
		strategy = tokenizer.TruncationStrategy("skip")
	}

	enforcer := tokenizer.NewBudgetEnforcer(ctx.Opts.MaxTokens, strategy, tok)
	overhead := counter.EstimateOverhead(len(records), 0)
	enforcer.Enforce(records, overhead)
	return nil
}
