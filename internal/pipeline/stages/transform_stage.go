package stages

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/copytree/copytree/internal/cache"
	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/secrets"
	"github.com/copytree/copytree/internal/transform"
)

// Transform runs each loaded record through the transformer registry, then
// applies the Secrets Guard to the transformed text, per spec.md §4.9 stage
// 9 and §4.13. A transformer failure is recorded per-record rather than
// aborting the run; a detected secret under --fail-on-secrets aborts it.
type Transform struct {
	Registry *transform.Registry
}

// NewTransform builds a Transform stage with the default transformer set,
// cache-backed by a *cache.Cache rooted at cacheDir (honoring --no-cache).
func NewTransform(cacheDir string, noCache bool) *Transform {
	registry := transform.NewRegistry()
	var cacher transform.Cacher
	if !noCache {
		cacher = cache.New(cacheDir)
	}
	registry.RegisterDefaults(cacher)
	return &Transform{Registry: registry}
}

func (s *Transform) Name() string { return "transform" }

// Process runs the transformer chain over every record concurrently, bounded
// to runtime.NumCPU() in-flight records at a time, then reassembles results
// in input order by index. Per-record transformer failures are recorded and
// carried through as an Err-annotated record; a --fail-on-secrets abort
// propagates as the group's error.
func (s *Transform) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	out := make([]pipeline.FileRecord, len(input))

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())

	for i := range input {
		idx := i
		fr := input[i]
		g.Go(func() error {
			result, err := s.transformOne(ctx, gctx, fr)
			if err != nil {
				return err
			}
			out[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Transform) transformOne(ctx *pipeline.Context, gctx context.Context, fr pipeline.FileRecord) (pipeline.FileRecord, error) {
	if fr.Err != nil || fr.Binary {
		return fr, nil
	}

	transformed, err := s.Registry.Apply(gctx, fr)
	if err != nil {
		ctx.Stats.RecordFailure(s.Name(), fmt.Errorf("%s: %w", fr.RelPath, err))
		transformed = fr
		transformed.Err = err
		return transformed, nil
	}

	if ctx.Opts.SecretsGuard {
		guarded, err := applySecretsGuard(ctx, transformed)
		if err != nil {
			return pipeline.FileRecord{}, err
		}
		transformed = guarded
	}

	return transformed, nil
}

func applySecretsGuard(ctx *pipeline.Context, fr pipeline.FileRecord) (pipeline.FileRecord, error) {
	findings := secrets.Scan(fr.Text)
	if len(findings) == 0 {
		return fr, nil
	}
	if ctx.Opts.FailOnSecrets {
		return fr, fmt.Errorf("secret detected in %s: %s", fr.RelPath, findings[0].Type)
	}

	mode := secrets.RedactMode(ctx.Opts.SecretsRedactMode)
	if mode == "" {
		mode = secrets.RedactTyped
	}

	clone := fr.Clone()
	clone.Text = secrets.Redact(fr.Text, findings, mode)
	clone.Trail = append(clone.Trail, "secrets_guard")
	if clone.Meta == nil {
		clone.Meta = map[string]any{}
	}
	clone.Meta["secrets_count"] = len(findings)
	return clone, nil
}
