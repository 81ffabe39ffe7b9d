// Package transform implements the content transformer registry (spec.md
// §4.5-§4.6): a set of named, composable transformers dispatched by
// capability predicate rather than file extension alone, each annotated
// with traits that govern conflict resolution and ordering.
package transform

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/copytree/copytree/internal/pipeline"
)

// Traits describe how a transformer interacts with others in the chain.
type Traits struct {
	// Heavy marks a transformer as expensive (network calls, subprocess
	// invocation, OCR); heavy transformers are cache-backed by the caller.
	Heavy bool

	// Idempotent means running the transformer twice on its own output is a
	// no-op; non-idempotent transformers must run at most once per record.
	Idempotent bool

	// ProducesSummary marks a transformer that replaces file content with a
	// generated summary rather than a faithful rendering. At most one
	// summary-producing transformer runs per record; the first match wins.
	ProducesSummary bool

	// RequiresNetwork marks a transformer that calls out to an external
	// service. The registry does not act on this trait; it is informational.
	RequiresNetwork bool
}

// Transformer converts a FileRecord's content into a new representation.
// CanTransform is a cheap predicate checked before Transform is invoked;
// Transform performs the actual (possibly expensive) work.
type Transformer interface {
	Name() string
	CanTransform(fr pipeline.FileRecord) bool
	Transform(ctx context.Context, fr pipeline.FileRecord) (pipeline.FileRecord, error)
}

type registered struct {
	transformer Transformer
	traits      Traits
	priority    int // lower runs first
}

// Registry holds the set of registered transformers and resolves, for each
// record, the ordered subset that applies.
type Registry struct {
	entries []registered
}

// NewRegistry returns an empty Registry. Use RegisterDefaults to populate it
// with the built-in transformer set.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a transformer to the registry. priority controls run order
// among matching transformers for the same record (lower runs first);
// ties break by registration order.
func (r *Registry) Register(t Transformer, traits Traits, priority int) {
	r.entries = append(r.entries, registered{transformer: t, traits: traits, priority: priority})
}

// Resolve returns the ordered list of transformers applicable to fr. At most
// one summary-producing transformer is included: the lowest-priority match.
func (r *Registry) Resolve(fr pipeline.FileRecord) []Transformer {
	candidates := make([]registered, 0, len(r.entries))
	for _, e := range r.entries {
		if e.transformer.CanTransform(fr) {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority < candidates[j].priority
	})

	var resolved []Transformer
	summaryTaken := false
	for _, c := range candidates {
		if c.traits.ProducesSummary {
			if summaryTaken {
				continue
			}
			summaryTaken = true
		}
		resolved = append(resolved, c.transformer)
	}
	return resolved
}

// Apply runs every transformer Resolve selects for fr in order, threading
// the record through each. A transformer error aborts the chain and returns
// the error wrapped with the transformer's name; the caller decides whether
// to treat it as fatal or per-record (see stages.Transform).
func (r *Registry) Apply(ctx context.Context, fr pipeline.FileRecord) (pipeline.FileRecord, error) {
	current := fr
	for _, t := range r.Resolve(fr) {
		next, err := t.Transform(ctx, current)
		if err != nil {
			return current, fmt.Errorf("transformer %s: %w", t.Name(), err)
		}
		current = next
	}
	return current, nil
}

// RegisterDefaults populates r with the full built-in transformer set in the
// teacher's capability-predicate style, ordered root-cause-first: loading and
// structural transforms run before summarization, which runs before the
// terminal binary/catch-all handlers.
func (r *Registry) RegisterDefaults(cache Cacher) {
	r.Register(&FirstLinesTransformer{MaxLines: 0}, Traits{Idempotent: true}, 10)
	r.Register(&MarkdownTransformer{}, Traits{Idempotent: true}, 20)
	r.Register(&HTMLStripTransformer{}, Traits{Idempotent: true}, 20)
	r.Register(&CSVTransformer{}, Traits{Idempotent: true}, 20)
	r.Register(&DocumentToTextTransformer{}, Traits{Heavy: true}, 25)
	r.Register(&PDFTransformer{}, Traits{Heavy: true}, 25)
	r.Register(&CodeOutlineTransformer{}, Traits{Idempotent: true, ProducesSummary: true}, 30)
	r.Register(&UnitTestSummaryTransformer{}, Traits{Idempotent: true, ProducesSummary: true}, 31)
	r.Register(&FileSummaryTransformer{Cache: cache}, Traits{Heavy: true, ProducesSummary: true, RequiresNetwork: true}, 40)
	r.Register(&AISummaryTransformer{Cache: cache}, Traits{Heavy: true, ProducesSummary: true, RequiresNetwork: true}, 41)
	r.Register(&ImageDescriptionTransformer{Cache: cache}, Traits{Heavy: true, ProducesSummary: true, RequiresNetwork: true}, 42)
	r.Register(&SvgDescriptionTransformer{}, Traits{Idempotent: true, ProducesSummary: true}, 42)
	r.Register(&ImageOCRTransformer{Cache: cache}, Traits{Heavy: true}, 50)
	r.Register(&BinaryTransformer{}, Traits{Idempotent: true}, 90)
}

// Cacher is the subset of *cache.Cache a heavy transformer needs: a
// content-addressed get/put pair keyed by transformer name and input
// content, so repeated runs over unchanged files skip expensive work.
type Cacher interface {
	Get(key string) (string, bool)
	Put(key, transformer, value string, ttl time.Duration) error
}
