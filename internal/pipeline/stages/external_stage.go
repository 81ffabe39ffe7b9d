package stages

import (
	"fmt"

	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/external"
	"github.com/copytree/copytree/internal/pipeline"
)

// ExternalSource resolves any profile externalSources entries to local
// directories (cloning git sources on first use) and merges their discovered
// files into the record set, stage 2 of spec.md §4.9 / §4.14. A no-op when
// the run has no external sources configured.
type ExternalSource struct {
	Fetcher *external.Fetcher
}

// NewExternalSource builds an ExternalSource stage caching clones under
// cacheDir.
func NewExternalSource(cacheDir string) *ExternalSource {
	return &ExternalSource{Fetcher: external.New(cacheDir)}
}

func (s *ExternalSource) Name() string { return "external_source" }

func (s *ExternalSource) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if len(ctx.Opts.ExternalSources) == 0 {
		return input, nil
	}

	out := append([]pipeline.FileRecord(nil), input...)
	for _, src := range ctx.Opts.ExternalSources {
		dir, err := s.Fetcher.Resolve(src)
		if err != nil {
			return nil, fmt.Errorf("external source %s: %w", src.Name, err)
		}

		result, err := walk(ctx, dir, discovery.PathFilterOptions{})
		if err != nil {
			return nil, fmt.Errorf("external source %s: %w", src.Name, err)
		}
		for _, fr := range result.Files {
			fr.RelPath = src.Name + "/" + fr.RelPath
			out = append(out, fr)
		}
	}
	return out, nil
}
