package stages

import (
	"context"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/pipeline"
)

// FileLoading reads the content of each discovered record into memory and
// stamps its content hash, per spec.md §4.9 stage 8. Text records are loaded
// into Text; binary records are loaded into Bytes with Binary set, and the
// BinaryTransformer (internal/transform) decides how to represent them
// downstream.
type FileLoading struct{}

func (s *FileLoading) Name() string { return "file_loading" }

func (s *FileLoading) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	out := make([]pipeline.FileRecord, 0, len(input))
	for _, fr := range input {
		loaded, err := loadOne(ctx, fr)
		if err != nil {
			if ctx.Opts.FailOnFSErrors {
				return nil, fmt.Errorf("loading %s: %w", fr.RelPath, err)
			}
			ctx.Stats.RecordFailure(s.Name(), fmt.Errorf("%s: %w", fr.RelPath, err))
			loaded = fr
			loaded.Err = err
		}
		out = append(out, loaded)
	}
	return out, nil
}

func loadOne(ctx *pipeline.Context, fr pipeline.FileRecord) (pipeline.FileRecord, error) {
	binary, err := discovery.IsBinary(fr.AbsPath)
	if err != nil {
		return fr, err
	}

	clone := fr.Clone()
	clone.Binary = binary
	if binary {
		data, err := discovery.ReadFile(context.Background(), fr.AbsPath)
		if err != nil {
			return fr, err
		}
		clone.Bytes = []byte(data)
		clone.Loaded = true
		clone.ContentHash = xxh3.HashString(data)
		return clone, nil
	}

	text, err := discovery.ReadFile(context.Background(), fr.AbsPath)
	if err != nil {
		return fr, err
	}
	clone.Text = text
	clone.Loaded = true
	clone.ContentHash = xxh3.HashString(text)
	return clone, nil
}
