package stages

import (
	"fmt"
	"os"

	"github.com/copytree/copytree/internal/pipeline"
)

// defaultInstructions is emitted when no --instructions file is given and
// --no-instructions is not set; it orients an LLM consumer to the document
// structure without assuming any particular task.
const defaultInstructions = `This document is a structured snapshot of a source tree, generated for ` +
	`review by a language model. Files are presented relative to the project root; ` +
	`directory structure, when shown, precedes file contents.`

// Instructions loads a user-supplied or default instructions template into
// ctx.Instructions for the OutputFormatting stage to embed, stage 12 of
// spec.md §4.9.
type Instructions struct{}

func (s *Instructions) Name() string { return "instructions" }

func (s *Instructions) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if ctx.Opts.NoInstructions {
		return input, nil
	}

	if ctx.Opts.InstructionsPath == "" {
		ctx.Instructions = defaultInstructions
		return input, nil
	}

	data, err := os.ReadFile(ctx.Opts.InstructionsPath)
	if err != nil {
		return nil, fmt.Errorf("reading instructions file %s: %w", ctx.Opts.InstructionsPath, err)
	}
	ctx.Instructions = string(data)
	return input, nil
}
