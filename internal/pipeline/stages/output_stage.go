package stages

import (
	"fmt"
	"os"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/render"
	"github.com/copytree/copytree/internal/sink"
)

// OutputFormatting renders the final record set and writes it to every sink
// the run requested (file, stdout, clipboard), the terminal stage of
// spec.md §4.9. A dry run renders nothing and only updates stats.
type OutputFormatting struct{}

func (s *OutputFormatting) Name() string { return "output_formatting" }

func (s *OutputFormatting) Process(ctx *pipeline.Context, input []pipeline.FileRecord) ([]pipeline.FileRecord, error) {
	if ctx.Opts.DryRun {
		return input, nil
	}

	opts := render.Options{
		Format:          ctx.Opts.Format,
		Instructions:    ctx.Instructions,
		Profile:         ctx.Opts.Profile,
		WithLineNumbers: ctx.Opts.WithLineNumbers,
		ShowSize:        ctx.Opts.ShowSize,
		WithGitStatus:   ctx.Opts.WithGitStatus,
		OnlyTree:        ctx.Opts.OnlyTree,
		AsReference:     ctx.Opts.AsReference,
	}

	body, err := render.Render(input, opts)
	if err != nil {
		return nil, fmt.Errorf("rendering output: %w", err)
	}
	ctx.Stats.BytesOut = int64(len(body))

	sinks, err := openSinks(ctx)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		sinks = []sink.Sink{sink.NewStdoutSink(os.Stdout)}
	}

	var combined sink.Sink = sinks[0]
	for _, s := range sinks[1:] {
		combined = sink.NewTeeSink(combined, s)
	}

	if _, err := combined.Write(body); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	if err := combined.Close(); err != nil {
		return nil, fmt.Errorf("closing output sink: %w", err)
	}

	return input, nil
}

func openSinks(ctx *pipeline.Context) ([]sink.Sink, error) {
	var sinks []sink.Sink

	if ctx.Opts.Output != "" {
		fs, err := sink.NewFileSink(ctx.Opts.Output)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if ctx.Opts.Display {
		sinks = append(sinks, sink.NewStdoutSink(os.Stdout))
	}
	if ctx.Opts.Clipboard {
		sinks = append(sinks, sink.NewClipboardSink())
	}

	return sinks, nil
}
