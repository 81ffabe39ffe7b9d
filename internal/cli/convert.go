package cli

import (
	"os"

	"github.com/copytree/copytree/internal/config"
	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/profile"
)

// toRunOptions translates parsed CLI flags into the scalar RunOptions the
// pipeline stages consume, resolving the named profile (if any) and layering
// CLI overrides on top of it per spec.md §4.2. Kept on the CLI side of the
// boundary so internal/pipeline never needs to import internal/config or
// internal/profile.
func toRunOptions(rf *config.RunFlags) (pipeline.RunOptions, error) {
	basePath := rf.BasePath
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return pipeline.RunOptions{}, err
		}
		basePath = wd
	}

	base := profile.Default()
	if rf.Profile != "" {
		loaded, err := profile.Load(basePath, rf.Profile)
		if err != nil {
			return pipeline.RunOptions{}, err
		}
		base = loaded
	}

	merged := profile.Merge(base, profile.Overrides{
		Exclude:   rf.Exclude,
		Always:    rf.Always,
		Filter:    rf.Filter,
		Format:    rf.Format,
		CharLimit: rf.CharLimit,
	})

	filter := append(append([]string{}, merged.Filter...), merged.Include...)

	return pipeline.RunOptions{
		BasePath: basePath,

		Filter:  filter,
		Exclude: merged.Exclude,
		Always:  merged.Always,

		Modified: rf.Modified,
		Changed:  rf.Changed,
		Head:     rf.Head,

		CharLimit: merged.Output.CharLimit,
		Sort:      pipeline.SortOrder(rf.Sort),

		Format:  pipeline.OutputFormat(merged.Output.Format),
		Output:  rf.Output,
		Display: rf.Display,

		Clipboard:   rf.Clipboard,
		Stream:      rf.Stream,
		AsReference: rf.AsReference,
		OnlyTree:    rf.OnlyTree,

		WithLineNumbers: rf.WithLineNumbers || merged.Output.LineNumbers,
		ShowSize:        rf.ShowSize,
		WithGitStatus:   rf.WithGitStatus,
		IncludeBinary:   rf.IncludeBinary,

		Dedupe: rf.Dedupe,

		NoCache: rf.NoCache,

		SecretsGuard:      rf.SecretsGuard,
		SecretsRedactMode: rf.SecretsRedactMode,
		FailOnSecrets:     rf.FailOnSecrets,

		NoValidate:     rf.NoValidate,
		FailOnFSErrors: rf.FailOnFSErrors,
		DryRun:         rf.DryRun,

		Profile:            rf.Profile,
		Tokenizer:          rf.Tokenizer,
		MaxTokens:          rf.MaxTokens,
		TruncationStrategy: rf.TruncationStrategy,
		TopFiles:           rf.TopFiles,

		InstructionsPath: rf.InstructionsPath,
		NoInstructions:   rf.NoInstructions,

		ExternalSources: merged.External,
	}, nil
}
