package cli

import (
	"fmt"
	"os"

	"github.com/copytree/copytree/internal/pipeline/stages"
	"github.com/copytree/copytree/internal/tokenizer"
	"github.com/copytree/copytree/internal/ui"
	"github.com/spf13/cobra"
)

var generatePreview bool

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate LLM-optimized context from a codebase",
	Long: `Recursively discover files, apply filters, and produce a structured
context document optimized for large language models.

This is the primary workflow command. Running 'copytree' with no subcommand
is equivalent to running 'copytree generate'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generatePreview, "preview", false, "show a token report without writing output")
	rootCmd.AddCommand(generateCmd)

	// Register completion for inherited persistent flags on the generate command.
	generateCmd.RegisterFlagCompletionFunc("tokenizer", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"cl100k_base", "o200k_base", "none"}, cobra.ShellCompDirectiveNoFileComp
	})
	generateCmd.RegisterFlagCompletionFunc("truncation-strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"truncate", "skip"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		flagValues.BasePath = args[0]
	}

	opts, err := toRunOptions(flagValues)
	if err != nil {
		return err
	}

	if generatePreview || flagValues.TokenCount || flagValues.TopFiles > 0 {
		result, err := stages.Preview(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if flagValues.TopFiles > 0 {
			PrintTopFiles(os.Stderr, result.Files, flagValues.TopFiles)
			return nil
		}
		report := tokenizer.NewTokenReport(result.Files, flagValues.Tokenizer, flagValues.MaxTokens)
		fmt.Fprint(os.Stderr, report.Format())
		return nil
	}

	if err := stages.Run(cmd.Context(), opts, runListeners()...); err != nil {
		return err
	}
	if flagValues.Output != "" {
		ui.Success(fmt.Sprintf("wrote context to %s", flagValues.Output))
	}
	return nil
}
