// Package cli implements the Cobra command hierarchy for the copytree CLI tool.
// This file implements the `copytree preview` subcommand which shows file selection
// and token statistics without generating an output file.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/copytree/copytree/internal/pipeline/stages"
	"github.com/copytree/copytree/internal/tokenizer"
)

// previewHeatmap is a local flag target for --heatmap on the preview command.
// It is a file-level variable (not inside init) to avoid dereferencing the
// flagValues pointer before root.go's init() has populated it.
var previewHeatmap bool

// previewCmd implements `copytree preview` which shows file selection and token
// distribution without generating an output file.
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview file selection and token statistics without generating output",
	Long: `Preview runs the file discovery and token counting stages without writing
an output context file. Use this to inspect which files would be included,
their token counts, and how they relate to your token budget.

Examples:
  # Preview the current directory
  copytree preview

  # Show token density heatmap to find context-bloat files
  copytree preview --heatmap

  # Preview with a specific tokenizer
  copytree preview --tokenizer o200k_base

  # Show the top 20 largest files
  copytree preview --top-files 20`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewHeatmap, "heatmap", false, "Show token density heatmap (tokens per line)")
	rootCmd.AddCommand(previewCmd)
}

// runPreview executes the preview subcommand: it runs discovery, filtering,
// and token counting without writing a generated document, then prints a
// token report, top-files listing, or density heatmap to stderr depending on
// the configured flags.
func runPreview(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		flagValues.BasePath = args[0]
	}

	opts, err := toRunOptions(flagValues)
	if err != nil {
		return err
	}

	result, err := stages.Preview(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if previewHeatmap {
		report := tokenizer.NewHeatmapReport(result.Files, result.LineCounts)
		fmt.Fprint(os.Stderr, report.Format())
		return nil
	}

	if flagValues.TopFiles > 0 {
		report := tokenizer.NewTopFilesReport(result.Files, flagValues.TopFiles)
		fmt.Fprint(os.Stderr, report.Format())
		return nil
	}

	report := tokenizer.NewTokenReport(result.Files, flagValues.Tokenizer, flagValues.MaxTokens)
	fmt.Fprint(os.Stderr, report.Format())
	return nil
}
