// Package cli implements the Cobra command hierarchy for the copytree CLI tool.
// The root command defined here is the entry point for all subcommands and
// handles cross-cutting concerns like logging initialization and error handling.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/copytree/copytree/internal/config"
	"github.com/copytree/copytree/internal/metrics"
	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/pipeline/stages"
	"github.com/copytree/copytree/internal/ui"
	"github.com/spf13/cobra"
)

// globalFlags holds the parsed global flag values, populated by
// config.BindGlobalFlags during command initialization and validated in
// PersistentPreRunE.
var globalFlags *config.GlobalFlags

// flagValues holds the parsed run flag values, populated by
// config.BindRunFlags as persistent flags on rootCmd so that every
// subcommand (generate, preview, ...) inherits them.
var flagValues *config.RunFlags

// metricsCollector and metricsServer are non-nil only when --metrics-addr is
// set, started in PersistentPreRunE and stopped once Execute returns.
var metricsCollector *metrics.Collector
var metricsServer *metrics.Server

var rootCmd = &cobra.Command{
	Use:   "copytree",
	Short: "Harvest your context.",
	Long: `CopyTree packages codebases into LLM-optimized context documents.

It walks your repository, applies intelligent filtering, sorting, secret
redaction, and optional tree-sitter compression to produce a single
context document optimized for large language models like Claude, ChatGPT, and
others.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateGlobalFlags(globalFlags); err != nil {
			return err
		}
		if err := config.ValidateRunFlags(flagValues); err != nil {
			return err
		}

		level := config.ResolveLogLevel(globalFlags.Verbose || globalFlags.Debug, globalFlags.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)
		ui.InitColors(globalFlags.Color)

		slog.Debug("logging initialized", "level", level, "format", format)

		if globalFlags.MetricsAddr != "" {
			metricsCollector = metrics.NewCollector()
			metricsServer = metrics.NewServer(globalFlags.MetricsAddr, metricsCollector)
			if err := metricsServer.Start(); err != nil {
				return err
			}
			slog.Debug("metrics server started", "addr", globalFlags.MetricsAddr)
		}
		return nil
	},
	// When no subcommand is given, delegate to the copy command.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopy(cmd, args)
	},
}

func init() {
	globalFlags = config.BindGlobalFlags(rootCmd)
	flagValues = config.BindRunFlags(rootCmd)
}

// runCopy is the default action when copytree is invoked with no subcommand:
// it runs the full pipeline using the resolved RunFlags and writes the
// rendered document to the configured sink.
func runCopy(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		flagValues.BasePath = args[0]
	}
	opts, err := toRunOptions(flagValues)
	if err != nil {
		return err
	}

	if flagValues.TokenCount || flagValues.TopFiles > 0 {
		result, err := stages.Preview(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if flagValues.TopFiles > 0 {
			PrintTopFiles(os.Stderr, result.Files, flagValues.TopFiles)
		} else {
			PrintTokenReport(os.Stderr, result.Files, flagValues.Tokenizer, flagValues.MaxTokens)
		}
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

// runListeners returns the pipeline.Listeners that should observe this run,
// currently just the metrics collector when --metrics-addr is set. Preview
// runs deliberately skip this: they never reach EventPipelineComplete's
// "a document was written" meaning.
func runListeners() []pipeline.Listener {
	if metricsCollector == nil {
		return nil
	}
	return []pipeline.Listener{metricsCollector.Listener()}
}

// Execute runs the root command and returns an appropriate exit code.
// If the error is a *pipeline.Error, its Code is the exit code.
// Generic errors return ExitError (1). Nil returns ExitSuccess (0).
func Execute() int {
	defer shutdownMetrics()

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		ui.Errorf("%s", err.Error())
		return extractExitCode(err)
	}
	return int(pipeline.ExitSuccess)
}

// shutdownMetrics stops the metrics server, if one was started.
func shutdownMetrics() {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Warn("metrics server shutdown", "error", err)
	}
}

// extractExitCode determines the process exit code from an error.
func extractExitCode(err error) int {
	if err == nil {
		return int(pipeline.ExitSuccess)
	}
	var pErr *pipeline.Error
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return int(pipeline.ExitError)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand registration.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. This is available after
// PersistentPreRunE has run. Subcommands use this to access shared configuration.
func GlobalFlags() *config.GlobalFlags {
	return globalFlags
}
