package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DefaultCharLimit is the character budget applied when --char-limit is not
// specified: 0 means unlimited.
const DefaultCharLimit = 0

// RunFlags collects the parsed flag values for the default `copy` subcommand,
// populated by BindRunFlags and consumed by the pipeline orchestrator.
// Field names mirror the long flag names in spec.md §6.
type RunFlags struct {
	// BasePath is the directory to walk, taken from the positional argument.
	// It defaults to the current working directory when empty.
	BasePath string

	Profile  string
	Filter   []string
	Exclude  []string
	Always   []string
	Modified bool
	Changed  string
	Head     int

	CharLimit int

	Format  string
	Output  string
	Display bool

	Clipboard    bool
	Stream       bool
	AsReference  bool
	OnlyTree     bool

	WithLineNumbers bool
	ShowSize        bool
	WithGitStatus   bool
	IncludeBinary   bool

	Dedupe bool
	Sort   string

	NoCache bool

	SecretsGuard      bool
	SecretsRedactMode string
	FailOnSecrets     bool

	NoValidate      bool
	FailOnFSErrors  bool
	DryRun          bool

	Tokenizer          string
	MaxTokens          int
	TruncationStrategy string
	TokenCount         bool
	TopFiles           int

	InstructionsPath string
	NoInstructions   bool

	Yes bool
}

// BindRunFlags registers the `copy` subcommand's flags on cmd's persistent
// flag set and returns a RunFlags pointer populated once Cobra parses
// arguments. Flags are bound persistently so that subcommands such as
// `preview` inherit them via Command.InheritedFlags. Grounded on the
// teacher's BindFlags/FlagValues shape in internal/cli/root.go.
func BindRunFlags(cmd *cobra.Command) *RunFlags {
	rf := &RunFlags{}

	f := cmd.PersistentFlags()
	f.StringVar(&rf.Profile, "profile", "", "named profile to apply")
	f.StringArrayVar(&rf.Filter, "filter", nil, "include glob pattern (repeatable)")
	f.StringArrayVar(&rf.Exclude, "exclude", nil, "exclude glob pattern (repeatable)")
	f.StringArrayVar(&rf.Always, "always", nil, "force-include glob pattern, overrides exclusions (repeatable)")
	f.BoolVar(&rf.Modified, "modified", false, "restrict to files with uncommitted modifications")
	f.StringVar(&rf.Changed, "changed", "", "restrict to files changed relative to <ref>")
	f.IntVar(&rf.Head, "head", 0, "limit to the first N records after sorting (0 = no limit)")

	f.IntVar(&rf.CharLimit, "char-limit", DefaultCharLimit, "total character budget across all file content (0 = unlimited)")

	f.StringVar(&rf.Format, "format", "markdown", "output format: xml, json, ndjson, sarif, markdown, tree")
	f.StringVarP(&rf.Output, "output", "o", "", "write output to file")
	f.BoolVar(&rf.Display, "display", false, "print output to stdout/TUI")

	f.BoolVar(&rf.Clipboard, "clipboard", false, "copy output to the system clipboard")
	f.BoolVar(&rf.Stream, "stream", false, "accepted; output is written once rendering completes (records are not streamed)")
	f.BoolVar(&rf.AsReference, "as-reference", false, "emit file references instead of inlined content")
	f.BoolVar(&rf.OnlyTree, "only-tree", false, "emit only the directory tree, no file content")

	f.BoolVar(&rf.WithLineNumbers, "with-line-numbers", false, "prefix each content line with its line number")
	f.BoolVar(&rf.ShowSize, "show-size", false, "annotate each record with its size")
	f.BoolVar(&rf.WithGitStatus, "with-git-status", false, "annotate each record with its git status")
	f.BoolVar(&rf.IncludeBinary, "include-binary", false, "accepted; binary files are handled the same way with or without it")

	f.BoolVar(&rf.Dedupe, "dedupe", false, "drop records whose transformed content duplicates an earlier record")
	f.StringVar(&rf.Sort, "sort", "path", "sort order: path, size, modified, name, extension")

	f.BoolVar(&rf.NoCache, "no-cache", false, "bypass the transformer cache")

	f.BoolVar(&rf.SecretsGuard, "secrets-guard", false, "scan transformed content for likely secrets")
	f.StringVar(&rf.SecretsRedactMode, "secrets-redact-mode", "typed", "redaction mode when secrets are found: typed, generic, hash")
	f.BoolVar(&rf.FailOnSecrets, "fail-on-secrets", false, "exit with SecretsDetected when secrets are found")

	f.BoolVar(&rf.NoValidate, "no-validate", false, "downgrade profile/config validation errors to warnings")
	f.BoolVar(&rf.FailOnFSErrors, "fail-on-fs-errors", false, "escalate per-file filesystem errors to fatal")
	f.BoolVar(&rf.DryRun, "dry-run", false, "resolve the file set and print a summary without writing output")

	f.StringVar(&rf.Tokenizer, "tokenizer", "cl100k_base", "tokenizer encoding for token counts: cl100k_base, o200k_base, none")
	f.IntVar(&rf.MaxTokens, "max-tokens", 0, "maximum token budget across all included files (0 = unlimited)")
	f.StringVar(&rf.TruncationStrategy, "truncation-strategy", "skip", "behavior when a file exceeds the remaining token budget: skip, truncate")
	f.BoolVar(&rf.TokenCount, "token-count", false, "print a token count report instead of generating output")
	f.IntVar(&rf.TopFiles, "top-files", 0, "print the N files with the highest token counts (0 = disabled)")

	f.StringVar(&rf.InstructionsPath, "instructions", "", "path to an instructions template to embed in the output")
	f.BoolVar(&rf.NoInstructions, "no-instructions", false, "omit the instructions block from the output")

	f.BoolVarP(&rf.Yes, "yes", "y", false, "assume yes to confirmation prompts")

	return rf
}

// ValidateRunFlags checks parsed RunFlags for correctness and mutual
// constraints not expressible through Cobra alone.
func ValidateRunFlags(rf *RunFlags) error {
	switch rf.Format {
	case "xml", "json", "ndjson", "sarif", "markdown", "tree":
	default:
		return fmt.Errorf("--format: invalid value %q (allowed: xml, json, ndjson, sarif, markdown, tree)", rf.Format)
	}

	switch rf.Sort {
	case "path", "size", "modified", "name", "extension":
	default:
		return fmt.Errorf("--sort: invalid value %q (allowed: path, size, modified, name, extension)", rf.Sort)
	}

	switch rf.SecretsRedactMode {
	case "typed", "generic", "hash":
	default:
		return fmt.Errorf("--secrets-redact-mode: invalid value %q (allowed: typed, generic, hash)", rf.SecretsRedactMode)
	}

	if rf.Modified && rf.Changed != "" {
		return fmt.Errorf("--modified and --changed are mutually exclusive")
	}

	if rf.Head < 0 {
		return fmt.Errorf("--head: must be non-negative, got %d", rf.Head)
	}

	if rf.CharLimit < 0 {
		return fmt.Errorf("--char-limit: must be non-negative, got %d", rf.CharLimit)
	}

	if rf.FailOnSecrets && !rf.SecretsGuard {
		rf.SecretsGuard = true
	}

	switch rf.Tokenizer {
	case "cl100k_base", "o200k_base", "none":
	default:
		return fmt.Errorf("--tokenizer: invalid value %q (allowed: cl100k_base, o200k_base, none)", rf.Tokenizer)
	}

	switch rf.TruncationStrategy {
	case "skip", "truncate":
	default:
		return fmt.Errorf("--truncation-strategy: invalid value %q (allowed: skip, truncate)", rf.TruncationStrategy)
	}

	if rf.MaxTokens < 0 {
		return fmt.Errorf("--max-tokens: must be non-negative, got %d", rf.MaxTokens)
	}

	if rf.TopFiles < 0 {
		return fmt.Errorf("--top-files: must be non-negative, got %d", rf.TopFiles)
	}

	return nil
}

// GlobalFlags collects persistent flags shared by every subcommand, following
// the teacher's root.go split between global and per-command flags.
type GlobalFlags struct {
	Verbose bool
	Quiet   bool
	Debug   bool
	Color   string

	MetricsAddr string
}

// BindGlobalFlags registers persistent flags on the root command.
func BindGlobalFlags(cmd *cobra.Command) *GlobalFlags {
	gf := &GlobalFlags{}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&gf.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&gf.Quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVar(&gf.Debug, "debug", false, "alias for --verbose (debug logging only; errors are reported without stack traces)")
	pf.StringVar(&gf.Color, "color", "auto", "color output: auto, always, never")
	pf.StringVar(&gf.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090), disabled when empty")

	return gf
}

// ValidateGlobalFlags checks GlobalFlags for mutual exclusion.
func ValidateGlobalFlags(gf *GlobalFlags) error {
	if gf.Verbose && gf.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	switch gf.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("--color: invalid value %q (allowed: auto, always, never)", gf.Color)
	}
	return nil
}

// ParseSize parses a human-readable size string into bytes. It supports KB,
// MB, and GB suffixes (case-insensitive, including fractional values like
// "1.5MB"). Plain numbers without a suffix are treated as bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(s)

	var suffix string
	var multiplier int64

	switch {
	case strings.HasSuffix(upper, "GB"):
		suffix = "GB"
		multiplier = 1024 * 1024 * 1024
	case strings.HasSuffix(upper, "MB"):
		suffix = "MB"
		multiplier = 1024 * 1024
	case strings.HasSuffix(upper, "KB"):
		suffix = "KB"
		multiplier = 1024
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if n < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return n, nil
	}

	numStr := strings.TrimSpace(s[:len(s)-len(suffix)])
	n, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(numStr, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if f < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return int64(f * float64(multiplier)), nil
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative: %q", s)
	}
	return n * multiplier, nil
}
