// Package ui provides color output helpers for the copytree CLI, respecting
// the --color flag (auto, always, never) and the NO_COLOR environment
// variable. Colors are automatically disabled when output is not a TTY.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Pre-configured color instances for consistent CLI output.
var (
	// Red is used for error messages and failures.
	Red = color.New(color.FgRed)

	// Yellow is used for warnings and cautions.
	Yellow = color.New(color.FgYellow)

	// Green is used for success messages and completions.
	Green = color.New(color.FgGreen)

	// Cyan is used for informational messages, labels, and counts.
	Cyan = color.New(color.FgCyan)

	// Bold is used for headers and important labels.
	Bold = color.New(color.Bold)

	// Dim is used for less important details like paths.
	Dim = color.New(color.Faint)
)

// InitColors configures global color output from the --color flag value
// (auto, always, never). "auto" defers to fatih/color's own NO_COLOR and
// isatty detection, checked here against stderr since report output (token
// counts, top-files, heatmaps) is written there.
func InitColors(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !isatty.IsTerminal(os.Stderr.Fd())
	}
}

// Success prints a green success message with a checkmark prefix.
func Success(msg string) {
	_, _ = Green.Fprintln(os.Stderr, "✓ "+msg)
}

// Warning prints a yellow warning message with a warning symbol prefix.
func Warning(msg string) {
	_, _ = Yellow.Fprintln(os.Stderr, "⚠ "+msg)
}

// Warningf prints a formatted yellow warning message.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// Errorf prints a formatted red error message with an X prefix.
func Errorf(format string, args ...any) {
	_, _ = Red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Header returns a bold header with an underline separator, for report
// titles such as the token-count and top-files summaries.
func Header(text string) string {
	return Bold.Sprint(text) + "\n" + strings.Repeat("=", len(text))
}

// Label returns a bold-formatted label string for inline use.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns a dim-formatted string for less important text, such as
// file paths in a report.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText returns a cyan-formatted count value for statistics display.
func CountText(count int) string {
	return Cyan.Sprint(fmt.Sprint(count))
}
