// Package tokenizer provides token counting implementations for LLM context
// documents. This file implements report data structures and formatters for
// presenting token count summaries to the user via the CLI.
package tokenizer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/copytree/copytree/internal/pipeline"
)

// extensionKeyFor returns the grouping key used for a file's per-extension
// stats: the lowercase extension including its dot, or "(no ext)" for
// extensionless files such as Makefile or Dockerfile.
func extensionKeyFor(relPath string) string {
	ext := strings.ToLower(filepath.Ext(relPath))
	if ext == "" {
		return "(no ext)"
	}
	return ext
}

// ExtReportStat holds per-extension file and token counts.
type ExtReportStat struct {
	// FileCount is the number of files with this extension.
	FileCount int

	// TokenCount is the total number of tokens across all files with this
	// extension.
	TokenCount int
}

// TokenReport holds the summary data for a full token count report.
type TokenReport struct {
	// TokenizerName is the encoding name used (e.g., "cl100k_base").
	TokenizerName string

	// TotalFiles is the total number of files included in the report.
	TotalFiles int

	// TotalTokens is the sum of token counts across all files.
	TotalTokens int

	// Budget is the configured max token budget (0 means unlimited).
	Budget int

	// ExtStats maps file extension (e.g. ".go", "(no ext)") to per-extension
	// statistics, letting a user see which file kinds dominate the budget.
	ExtStats map[string]*ExtReportStat
}

// NewTokenReport builds a TokenReport from a set of file descriptors.
// tokenizerName is the encoding name (e.g., "cl100k_base").
// budget is the configured max token budget (0 = unlimited).
func NewTokenReport(files []pipeline.FileRecord, tokenizerName string, budget int) *TokenReport {
	r := &TokenReport{
		TokenizerName: tokenizerName,
		Budget:        budget,
		ExtStats:      make(map[string]*ExtReportStat),
	}

	for _, fd := range files {
		if !fd.IsValid() {
			continue
		}
		r.TotalFiles++
		r.TotalTokens += fd.TokenCount

		key := extensionKeyFor(fd.RelPath)
		stat, ok := r.ExtStats[key]
		if !ok {
			stat = &ExtReportStat{}
			r.ExtStats[key] = stat
		}
		stat.FileCount++
		stat.TokenCount += fd.TokenCount
	}

	return r
}

// Format renders the token report as a plain-text string suitable for printing
// to stderr. Uses unicode box-drawing chars for the separator line.
func (r *TokenReport) Format() string {
	var sb strings.Builder

	title := fmt.Sprintf("Token Report (%s)", r.TokenizerName)
	separator := strings.Repeat("─", len(title)+2)

	sb.WriteString(title + "\n")
	sb.WriteString(separator + "\n")
	fmt.Fprintf(&sb, "Total files:  %s\n", FormatInt(r.TotalFiles))
	fmt.Fprintf(&sb, "Total tokens: %s\n", FormatInt(r.TotalTokens))

	if r.Budget > 0 {
		pct := int(float64(r.TotalTokens) / float64(r.Budget) * 100)
		fmt.Fprintf(&sb, "Budget:       %s (%d%% used)\n", FormatInt(r.Budget), pct)
	} else {
		sb.WriteString("Budget:       unlimited\n")
	}

	if len(r.ExtStats) > 0 {
		sb.WriteString("\nBy Extension:\n")
		exts := make([]string, 0, len(r.ExtStats))
		for ext := range r.ExtStats {
			exts = append(exts, ext)
		}
		sort.Slice(exts, func(i, j int) bool {
			si, sj := r.ExtStats[exts[i]], r.ExtStats[exts[j]]
			if si.TokenCount != sj.TokenCount {
				return si.TokenCount > sj.TokenCount
			}
			return exts[i] < exts[j]
		})

		for _, ext := range exts {
			stat := r.ExtStats[ext]
			fmt.Fprintf(&sb, "  %-12s %s files  %s tokens\n",
				ext,
				FormatInt(stat.FileCount),
				FormatInt(stat.TokenCount),
			)
		}
	}

	return sb.String()
}

// TopFilesEntry holds data for a single file in the top-N listing.
type TopFilesEntry struct {
	// Path is the relative file path.
	Path string

	// TokenCount is the number of tokens in this file.
	TokenCount int
}

// TopFilesReport holds the top-N files by token count.
type TopFilesReport struct {
	// N is the requested limit (0 means all files were included).
	N int

	// Files is the sorted list of entries (descending by TokenCount).
	Files []TopFilesEntry
}

// NewTopFilesReport builds a TopFilesReport from file descriptors.
// Files are sorted by TokenCount descending. n=0 includes all files.
func NewTopFilesReport(files []pipeline.FileRecord, n int) *TopFilesReport {
	entries := make([]TopFilesEntry, 0, len(files))
	for _, fd := range files {
		if !fd.IsValid() {
			continue
		}
		entries = append(entries, TopFilesEntry{
			Path:       fd.RelPath,
			TokenCount: fd.TokenCount,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TokenCount > entries[j].TokenCount
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}

	return &TopFilesReport{N: n, Files: entries}
}

// Format renders the top-N files report as a plain-text string.
func (r *TopFilesReport) Format() string {
	var sb strings.Builder

	label := "All Files"
	if r.N > 0 {
		label = fmt.Sprintf("Top %d Files", r.N)
	}

	title := fmt.Sprintf("%s by Token Count:", label)
	separator := strings.Repeat("─", len(title)+2)

	sb.WriteString(title + "\n")
	sb.WriteString(separator + "\n")

	if len(r.Files) == 0 {
		sb.WriteString("  (no files)\n")
		return sb.String()
	}

	for i, entry := range r.Files {
		fmt.Fprintf(&sb, " %2d. %-50s  %s tokens\n",
			i+1,
			entry.Path,
			FormatInt(entry.TokenCount),
		)
	}

	return sb.String()
}

// HeatmapEntry holds data for a single file in the token density heatmap.
type HeatmapEntry struct {
	// Path is the relative file path.
	Path string

	// Lines is the number of lines in the file.
	Lines int

	// Tokens is the number of tokens in the file.
	Tokens int

	// Density is the token density: tokens per line.
	// Files with 0 lines get density 0 (no division by zero).
	Density float64
}

// HeatmapReport holds files sorted by token density (tokens per line) descending.
type HeatmapReport struct {
	// Files is the list of entries sorted by Density descending.
	Files []HeatmapEntry
}

// NewHeatmapReport builds a HeatmapReport from file descriptors.
// lineCounts maps fd.RelPath -> number of lines in that file.
// Files with 0 lines get density 0 (no division by zero).
// Nil files and nil lineCounts are handled gracefully.
func NewHeatmapReport(files []pipeline.FileRecord, lineCounts map[string]int) *HeatmapReport {
	entries := make([]HeatmapEntry, 0, len(files))

	for _, fd := range files {
		if !fd.IsValid() {
			continue
		}

		lines := 0
		if lineCounts != nil {
			lines = lineCounts[fd.RelPath]
		}

		var density float64
		if lines > 0 {
			density = float64(fd.TokenCount) / float64(lines)
		}

		entries = append(entries, HeatmapEntry{
			Path:    fd.RelPath,
			Lines:   lines,
			Tokens:  fd.TokenCount,
			Density: density,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Density > entries[j].Density
	})

	return &HeatmapReport{Files: entries}
}

// Format renders the heatmap as a plain-text string sorted by density descending.
func (r *HeatmapReport) Format() string {
	var sb strings.Builder

	title := "Token Heatmap (tokens per line):"
	separator := strings.Repeat("─", len(title)+2)

	sb.WriteString(title + "\n")
	sb.WriteString(separator + "\n")

	if len(r.Files) == 0 {
		sb.WriteString("  (no files)\n")
		return sb.String()
	}

	for i, entry := range r.Files {
		fmt.Fprintf(&sb, " %2d. %-50s  %.1f tok/line  (%s lines, %s tokens)\n",
			i+1,
			entry.Path,
			entry.Density,
			FormatInt(entry.Lines),
			FormatInt(entry.Tokens),
		)
	}

	return sb.String()
}

// FormatInt formats an integer with comma separators (e.g., 89420 -> "89,420").
// Exported for use in CLI formatting code.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	// Insert commas every 3 digits from the right.
	var result []byte
	start := len(s) % 3
	if start == 0 {
		start = 3
	}
	result = append(result, s[:start]...)
	for i := start; i < len(s); i += 3 {
		result = append(result, ',')
		result = append(result, s[i:i+3]...)
	}

	return string(result)
}
