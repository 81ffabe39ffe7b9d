// Package pipeline defines the central data types and orchestration shared
// across all CopyTree stages: discovery, filtering, transformation, and
// rendering all operate on the same DTOs defined here.
package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/copytree/copytree/internal/profile"
)

// ExitCode represents the process exit code returned by the copytree CLI.
type ExitCode int

const (
	// ExitSuccess indicates the pipeline completed successfully.
	ExitSuccess ExitCode = 0

	// ExitError indicates a fatal error: ConfigError (unless
	// --no-validate), PatternSyntaxError, GitError (when filtering was
	// explicit), or SecretsDetected with --fail-on-secrets.
	ExitError ExitCode = 1

	// ExitUsage indicates a usage error: unknown/ambiguous flags, conflicting
	// options, missing required inputs.
	ExitUsage ExitCode = 2

	// ExitPartial indicates partial success: some per-record errors were
	// collected in stats.errors but output was still produced.
	ExitPartial ExitCode = 2
)

// OutputFormat specifies the format of the rendered context document.
type OutputFormat string

const (
	FormatXML      OutputFormat = "xml"
	FormatJSON     OutputFormat = "json"
	FormatNDJSON   OutputFormat = "ndjson"
	FormatSARIF    OutputFormat = "sarif"
	FormatMarkdown OutputFormat = "markdown"
	FormatTree     OutputFormat = "tree"
)

// SortOrder specifies how FileRecords are ordered prior to --head and
// char-limit enforcement.
type SortOrder string

const (
	SortPath      SortOrder = "path"
	SortSize      SortOrder = "size"
	SortModified  SortOrder = "modified"
	SortName      SortOrder = "name"
	SortExtension SortOrder = "extension"
)

// FileRecord is the immutable value object carried between pipeline stages.
// Stages never mutate a record in place; each stage that changes a record
// produces a new one with the relevant fields updated and appends to Trail.
type FileRecord struct {
	// AbsPath is the absolute filesystem path.
	AbsPath string `json:"abs_path"`

	// RelPath is the path relative to the scan base, always normalized to
	// forward slashes and unique within a file set once deduplication runs.
	RelPath string `json:"path"`

	// Size is the file size in bytes as reported by the filesystem.
	Size int64 `json:"size"`

	// ModTime is the last-modified timestamp reported by the filesystem.
	ModTime time.Time `json:"modified"`

	// Binary indicates the content is (or would be) binary. A record with
	// Binary == true carries Bytes, never Text.
	Binary bool `json:"binary"`

	// Loaded reports whether content has been read yet. Loaded == false means
	// "not yet loaded", never "empty": an empty file has Loaded == true and
	// Text == "".
	Loaded bool `json:"-"`

	// Text holds loaded textual content. Only one of Text/Bytes is used,
	// selected by Binary.
	Text string `json:"-"`

	// Bytes holds loaded binary content.
	Bytes []byte `json:"-"`

	// Encoding is an optional encoding tag (e.g. "utf-8", "base64").
	Encoding string `json:"encoding,omitempty"`

	// GitStatus is an optional git status tag ("modified", "added", "clean").
	GitStatus string `json:"git_status,omitempty"`

	// Meta carries transformer-contributed metadata (e.g. CSV's
	// {totalRows, columns}).
	Meta map[string]any `json:"meta,omitempty"`

	// Trail lists the transformer names applied to this record, in order.
	Trail []string `json:"trail,omitempty"`

	// ContentHash is the XXH3 hash of loaded content, used for fast
	// change-detection distinct from the cache's SHA-256 key.
	ContentHash uint64 `json:"content_hash,omitempty"`

	// Tier is an advisory relevance/priority tier (lower is higher priority),
	// used to order truncation and drop decisions under a char limit.
	Tier int `json:"tier"`

	// TokenCount is an advisory token count populated by the tokenizer
	// package's reporting commands; the char-limit stage never reads this
	// (spec.md's budget is character-based, not token-based).
	TokenCount int `json:"token_count,omitempty"`

	// Err records a per-record processing failure. A record with Err set may
	// still appear in output with an error annotation instead of content.
	Err error `json:"-"`
}

// Clone returns a shallow copy of fr suitable as the base for a stage's
// output record; callers still must not mutate shared slices/maps in place.
func (fr FileRecord) Clone() FileRecord {
	clone := fr
	if fr.Meta != nil {
		clone.Meta = make(map[string]any, len(fr.Meta))
		for k, v := range fr.Meta {
			clone.Meta[k] = v
		}
	}
	if fr.Trail != nil {
		clone.Trail = append([]string(nil), fr.Trail...)
	}
	return clone
}

// WithTransform returns a copy of fr with text content replaced and name
// appended to the transformation trail.
func (fr FileRecord) WithTransform(name, text string) FileRecord {
	clone := fr.Clone()
	clone.Text = text
	clone.Loaded = true
	clone.Trail = append(clone.Trail, name)
	return clone
}

// Content returns the record's textual content. It returns "" for a binary
// record; binary content stays in Bytes.
func (fr FileRecord) Content() string {
	if fr.Binary {
		return ""
	}
	return fr.Text
}

// IsValid reports whether fr has the minimum fields required to flow through
// the pipeline: a non-empty relative path.
func (fr FileRecord) IsValid() bool {
	return fr.RelPath != ""
}

// DiscoveryResult holds the aggregate output of the file discovery stage.
type DiscoveryResult struct {
	Files        []FileRecord   `json:"files"`
	TotalFound   int            `json:"total_found"`
	TotalSkipped int            `json:"total_skipped"`
	SkipReasons  map[string]int `json:"skip_reasons"`
}

// StageFailure records a single stage-level or per-record failure captured
// in PipelineStats.Failures.
type StageFailure struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}

// StageTiming captures one stage's contribution to PipelineStats.
type StageTiming struct {
	Name         string        `json:"name"`
	Elapsed      time.Duration `json:"elapsed"`
	HeapDelta    int64         `json:"heap_delta"`
	InputCount   int           `json:"input_count"`
	OutputCount  int           `json:"output_count"`
}

// PipelineStats accumulates monotonically over the lifetime of one
// process(input) invocation. Safe for concurrent use by stages running
// bounded-concurrency work internally; the orchestrator itself runs stages
// sequentially so most fields need no locking, but Failures is appended to
// from stage goroutines and is guarded by mu.
type PipelineStats struct {
	mu sync.Mutex

	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	Stages     []StageTiming  `json:"stages"`
	Failures   []StageFailure `json:"failures"`
	FilesTotal int            `json:"files_total"`
	BytesIn    int64          `json:"bytes_in"`
	BytesOut   int64          `json:"bytes_out"`
	CacheHits  int            `json:"cache_hits"`
	CacheMiss  int            `json:"cache_misses"`
}

// RecordFailure appends a failure in a concurrency-safe way.
func (ps *PipelineStats) RecordFailure(stage string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.Failures = append(ps.Failures, StageFailure{Stage: stage, Error: err.Error()})
}

// RecordStage appends a stage timing entry.
func (ps *PipelineStats) RecordStage(t StageTiming) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.Stages = append(ps.Stages, t)
}

// SuccessRate returns the fraction of processed files that did not produce a
// recorded failure. Returns 1.0 when FilesTotal is zero.
func (ps *PipelineStats) SuccessRate() float64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.FilesTotal == 0 {
		return 1.0
	}
	failed := len(ps.Failures)
	if failed > ps.FilesTotal {
		failed = ps.FilesTotal
	}
	return float64(ps.FilesTotal-failed) / float64(ps.FilesTotal)
}

// Summary returns the user-visible end-of-run summary per spec.md §7:
// failed_count, first 3 reasons, cache hits, duration.
func (ps *PipelineStats) Summary() (failedCount int, firstReasons []string, cacheHits int, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	failedCount = len(ps.Failures)
	for i, f := range ps.Failures {
		if i >= 3 {
			break
		}
		firstReasons = append(firstReasons, f.Error)
	}
	cacheHits = ps.CacheHits
	duration = ps.EndedAt.Sub(ps.StartedAt)
	return
}

// RunOptions collects the command-line overrides applied on top of a
// resolved Profile for a single pipeline invocation. Defined here (rather
// than internal/config) so internal/pipeline has no import-cycle dependency
// on the CLI or profile packages; internal/cli populates this from
// config.RunFlags and profile.Profile before calling the orchestrator.
type RunOptions struct {
	BasePath string

	Filter  []string
	Exclude []string
	Always  []string

	Modified bool
	Changed  string

	Head      int
	CharLimit int
	Sort      SortOrder

	Format  OutputFormat
	Output  string
	Display bool

	Clipboard   bool
	Stream      bool
	AsReference bool
	OnlyTree    bool

	WithLineNumbers bool
	ShowSize        bool
	WithGitStatus   bool
	IncludeBinary   bool

	Dedupe bool

	NoCache bool

	SecretsGuard      bool
	SecretsRedactMode string
	FailOnSecrets     bool

	NoValidate     bool
	FailOnFSErrors bool
	DryRun         bool

	Profile            string
	Tokenizer          string
	MaxTokens          int
	TruncationStrategy string
	TopFiles           int

	InstructionsPath string
	NoInstructions   bool

	ExternalSources []profile.ExternalSource
}

// PreviewResult is returned by a preview run: the resolved file set and
// per-file line counts, without writing any output document.
type PreviewResult struct {
	Files      []FileRecord
	LineCounts map[string]int
}

// Context is the mutable controller state visible to all stages during one
// process(input) invocation. Created by the orchestrator at pipeline start
// and discarded when it ends.
type Context struct {
	Opts   RunOptions
	Logger *slog.Logger
	Stats  *PipelineStats
	Events *Emitter

	// Instructions holds the text the Instructions stage loaded, threaded
	// through to the OutputFormatting stage rather than carried on every
	// FileRecord since it is document-level, not per-file.
	Instructions string
}

// NewContext creates a fresh pipeline Context for a single run.
func NewContext(opts RunOptions, logger *slog.Logger) *Context {
	return &Context{
		Opts:   opts,
		Logger: logger,
		Stats:  &PipelineStats{StartedAt: time.Now()},
		Events: NewEmitter(),
	}
}
