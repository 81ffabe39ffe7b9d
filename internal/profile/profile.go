// Package profile implements the Profile Model (spec.md §4.2): YAML
// documents describing what a run includes and how it is formatted, with
// strict unknown-key rejection and three-layer merging against CLI
// overrides. This is a distinct concern from internal/config's ambient
// Settings: a Profile governs a single run's scope, Settings govern the
// tool's own operation.
package profile

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TransformerConfig holds the per-transformer configuration entry in a
// Profile's Transformers map.
type TransformerConfig struct {
	Enabled bool           `yaml:"enabled"`
	Options map[string]any `yaml:"options"`
}

// OutputSettings controls rendering, mirroring spec.md §3's Profile output
// settings: format, pretty-print, line-numbers, metadata toggle, char limit.
type OutputSettings struct {
	Format        string `yaml:"format"`
	Pretty        bool   `yaml:"pretty"`
	LineNumbers   bool   `yaml:"line_numbers"`
	ShowMetadata  bool   `yaml:"show_metadata"`
	CharLimit     int    `yaml:"char_limit"`
}

// Options holds the scan-wide knobs from spec.md §3: max file size, max total
// size, max file count, follow symlinks, include hidden, respect gitignore.
type Options struct {
	MaxFileSize     int64 `yaml:"max_file_size"`
	MaxTotalSize    int64 `yaml:"max_total_size"`
	MaxFileCount    int   `yaml:"max_file_count"`
	FollowSymlinks  bool  `yaml:"follow_symlinks"`
	IncludeHidden   bool  `yaml:"include_hidden"`
	RespectGitignore bool `yaml:"respect_gitignore"`
}

// ExternalSource describes one external source entry (§4.14): a git URL
// (clone-or-update + optional subpath checkout) or a local path.
type ExternalSource struct {
	Name   string `yaml:"name"`
	Repo   string `yaml:"repo,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Subdir string `yaml:"subdir,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
}

// Profile is the immutable value object from spec.md §3. Parsed documents
// are validated (Validate) before use and never mutated in place; layering
// (Merge) always produces a new Profile.
type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`

	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Always  []string `yaml:"always"`
	Filter  []string `yaml:"filter"`

	Transformers map[string]TransformerConfig `yaml:"transformers"`

	Output  OutputSettings   `yaml:"output"`
	Options Options          `yaml:"options"`

	External []ExternalSource `yaml:"external_sources"`
}

// Default returns the hard-coded base Profile layered beneath every named
// profile and CLI override set, per spec.md §4.2.
func Default() *Profile {
	return &Profile{
		Name: "default",
		Output: OutputSettings{
			Format:       "markdown",
			ShowMetadata: true,
		},
		Options: Options{
			MaxFileSize:      1 << 20,
			MaxTotalSize:     50 << 20,
			RespectGitignore: true,
		},
		Transformers: map[string]TransformerConfig{},
	}
}

// Parse decodes a YAML profile document, rejecting unknown top-level keys.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks numeric limits are non-negative and the output format is
// recognized. Unknown-key rejection already happened during Parse via
// yaml.Decoder.KnownFields; Validate covers everything a YAML schema itself
// cannot express.
func (p *Profile) Validate() error {
	if p.Options.MaxFileSize < 0 {
		return fmt.Errorf("options.max_file_size must be non-negative")
	}
	if p.Options.MaxTotalSize < 0 {
		return fmt.Errorf("options.max_total_size must be non-negative")
	}
	if p.Options.MaxFileCount < 0 {
		return fmt.Errorf("options.max_file_count must be non-negative")
	}
	if p.Output.CharLimit < 0 {
		return fmt.Errorf("output.char_limit must be non-negative")
	}
	switch p.Output.Format {
	case "", "xml", "json", "ndjson", "sarif", "markdown", "tree":
	default:
		return fmt.Errorf("output.format: unrecognized value %q", p.Output.Format)
	}
	for _, src := range p.External {
		if src.Name == "" {
			return fmt.Errorf("external_sources: entry missing name")
		}
		if src.Repo == "" && src.Path == "" {
			return fmt.Errorf("external_sources %q: must set repo or path", src.Name)
		}
	}
	return nil
}

// Overrides holds CLI-supplied override values layered on top of a resolved
// Profile, per spec.md §4.2 ("command-line overrides: filter/include/
// exclude/always/transformers enabled").
type Overrides struct {
	Include []string
	Exclude []string
	Always  []string
	Filter  []string

	EnabledTransformers []string

	Format    string
	CharLimit int
}

// Merge layers override on top of base, shallow-merging by key: scalar
// fields are replaced when override sets a non-zero value, array fields
// concatenate with override's entries appended, matching spec.md §4.2.
func Merge(base *Profile, override Overrides) *Profile {
	merged := *base
	merged.Include = append(append([]string{}, base.Include...), override.Include...)
	merged.Exclude = append(append([]string{}, base.Exclude...), override.Exclude...)
	merged.Always = append(append([]string{}, base.Always...), override.Always...)
	merged.Filter = append(append([]string{}, base.Filter...), override.Filter...)

	merged.Transformers = make(map[string]TransformerConfig, len(base.Transformers))
	for k, v := range base.Transformers {
		merged.Transformers[k] = v
	}
	for _, name := range override.EnabledTransformers {
		cfg := merged.Transformers[name]
		cfg.Enabled = true
		merged.Transformers[name] = cfg
	}

	if override.Format != "" {
		merged.Output.Format = override.Format
	}
	if override.CharLimit != 0 {
		merged.Output.CharLimit = override.CharLimit
	}

	return &merged
}
