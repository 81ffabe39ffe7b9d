// Package config handles copytree's ambient, cross-cutting configuration
// concerns: global tool settings (cache directory, AI key, debug/color
// toggles, size and TTL defaults), environment variable overrides, CLI flag
// binding, and logging setup. Per-project Profile documents (include/exclude
// globs, transformer options, output settings) live in internal/profile —
// that is a separate concern with its own YAML schema.
package config

// Settings holds the global, tool-wide configuration normally sourced from
// ~/.config/copytree/config.toml and environment variables. It is distinct
// from a Profile: Settings govern the tool's own operation (cache location,
// AI credentials, default size caps); a Profile governs what a single run
// includes and how it is formatted.
type Settings struct {
	// CacheDir is the root directory for the content-addressed cache.
	// Defaults to the OS user cache directory + "/copytree".
	CacheDir string `toml:"cache_dir"`

	// CacheTTLSeconds is the default time-to-live for cache entries.
	CacheTTLSeconds int64 `toml:"cache_ttl_seconds"`

	// AIAPIKey is the API key used by AI-backed transformers
	// (AISummary, ImageDescription, SvgDescription, ...). Optional: when
	// empty, AI transformers degrade to a placeholder per spec.md §4.6.
	AIAPIKey string `toml:"ai_api_key"`

	// Debug enables verbose (debug-level) logging.
	Debug bool `toml:"debug"`

	// Color controls ANSI color output. "auto" (default), "always", "never".
	Color string `toml:"color"`

	// DefaultMaxFileSize is the default per-file size cap in bytes.
	DefaultMaxFileSize int64 `toml:"default_max_file_size"`

	// DefaultMaxTotalSize is the default cumulative size cap in bytes.
	DefaultMaxTotalSize int64 `toml:"default_max_total_size"`

	// AIRequestsPerSecond bounds the AI client's token-bucket rate limiter.
	AIRequestsPerSecond float64 `toml:"ai_requests_per_second"`
}

// DefaultSettings returns the built-in Settings used when no global config
// file is present and no environment overrides apply.
func DefaultSettings() *Settings {
	return &Settings{
		CacheTTLSeconds:     7 * 24 * 3600,
		Color:               "auto",
		DefaultMaxFileSize:  1 << 20,  // 1MB
		DefaultMaxTotalSize: 50 << 20, // 50MB
		AIRequestsPerSecond: 2.0,
	}
}
