package config

import (
	"os"
	"strconv"
)

// Environment variable names recognized by copytree. Per spec.md §6,
// environment never overrides an explicit CLI flag: applySettingsEnvOverrides
// only fills in Settings fields, which are resolved before flags are applied,
// so flag binding always has the final word.
const (
	EnvCacheDir     = "COPYTREE_CACHE_DIR"
	EnvCacheTTL     = "COPYTREE_CACHE_TTL_SECONDS"
	EnvAIAPIKey     = "COPYTREE_AI_API_KEY"
	EnvDebug        = "COPYTREE_DEBUG"
	EnvColor        = "COPYTREE_COLOR"
	EnvMaxFileSize  = "COPYTREE_MAX_FILE_SIZE"
	EnvMaxTotalSize = "COPYTREE_MAX_TOTAL_SIZE"
	EnvLogFormat    = "COPYTREE_LOG_FORMAT"
	EnvProfile      = "COPYTREE_PROFILE"
	EnvOutput       = "COPYTREE_OUTPUT"
	EnvFormat       = "COPYTREE_FORMAT"
)

// applySettingsEnvOverrides fills in Settings fields from COPYTREE_*
// environment variables. It is called after defaults and the global config
// file have been applied, and before the CLI layer resolves its own flags.
func applySettingsEnvOverrides(s *Settings) {
	if v := os.Getenv(EnvCacheDir); v != "" {
		s.CacheDir = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv(EnvAIAPIKey); v != "" {
		s.AIAPIKey = v
	}
	if os.Getenv(EnvDebug) == "1" {
		s.Debug = true
	}
	if v := os.Getenv(EnvColor); v != "" {
		s.Color = v
	}
	if v := os.Getenv(EnvMaxFileSize); v != "" {
		if n, err := ParseSize(v); err == nil {
			s.DefaultMaxFileSize = n
		}
	}
	if v := os.Getenv(EnvMaxTotalSize); v != "" {
		if n, err := ParseSize(v); err == nil {
			s.DefaultMaxTotalSize = n
		}
	}
}
