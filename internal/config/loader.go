package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// GlobalConfigPath returns the default path of the user's global settings
// file: $XDG_CONFIG_HOME/copytree/config.toml, falling back to
// ~/.config/copytree/config.toml.
func GlobalConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "copytree", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "copytree", "config.toml"), nil
}

// LoadSettings loads global Settings starting from DefaultSettings, then
// layering the global config file (if present) on top, then environment
// variable overrides. A missing global config file is not an error.
func LoadSettings() (*Settings, error) {
	settings := DefaultSettings()

	path, err := GlobalConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileSettings, loadErr := LoadSettingsFile(path)
			if loadErr != nil {
				return nil, loadErr
			}
			mergeSettings(settings, fileSettings)
		}
	}

	applySettingsEnvOverrides(settings)

	return settings, nil
}

// LoadSettingsFile reads and parses a TOML settings file at path. Unknown
// keys are logged as warnings (settings files are forward-compatible; unlike
// Profile documents, spec.md does not require strict rejection here).
func LoadSettingsFile(path string) (*Settings, error) {
	var s Settings
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("parse global config %s: %w", path, err)
	}
	warnUndecodedKeys(meta, path)
	return &s, nil
}

// mergeSettings shallow-merges non-zero fields of override into base.
func mergeSettings(base, override *Settings) {
	if override.CacheDir != "" {
		base.CacheDir = override.CacheDir
	}
	if override.CacheTTLSeconds != 0 {
		base.CacheTTLSeconds = override.CacheTTLSeconds
	}
	if override.AIAPIKey != "" {
		base.AIAPIKey = override.AIAPIKey
	}
	if override.Debug {
		base.Debug = override.Debug
	}
	if override.Color != "" {
		base.Color = override.Color
	}
	if override.DefaultMaxFileSize != 0 {
		base.DefaultMaxFileSize = override.DefaultMaxFileSize
	}
	if override.DefaultMaxTotalSize != 0 {
		base.DefaultMaxTotalSize = override.DefaultMaxTotalSize
	}
	if override.AIRequestsPerSecond != 0 {
		base.AIRequestsPerSecond = override.AIRequestsPerSecond
	}
}

// warnUndecodedKeys logs a warning for each key in the TOML document that did
// not map to any field in the destination struct.
func warnUndecodedKeys(meta toml.MetaData, source string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	slog.Warn("unknown config keys will be ignored",
		"source", source,
		"keys", strings.Join(keys, ", "),
	)
}
