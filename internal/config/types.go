// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// LevelDebug logs everything, including per-frame protocol details.
	LevelDebug LogLevel = "debug"
	// LevelInfo logs load phases, invocations, and lifecycle events.
	LevelInfo LogLevel = "info"
	// LevelWarn logs skipped plugins and degraded behavior only.
	LevelWarn LogLevel = "warn"
	// LevelError logs failures only.
	LevelError LogLevel = "error"

	// FormatText renders human-readable styled log lines.
	FormatText LogFormat = "text"
	// FormatJSON renders one JSON object per log line.
	FormatJSON LogFormat = "json"
	// FormatLogfmt renders key=value log lines.
	FormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
)

type (
	// LogLevel selects the minimum level that gets logged.
	LogLevel string

	// LogFormat selects how log lines are rendered.
	LogFormat string

	// Config holds the runtime configuration.
	Config struct {
		// PluginDirs are extra directories scanned for descriptor files,
		// on top of the default plugin directory under the config dir.
		PluginDirs []string `json:"plugin_dirs" mapstructure:"plugin_dirs"`
		// SettingsDir overrides where persisted setting layers live.
		SettingsDir string `json:"settings_dir" mapstructure:"settings_dir"`
		// LogLevel selects the minimum log level.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// LogFormat selects the log output format.
		LogFormat LogFormat `json:"log_format" mapstructure:"log_format"`
		// DefaultTimeout bounds transform runs that carry no explicit
		// timeout. Zero leaves them unbounded.
		DefaultTimeout time.Duration `json:"default_timeout" mapstructure:"default_timeout"`
		// MetricsAddr serves Prometheus metrics on this address when set.
		MetricsAddr string `json:"metrics_addr" mapstructure:"metrics_addr"`
		// DropUnknownOverrides drops runtime setting overrides that no
		// spec declares instead of passing them through to transforms.
		DropUnknownOverrides bool `json:"drop_unknown_overrides" mapstructure:"drop_unknown_overrides"`
	}
)

// IsValid reports whether the level is one of the known values.
func (l LogLevel) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// IsValid reports whether the format is one of the known values.
func (f LogFormat) IsValid() bool {
	switch f {
	case FormatText, FormatJSON, FormatLogfmt:
		return true
	}
	return false
}

// Validate checks constraints the CUE schema cannot enforce on values that
// arrived through the environment, and aggregates all problems found.
func (c *Config) Validate() error {
	var errs []error

	if !c.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel))
	}
	if !c.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat))
	}
	if c.DefaultTimeout < 0 {
		errs = append(errs, fmt.Errorf("default_timeout must not be negative, got %s", c.DefaultTimeout))
	}

	return errors.Join(errs...)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		PluginDirs:           []string{},
		SettingsDir:          "", // resolved under the config dir when empty
		LogLevel:             LevelInfo,
		LogFormat:            FormatText,
		DefaultTimeout:       0,
		MetricsAddr:          "",
		DropUnknownOverrides: true,
	}
}
