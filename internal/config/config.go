// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/graftlabs/graft/internal/issue"
	"github.com/graftlabs/graft/pkg/cueutil"
)

const (
	// AppName is the directory name used under the per-OS config root.
	AppName = "graft"
	// ConfigFileName is the config file base name.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// SettingsDirName is the default settings directory under the config dir.
	SettingsDirName = "settings"
	// PluginDirName is the default descriptor directory under the config dir.
	PluginDirName = "plugins"
)

//go:embed config_schema.cue
var configSchema []byte

// LoadOptions controls where Load looks for the config file.
type LoadOptions struct {
	// ConfigFilePath loads this exact file. Loading fails if it does not exist.
	ConfigFilePath string

	// ConfigDirPath overrides the per-OS config directory for this load only.
	ConfigDirPath string
}

// Load reads the configuration and returns the effective config together
// with the path of the file it came from. The path is empty when no config
// file was found and only defaults and environment variables applied.
//
// Precedence, lowest to highest: built-in defaults, config file, GRAFT_*
// environment variables.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("decode config").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate config").
			WithResource(path).
			WithSuggestion("Valid log levels are debug, info, warn, error").
			WithSuggestion("Valid log formats are text, json, logfmt").
			Wrap(err).
			BuildError()
	}

	return cfg, path, nil
}

// setDefaults registers every config key with viper. Keys must have a
// default for AutomaticEnv to surface their GRAFT_* variables during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("plugin_dirs", def.PluginDirs)
	v.SetDefault("settings_dir", def.SettingsDir)
	v.SetDefault("log_level", string(def.LogLevel))
	v.SetDefault("log_format", string(def.LogFormat))
	v.SetDefault("default_timeout", def.DefaultTimeout)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("drop_unknown_overrides", def.DropUnknownOverrides)
}

// resolveConfigFile picks the config file to load. An explicitly named file
// must exist; otherwise the config dir is tried, then the current directory,
// and an empty path means run on defaults.
func resolveConfigFile(opts LoadOptions) (string, error) {
	fileName := ConfigFileName + "." + ConfigFileExt

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load config").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the path is spelled correctly").
				WithSuggestion("Run 'graft config init' to generate a starter config").
				Wrap(os.ErrNotExist).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	if opts.ConfigDirPath != "" {
		if p := filepath.Join(opts.ConfigDirPath, fileName); fileExists(p) {
			return p, nil
		}
		return "", nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if p := filepath.Join(dir, fileName); fileExists(p) {
		return p, nil
	}

	// Current directory last, as a convenience during development.
	if fileExists(fileName) {
		return fileName, nil
	}

	return "", nil
}

// loadCUEIntoViper parses a CUE config file, validates it against the
// embedded schema, and merges the resulting keys into v. Validation is
// non-concrete because every config key is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read config file").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("parse config file").
			WithResource(path).
			WithSuggestion("Run 'graft config init' to see a commented example of every key").
			Wrap(err).
			BuildError()
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return issue.NewErrorContext().
			WithOperation("merge config values").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	return nil
}

// ConfigDir returns the per-OS configuration directory:
//
//   - Windows: %APPDATA%\graft
//   - macOS:   ~/Library/Application Support/graft
//   - other:   $XDG_CONFIG_HOME/graft, falling back to ~/.config/graft
func ConfigDir() (string, error) {
	if dir, ok := configDirOverridden(); ok {
		return dir, nil
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory: %w", err)
			}
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppName), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppName), nil
	}
}

// EnsureConfigDir creates the config directory if needed and returns it.
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("create config directory").
			WithResource(dir).
			Wrap(err).
			BuildError()
	}
	return dir, nil
}

// CreateDefaultConfig writes a starter config into the config dir unless
// one already exists, and returns its path.
func CreateDefaultConfig() (string, error) {
	dir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		return path, nil
	}

	if err := os.WriteFile(path, []byte(GenerateCUE()), 0o644); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("write default config").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	return path, nil
}

// GenerateCUE renders a starter config file. Every key is commented out so
// the file documents the schema while changing nothing.
func GenerateCUE() string {
	cfg := DefaultConfig()

	var b strings.Builder
	b.WriteString("// graft configuration\n")
	b.WriteString("//\n")
	b.WriteString("// Every key is optional. Uncomment a line to override the default.\n")
	b.WriteString("// GRAFT_* environment variables take precedence over this file,\n")
	b.WriteString("// e.g. GRAFT_LOG_LEVEL=debug.\n")
	b.WriteString("\n")
	b.WriteString("// Extra directories scanned for plugin descriptor files (*.cue, *.json),\n")
	b.WriteString("// on top of the plugins directory next to this file.\n")
	b.WriteString("// plugin_dirs: [\"/opt/graft/plugins\"]\n")
	b.WriteString("\n")
	b.WriteString("// Where persisted setting layers live. Defaults to the settings\n")
	b.WriteString("// directory next to this file.\n")
	b.WriteString("// settings_dir: \"/var/lib/graft/settings\"\n")
	b.WriteString("\n")
	b.WriteString("// Minimum log level: debug, info, warn, or error.\n")
	fmt.Fprintf(&b, "// log_level: %q\n", cfg.LogLevel)
	b.WriteString("\n")
	b.WriteString("// Log output format: text, json, or logfmt.\n")
	fmt.Fprintf(&b, "// log_format: %q\n", cfg.LogFormat)
	b.WriteString("\n")
	b.WriteString("// Upper bound for transform runs that set no timeout of their own,\n")
	b.WriteString("// as a Go duration. \"0s\" leaves them unbounded.\n")
	fmt.Fprintf(&b, "// default_timeout: %q\n", cfg.DefaultTimeout.String())
	b.WriteString("\n")
	b.WriteString("// Serve Prometheus metrics on this address when set.\n")
	b.WriteString("// metrics_addr: \"localhost:9090\"\n")
	b.WriteString("\n")
	b.WriteString("// Drop runtime setting overrides that no transform declares instead\n")
	b.WriteString("// of passing them through.\n")
	fmt.Fprintf(&b, "// drop_unknown_overrides: %t\n", cfg.DropUnknownOverrides)

	return b.String()
}

// SettingsPath returns the directory for persisted setting layers.
func (c *Config) SettingsPath() (string, error) {
	if c.SettingsDir != "" {
		return c.SettingsDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsDirName), nil
}

// PluginPaths returns the descriptor directories to scan, the default
// plugins directory first.
func (c *Config) PluginPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return append([]string{filepath.Join(dir, PluginDirName)}, c.PluginDirs...), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
