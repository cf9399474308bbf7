// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.LogLevel != LevelInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LevelInfo)
	}
	if cfg.LogFormat != FormatText {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, FormatText)
	}
	if cfg.DefaultTimeout != 0 {
		t.Errorf("DefaultTimeout = %s, want 0", cfg.DefaultTimeout)
	}
	if !cfg.DropUnknownOverrides {
		t.Error("DropUnknownOverrides = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
}

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if !l.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = false, want true", l)
		}
	}
	if LogLevel("verbose").IsValid() {
		t.Error(`LogLevel("verbose").IsValid() = true, want false`)
	}
}

func TestLogFormatIsValid(t *testing.T) {
	t.Parallel()

	for _, f := range []LogFormat{FormatText, FormatJSON, FormatLogfmt} {
		if !f.IsValid() {
			t.Errorf("LogFormat(%q).IsValid() = false, want true", f)
		}
	}
	if LogFormat("xml").IsValid() {
		t.Error(`LogFormat("xml").IsValid() = true, want false`)
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		LogLevel:       "verbose",
		LogFormat:      "xml",
		DefaultTimeout: -time.Second,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Validate() = %v, want ErrInvalidLogLevel in chain", err)
	}
	if !errors.Is(err, ErrInvalidLogFormat) {
		t.Errorf("Validate() = %v, want ErrInvalidLogFormat in chain", err)
	}
	if !strings.Contains(err.Error(), "default_timeout") {
		t.Errorf("Validate() = %v, want default_timeout mentioned", err)
	}
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.LogLevel != LevelInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LevelInfo)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
log_level:       "debug"
log_format:      "json"
default_timeout: "2m"
plugin_dirs: ["/opt/graft/plugins"]
metrics_addr: "localhost:9090"
drop_unknown_overrides: false
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.LogLevel != LevelDebug {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LevelDebug)
	}
	if cfg.LogFormat != FormatJSON {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, FormatJSON)
	}
	if cfg.DefaultTimeout != 2*time.Minute {
		t.Errorf("DefaultTimeout = %s, want 2m", cfg.DefaultTimeout)
	}
	if len(cfg.PluginDirs) != 1 || cfg.PluginDirs[0] != "/opt/graft/plugins" {
		t.Errorf("PluginDirs = %v, want [/opt/graft/plugins]", cfg.PluginDirs)
	}
	if cfg.MetricsAddr != "localhost:9090" {
		t.Errorf("MetricsAddr = %q, want localhost:9090", cfg.MetricsAddr)
	}
	if cfg.DropUnknownOverrides {
		t.Error("DropUnknownOverrides = true, want false")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `log_level: "warn"`)

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != LevelWarn {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LevelWarn)
	}
	if cfg.LogFormat != FormatText {
		t.Errorf("LogFormat = %q, want default %q", cfg.LogFormat, FormatText)
	}
	if !cfg.DropUnknownOverrides {
		t.Error("DropUnknownOverrides = false, want default true")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.cue")
	if err := os.WriteFile(path, []byte(`log_format: "logfmt"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, got, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.LogFormat != FormatLogfmt {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, FormatLogfmt)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist in chain", err)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `log_levell: "debug"`)

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("Load() = nil error, want schema rejection for unknown key")
	}
}

func TestLoadRejectsBadEnumInFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `log_level: "verbose"`)

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("Load() = nil error, want schema rejection for bad enum value")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `default_timeout: "fast"`)

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("Load() = nil error, want schema rejection for bad duration")
	}
}

func TestLoadContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Load(ctx, LoadOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `log_level: "warn"`)

	t.Setenv("GRAFT_LOG_LEVEL", "debug")
	t.Setenv("GRAFT_DEFAULT_TIMEOUT", "90s")
	t.Setenv("GRAFT_PLUGIN_DIRS", "/a,/b")
	t.Setenv("GRAFT_DROP_UNKNOWN_OVERRIDES", "false")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != LevelDebug {
		t.Errorf("LogLevel = %q, want env override %q", cfg.LogLevel, LevelDebug)
	}
	if cfg.DefaultTimeout != 90*time.Second {
		t.Errorf("DefaultTimeout = %s, want 90s", cfg.DefaultTimeout)
	}
	if len(cfg.PluginDirs) != 2 || cfg.PluginDirs[0] != "/a" || cfg.PluginDirs[1] != "/b" {
		t.Errorf("PluginDirs = %v, want [/a /b]", cfg.PluginDirs)
	}
	if cfg.DropUnknownOverrides {
		t.Error("DropUnknownOverrides = true, want env override false")
	}
}

func TestLoadEnvRejectedByValidate(t *testing.T) {
	t.Setenv("GRAFT_LOG_LEVEL", "verbose")

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Load() error = %v, want ErrInvalidLogLevel in chain", err)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer Reset()

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want override %q", got, dir)
	}

	want := writeConfig(t, dir, `log_level: "error"`)
	cfg, path, err := Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.LogLevel != LevelError {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LevelError)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer Reset()

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read generated config: %v", err)
	}
	if !strings.Contains(string(data), "graft configuration") {
		t.Error("generated config missing header comment")
	}

	// A second call must not clobber an existing file.
	if err := os.WriteFile(path, []byte(`log_level: "debug"`), 0o644); err != nil {
		t.Fatalf("overwrite config: %v", err)
	}
	again, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() second call error = %v", err)
	}
	if again != path {
		t.Errorf("second path = %q, want %q", again, path)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-read config: %v", err)
	}
	if got := string(data); got != `log_level: "debug"` {
		t.Errorf("existing config was rewritten: %q", got)
	}
}

func TestGeneratedConfigLoadsAsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE())

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() on generated config error = %v", err)
	}
	if path == "" {
		t.Error("path empty, want generated config file")
	}
	if cfg.LogLevel != LevelInfo || cfg.LogFormat != FormatText {
		t.Errorf("generated config changed defaults: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestSettingsPath(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer Reset()

	cfg := DefaultConfig()
	got, err := cfg.SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	if want := filepath.Join(dir, SettingsDirName); got != want {
		t.Errorf("SettingsPath() = %q, want %q", got, want)
	}

	cfg.SettingsDir = "/var/lib/graft/settings"
	got, err = cfg.SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	if got != "/var/lib/graft/settings" {
		t.Errorf("SettingsPath() = %q, want explicit dir", got)
	}
}

func TestPluginPaths(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	defer Reset()

	cfg := DefaultConfig()
	cfg.PluginDirs = []string{"/extra"}

	got, err := cfg.PluginPaths()
	if err != nil {
		t.Fatalf("PluginPaths() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("PluginPaths() = %v, want 2 entries", got)
	}
	if want := filepath.Join(dir, PluginDirName); got[0] != want {
		t.Errorf("PluginPaths()[0] = %q, want default dir %q", got[0], want)
	}
	if got[1] != "/extra" {
		t.Errorf("PluginPaths()[1] = %q, want /extra", got[1])
	}
}
