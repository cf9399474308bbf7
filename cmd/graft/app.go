// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/internal/config"
	"github.com/graftlabs/graft/internal/loader"
	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/internal/run"
	"github.com/graftlabs/graft/internal/settings"
	"github.com/graftlabs/graft/internal/telemetry"
)

// App bundles the assembled runtime one command execution works against:
// loaded configuration, the populated registry, the settings layers, and the
// runner dispatching invocations.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *log.Logger
	Registry   *registry.Registry
	Report     *loader.Report
	Store      *settings.Store
	Resolver   *settings.Resolver
	Runner     *run.Runner
	Metrics    *telemetry.Metrics
}

// newApp loads configuration and assembles the runtime. A config file that
// fails to load falls back to defaults with a warning, unless the user named
// the file explicitly via --config; then the failure is fatal.
func newApp(ctx context.Context) (*App, error) {
	opts := config.LoadOptions{ConfigFilePath: cfgFile}
	cfg, cfgPath, err := config.Load(ctx, opts)
	if err != nil {
		if cfgFile != "" {
			return nil, err
		}
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		cfg = config.DefaultConfig()
		cfgPath = ""
	}

	logger := newLogger(cfg)

	reg := registry.New()
	dirs, err := cfg.PluginPaths()
	if err != nil {
		return nil, err
	}
	report := loader.New(reg, logger).Load(nil, dirs)
	logger.Debug("load phase finished",
		"plugins", len(report.Plugins), "files", len(report.Files), "failed", len(report.Failed))

	settingsDir, err := cfg.SettingsPath()
	if err != nil {
		return nil, err
	}
	store := settings.NewStore(settingsDir)
	resolver := settings.NewResolver(store, logger, settings.Options{
		KeepUnknownOverrides: !cfg.DropUnknownOverrides,
	})

	metrics := telemetry.New()
	runner := run.NewRunner(reg, resolver, logger, run.Options{
		DefaultTimeout: cfg.DefaultTimeout,
		Metrics:        metrics,
	})

	return &App{
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Registry:   reg,
		Report:     report,
		Store:      store,
		Resolver:   resolver,
		Runner:     runner,
		Metrics:    metrics,
	}, nil
}

// newLogger builds the CLI logger from config. The --verbose flag forces
// debug level regardless of the configured one.
func newLogger(cfg *config.Config) *log.Logger {
	lvl := log.InfoLevel
	if parsed, err := log.ParseLevel(string(cfg.LogLevel)); err == nil {
		lvl = parsed
	}
	if verbose {
		lvl = log.DebugLevel
	}

	var formatter log.Formatter
	switch cfg.LogFormat {
	case config.FormatJSON:
		formatter = log.JSONFormatter
	case config.FormatLogfmt:
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: cfg.LogFormat != config.FormatText,
	})
}
