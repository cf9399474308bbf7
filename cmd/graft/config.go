// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/config"
)

// newConfigCommand creates the `graft config` command tree.
func newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage graft configuration",
		Long: `Manage graft configuration.

Configuration is stored in:
  - Linux: ~/.config/graft/config.cue
  - macOS: ~/Library/Application Support/graft/config.cue
  - Windows: %APPDATA%\graft\config.cue

GRAFT_* environment variables override file values, for example
GRAFT_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context) error {
	cfg, cfgPath, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, verbose))
		return exitError(err)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	if cfgPath != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(string(cfg.LogLevel)))
	fmt.Printf("%s: %s\n", keyStyle.Render("log_format"), valueStyle.Render(string(cfg.LogFormat)))
	fmt.Printf("%s: %s\n", keyStyle.Render("default_timeout"), valueStyle.Render(cfg.DefaultTimeout.String()))
	if cfg.MetricsAddr != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("metrics_addr"), valueStyle.Render(cfg.MetricsAddr))
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("metrics_addr"), SubtitleStyle.Render("(disabled)"))
	}
	fmt.Printf("%s: %s\n", keyStyle.Render("drop_unknown_overrides"),
		valueStyle.Render(fmt.Sprintf("%v", cfg.DropUnknownOverrides)))

	if settingsDir, derr := cfg.SettingsPath(); derr == nil {
		fmt.Printf("%s: %s\n", keyStyle.Render("settings_dir"), valueStyle.Render(settingsDir))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("plugin directories"))
	dirs, derr := cfg.PluginPaths()
	if derr != nil || len(dirs) == 0 {
		fmt.Printf("  %s\n", SubtitleStyle.Render("(none configured)"))
		return nil
	}
	for _, dir := range dirs {
		fmt.Printf("  - %s\n", valueStyle.Render(dir))
	}
	return nil
}

func initConfig() error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	existed := fileExistsCheck(filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))

	path, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if existed {
		fmt.Printf("Config file already exists at %s %s\n", path, SubtitleStyle.Render("(left unchanged)"))
	} else {
		fmt.Printf("%s Created starter configuration at %s\n", SuccessStyle.Render("✓"), path)
	}

	// The default load paths next to the config file.
	for _, sub := range []string{config.PluginDirName, config.SettingsDirName} {
		subDir := filepath.Join(dir, sub)
		if mkdirErr := os.MkdirAll(subDir, 0o755); mkdirErr != nil {
			log.Warn("failed to create directory", "path", subDir, "error", mkdirErr)
			continue
		}
		fmt.Printf("%s Created %s directory at %s\n", SuccessStyle.Render("✓"), sub, subDir)
	}
	return nil
}

func showConfigPath() error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)

	fmt.Printf("Config directory: %s\n", dir)
	switch {
	case cfgFile != "":
		fmt.Printf("Config file: %s (from --config)\n", cfgFile)
	case fileExistsCheck(cfgPath):
		fmt.Printf("Config file: %s\n", cfgPath)
	default:
		fmt.Printf("Config file: %s (not created yet)\n", cfgPath)
	}
	fmt.Printf("Plugins directory: %s\n", filepath.Join(dir, config.PluginDirName))
	fmt.Printf("Settings directory: %s\n", filepath.Join(dir, config.SettingsDirName))
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
