// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for graft.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/issue"
	"github.com/graftlabs/graft/pkg/fault"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "graft",
		Short: "A streaming runtime for plugin-defined entity transforms",
		Long: TitleStyle.Render("graft") + SubtitleStyle.Render(" - A streaming runtime for plugin-defined entity transforms") + `

graft catalogs versioned entity types and the transforms plugins bind
to them, then runs those transforms with streamed results, progress
reporting, and layered settings resolution.

Entity types and transforms come from descriptor files in CUE or JSON
format, loaded from the plugins directory next to your config file and
from any extra plugin_dirs you configure.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'graft config init' to create a starter config
  2. Drop descriptor files into the plugins directory
  3. Run transforms with: graft run <entity> <label>

` + SubtitleStyle.Render("Examples:") + `
  graft entity list                      List registered entity types
  graft transform list domain            List transforms bound to a type
  graft run domain dns_lookup example.com  Run one transform
  graft worker                           Serve the host channel over stdio
  graft settings set api_key "..."       Store a global setting`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/graft/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newEntityCommand())
	rootCmd.AddCommand(newTransformCommand())
	rootCmd.AddCommand(newSettingsCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newExplainCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code.Int())
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssueHint writes the remediation page for an error's fault code to
// stderr. Codes without a cataloged page render nothing.
func renderIssueHint(err error) {
	page := issue.Get(fault.CodeOf(err))
	if page == nil {
		return
	}
	rendered, rerr := page.Render("dark")
	if rerr != nil {
		return
	}
	fmt.Fprint(os.Stderr, rendered)
}
