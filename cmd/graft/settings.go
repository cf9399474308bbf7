// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/internal/settings"
	"github.com/graftlabs/graft/pkg/entity"
)

// newSettingsCommand creates the `graft settings` command tree.
func newSettingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and edit persisted setting layers",
		Long: `Inspect and edit persisted setting layers.

Settings resolve per invocation from four layers, lowest to highest:
declared defaults, the global layer, the transform's own layer, and
runtime --set overrides. This command edits the two persisted layers.

Commands address the global layer by setting name alone, or a
transform's layer as <target>/<label>:

  graft settings get
  graft settings get domain/dns_lookup
  graft settings set api_key "..."
  graft settings set domain/dns_lookup resolver "1.1.1.1"
  graft settings unset domain/dns_lookup resolver`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where setting layers are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", CmdStyle.Render("Settings directory"), app.Store.Dir())
			fmt.Printf("%s: %s\n", CmdStyle.Render("Global layer"), app.Store.GlobalPath())
			fmt.Printf("%s: %s\n", CmdStyle.Render("Transform layers"),
				filepath.Join(app.Store.Dir(), settings.TransformsDirName))
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "get [target/label]",
		Short: "Print the global layer, or one transform's layer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return getSettings(app, args)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set [target/label] <name> <value>",
		Short: "Write one value into a persisted layer",
		Long: `Write one value into a persisted layer.

With two arguments the value goes into the global layer; prefix them
with a <target>/<label> scope to write a transform's own layer. Values
parse as JSON where possible, so numbers and booleans keep their type;
anything else is stored as a string.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return setSetting(app, args)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "unset [target/label] <name>",
		Short: "Remove one value from a persisted layer",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return unsetSetting(app, args)
		},
	})

	return settingsCmd
}

func getSettings(app *App, args []string) error {
	var (
		layer map[string]any
		err   error
		title string
	)
	if len(args) == 0 {
		layer, err = app.Store.Global()
		title = "Global settings"
	} else {
		target, label, perr := parseScope(args[0])
		if perr != nil {
			return perr
		}
		layer, err = app.Store.Transform(target, label)
		title = fmt.Sprintf("Settings for %s/%s", target, label)
	}
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render(title))
	fmt.Println()
	if len(layer) == 0 {
		fmt.Println(SubtitleStyle.Render("(empty)"))
		return nil
	}

	secrets := secretNames(app.Registry)
	names := make([]string, 0, len(layer))
	for name := range layer {
		names = append(names, name)
	}
	sort.Strings(names)

	redacted := false
	for _, name := range names {
		if secrets[name] {
			fmt.Printf("%s = %s\n", CmdStyle.Render(name), SubtitleStyle.Render("(redacted)"))
			redacted = true
			continue
		}
		fmt.Printf("%s = %s\n", CmdStyle.Render(name), renderValue(layer[name]))
	}
	if redacted {
		fmt.Println()
		fmt.Println(SubtitleStyle.Render("Values of settings marked secret are redacted."))
	}
	return nil
}

func setSetting(app *App, args []string) error {
	if len(args) == 2 {
		name, value := args[0], args[1]
		if err := validSettingName(name); err != nil {
			return err
		}
		if err := app.Store.SetGlobal(name, parseSettingValue(value)); err != nil {
			return err
		}
		fmt.Printf("%s Set %s in the global layer\n", SuccessStyle.Render("✓"), CmdStyle.Render(name))
		return nil
	}

	target, label, err := parseScope(args[0])
	if err != nil {
		return err
	}
	name, value := args[1], args[2]
	if err := validSettingName(name); err != nil {
		return err
	}
	if err := app.Store.SetTransform(target, label, name, parseSettingValue(value)); err != nil {
		return err
	}
	fmt.Printf("%s Set %s for %s/%s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), target, label)
	return nil
}

func unsetSetting(app *App, args []string) error {
	if len(args) == 1 {
		name := args[0]
		if err := validSettingName(name); err != nil {
			return err
		}
		if err := app.Store.UnsetGlobal(name); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s from the global layer\n", SuccessStyle.Render("✓"), CmdStyle.Render(name))
		return nil
	}

	target, label, err := parseScope(args[0])
	if err != nil {
		return err
	}
	name := args[1]
	if err := validSettingName(name); err != nil {
		return err
	}
	if err := app.Store.UnsetTransform(target, label, name); err != nil {
		return err
	}
	fmt.Printf("%s Removed %s for %s/%s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), target, label)
	return nil
}

// parseScope splits a <target>/<label> layer scope.
func parseScope(s string) (entity.ID, string, error) {
	targetStr, label, ok := strings.Cut(s, "/")
	if !ok {
		return "", "", fmt.Errorf("scope %q is not in target/label form", s)
	}
	target := entity.ID(targetStr)
	if err := target.Validate(); err != nil {
		return "", "", fmt.Errorf("scope %q: %w", s, err)
	}
	if err := entity.ID(label).Validate(); err != nil {
		return "", "", fmt.Errorf("scope %q: %w", s, err)
	}
	return target, label, nil
}

// validSettingName rejects names that are not snake_case identifiers,
// catching a scope passed where a name belongs.
func validSettingName(name string) error {
	if err := entity.ID(name).Validate(); err != nil {
		return fmt.Errorf("setting name %q is not snake_case (scoped form is: graft settings set <target>/<label> <name> <value>)", name)
	}
	return nil
}

// parseSettingValue keeps JSON-typed values typed: numbers, booleans, null,
// arrays, and quoted strings parse as JSON, everything else stores as the
// raw string.
func parseSettingValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// renderValue formats one stored value for display.
func renderValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string, bool, float64, int, int64:
		return fmt.Sprintf("%v", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// secretNames collects every setting name any descriptor or transform spec
// marks secret. Redaction is by name: a layer file cannot tell which spec a
// stored key belongs to.
func secretNames(reg *registry.Registry) map[string]bool {
	secrets := make(map[string]bool)
	for _, t := range reg.Entities() {
		for i := range t.Settings {
			if t.Settings[i].Secret {
				secrets[t.Settings[i].Name.String()] = true
			}
		}
	}
	for _, b := range reg.Bindings() {
		for i := range b.Spec.Settings {
			if b.Spec.Settings[i].Secret {
				secrets[b.Spec.Settings[i].Name.String()] = true
			}
		}
	}
	return secrets
}
