// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/pkg/entity"
)

// newEntityCommand creates the `graft entity` command tree.
func newEntityCommand() *cobra.Command {
	entityCmd := &cobra.Command{
		Use:   "entity",
		Short: "Inspect registered entity types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return listEntities(app, listJSON)
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "emit descriptors as JSON")
	entityCmd.AddCommand(listCmd)

	var showJSON bool
	showCmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Show one entity type descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return showEntity(app, args[0], showJSON)
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "emit the descriptor as JSON")
	entityCmd.AddCommand(showCmd)

	var blueprintJSON bool
	blueprintCmd := &cobra.Command{
		Use:   "blueprint <ref>",
		Short: "Print the creation skeleton of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return blueprintEntity(app, args[0], blueprintJSON)
		},
	}
	blueprintCmd.Flags().BoolVar(&blueprintJSON, "json", false, "emit bare JSON without decoration")
	entityCmd.AddCommand(blueprintCmd)

	return entityCmd
}

func listEntities(app *App, asJSON bool) error {
	types := app.Registry.Entities()
	if asJSON {
		return printJSON(types)
	}

	if len(types) == 0 {
		fmt.Println(SubtitleStyle.Render("(no entity types registered)"))
		fmt.Println("Add descriptor files to a plugin directory, then try again.")
		if failed := len(app.Report.Failed); failed > 0 {
			fmt.Fprintln(os.Stderr, WarningStyle.Render(
				fmt.Sprintf("%d plugins failed to load; rerun with --verbose for details", failed)))
		}
		return nil
	}

	fmt.Println(TitleStyle.Render("Entity Types"))
	fmt.Println()
	for _, t := range types {
		fmt.Printf("%s  %s\n", CmdStyle.Render(t.Key()), t.Label)
		if verbose && t.Description != "" {
			fmt.Printf("  %s\n", SubtitleStyle.Render(t.Description))
		}
	}
	fmt.Println()
	fmt.Println(SubtitleStyle.Render(
		fmt.Sprintf("%d descriptors from %d plugins", len(types), len(app.Report.Plugins))))
	return nil
}

func showEntity(app *App, refStr string, asJSON bool) error {
	ref, err := entity.ParseRef(refStr)
	if err != nil {
		return err
	}
	t, err := app.Registry.Entity(ref)
	if err != nil {
		renderIssueHint(err)
		return exitError(err)
	}
	if asJSON {
		return printJSON(t)
	}

	keyStyle := CmdStyle

	fmt.Println(TitleStyle.Render(t.Key()))
	fmt.Println()
	if t.Label != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Label"), t.Label)
	}
	if t.Description != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Description"), t.Description)
	}
	if t.Author != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Author"), t.Author)
	}
	fmt.Printf("%s: %s\n", keyStyle.Render("Versions"), strings.Join(versionKeys(app, t.ID), ", "))

	if len(t.Fields) > 0 {
		fmt.Println()
		fmt.Printf("%s:\n", keyStyle.Render("Fields"))
		for i := range t.Fields {
			f := &t.Fields[i]
			line := fmt.Sprintf("  %s  %s", CmdStyle.Render(string(f.Name)), f.Kind)
			if f.Required {
				line += "  " + WarningStyle.Render("(required)")
			}
			fmt.Println(line)
			if f.Description != "" {
				fmt.Printf("    %s\n", SubtitleStyle.Render(f.Description))
			}
		}
	}

	if len(t.Settings) > 0 {
		fmt.Println()
		fmt.Printf("%s:\n", keyStyle.Render("Settings"))
		for i := range t.Settings {
			printSettingSpec(&t.Settings[i])
		}
	}
	return nil
}

// printSettingSpec prints one setting declaration with its markers. Secret
// defaults stay redacted.
func printSettingSpec(s *entity.SettingSpec) {
	var markers []string
	if s.Required {
		markers = append(markers, "required")
	}
	if s.Global {
		markers = append(markers, "global")
	}
	if s.Secret {
		markers = append(markers, "secret")
	}

	line := fmt.Sprintf("  %s  %s", CmdStyle.Render(string(s.Name)), s.Kind)
	if len(markers) > 0 {
		line += "  " + WarningStyle.Render("("+strings.Join(markers, ", ")+")")
	}
	if s.Default != nil {
		if s.Secret {
			line += "  " + SubtitleStyle.Render("= (redacted)")
		} else {
			line += "  " + SubtitleStyle.Render(fmt.Sprintf("= %v", s.Default))
		}
	}
	fmt.Println(line)
	if s.Description != "" {
		fmt.Printf("    %s\n", SubtitleStyle.Render(s.Description))
	}
}

func blueprintEntity(app *App, refStr string, asJSON bool) error {
	ref, err := entity.ParseRef(refStr)
	if err != nil {
		return err
	}
	t, err := app.Registry.Entity(ref)
	if err != nil {
		renderIssueHint(err)
		return exitError(err)
	}

	data, err := json.MarshalIndent(entity.Blueprint(t), "", "  ")
	if err != nil {
		return err
	}
	if !asJSON {
		fmt.Println(SubtitleStyle.Render("// blueprint for ") + CmdStyle.Render(t.Key()))
	}
	fmt.Println(string(data))
	return nil
}

// versionKeys returns the registered versions of an identifier in canonical
// form, highest first.
func versionKeys(app *App, id entity.ID) []string {
	vs := app.Registry.Versions(id)
	keys := make([]string, len(vs))
	for i, v := range vs {
		keys[i] = v.Canonical()
	}
	return keys
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
