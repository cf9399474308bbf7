// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/pkg/entity"
)

// newTransformCommand creates the `graft transform` command tree.
func newTransformCommand() *cobra.Command {
	transformCmd := &cobra.Command{
		Use:   "transform",
		Short: "Inspect transforms bound to entity types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list <ref>",
		Short: "List the transforms applicable to an entity type",
		Long: `List the transforms applicable to an entity type reference.

A bare reference resolves to the highest registered version; pin one
with id@version to see what an older version still supports. Wildcard
transforms that accept the resolved version are included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return listTransforms(app, args[0], listJSON)
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "emit specs as JSON")
	transformCmd.AddCommand(listCmd)

	showCmd := &cobra.Command{
		Use:   "show <ref> <label>",
		Short: "Show one transform binding in detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return showTransform(app, args[0], args[1])
		},
	}
	transformCmd.AddCommand(showCmd)

	return transformCmd
}

func listTransforms(app *App, refStr string, asJSON bool) error {
	ref, err := entity.ParseRef(refStr)
	if err != nil {
		return err
	}
	bindings, err := app.Registry.Transforms(ref)
	if err != nil {
		renderIssueHint(err)
		return exitError(err)
	}

	if asJSON {
		specs := make([]any, len(bindings))
		for i, b := range bindings {
			specs[i] = b.Spec
		}
		return printJSON(specs)
	}

	resolved, err := app.Registry.Entity(ref)
	if err != nil {
		return exitError(err)
	}
	fmt.Println(TitleStyle.Render("Transforms for " + resolved.Key()))
	fmt.Println()

	if len(bindings) == 0 {
		fmt.Println(SubtitleStyle.Render("(no transforms bound to this type)"))
		return nil
	}
	for _, b := range bindings {
		fmt.Println(bindingLine(b))
	}
	return nil
}

// bindingLine renders one binding as a listing row: label, title, version
// requirement, and a wildcard marker when the binding targets every type.
func bindingLine(b *registry.Binding) string {
	spec := b.Spec

	line := "  " + CmdStyle.Render(string(spec.Label))
	if b.Wildcard() {
		line += " " + WarningStyle.Render("*")
	}
	if spec.Title != "" {
		line += "  " + spec.Title
	}
	if spec.Requires != "" {
		line += "  " + SubtitleStyle.Render("requires "+spec.Requires)
	}
	if len(spec.Deps) > 0 {
		line += "  " + SubtitleStyle.Render("needs "+strings.Join(spec.Deps, ", "))
	}
	return line
}

func showTransform(app *App, refStr, label string) error {
	ref, err := entity.ParseRef(refStr)
	if err != nil {
		return err
	}
	b, err := app.Registry.Transform(ref, label)
	if err != nil {
		renderIssueHint(err)
		return exitError(err)
	}
	spec := b.Spec
	keyStyle := CmdStyle

	fmt.Println(TitleStyle.Render(spec.Name()))
	fmt.Println()
	if spec.Title != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Title"), spec.Title)
	}
	if spec.Description != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Description"), spec.Description)
	}
	if b.Wildcard() {
		fmt.Printf("%s: %s\n", keyStyle.Render("Target"), "any entity type")
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Target"), string(spec.Target))
	}
	requires := spec.Requires
	if requires == "" {
		requires = "any version"
	}
	fmt.Printf("%s: %s\n", keyStyle.Render("Requires"), requires)
	if len(spec.Accepts) > 0 {
		fmt.Printf("%s: %s\n", keyStyle.Render("Accepts"), joinIDs(spec.Accepts))
	}
	if len(spec.Produces) > 0 {
		fmt.Printf("%s: %s\n", keyStyle.Render("Produces"), joinIDs(spec.Produces))
	}
	if len(spec.Deps) > 0 {
		fmt.Printf("%s: %s\n", keyStyle.Render("Needs"), strings.Join(spec.Deps, ", "))
	}

	if len(spec.Settings) > 0 {
		fmt.Println()
		fmt.Printf("%s:\n", keyStyle.Render("Settings"))
		for i := range spec.Settings {
			printSettingSpec(&spec.Settings[i])
		}
	}
	return nil
}

func joinIDs(ids []entity.ID) string {
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = string(id)
	}
	return strings.Join(ss, ", ")
}
