// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/issue"
	"github.com/graftlabs/graft/pkg/fault"
)

// newExplainCommand creates the `graft explain` command.
func newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Show remediation steps for an error code",
		Long: `Show remediation steps for an error code.

Failures carry a stable code, entity_not_found or transform_timeout
for example, on the wire and in exit statuses. Without an argument
this lists every cataloged code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listIssues()
			}
			return explainIssue(args[0])
		},
	}
}

func listIssues() error {
	fmt.Println(TitleStyle.Render("Error Codes"))
	fmt.Println()
	for _, page := range issue.Values() {
		code := page.Code()
		fmt.Printf("%s  %s\n", CmdStyle.Render(code.String()),
			SubtitleStyle.Render(fmt.Sprintf("exit %d", code.ExitCode().Int())))
	}
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Run 'graft explain <code>' for remediation steps."))
	return nil
}

func explainIssue(codeStr string) error {
	page := issue.Get(fault.Code(codeStr))
	if page == nil {
		return fmt.Errorf("no remediation page for %q; run 'graft explain' to list codes", codeStr)
	}
	rendered, err := page.Render("dark")
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
