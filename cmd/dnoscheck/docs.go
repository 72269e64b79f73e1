// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"dnoscheck/internal/issue"
)

//go:embed docs_guide.md
var docsGuide string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Browse the built-in documentation",
	Long: `Browse the built-in documentation.

Without arguments, renders the usage guide. 'docs issues' lists the
known failure modes with remediation steps.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := glamour.Render(docsGuide, "dark")
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	docsCmd.AddCommand(&cobra.Command{
		Use:   "issues [id]",
		Short: "Show known failure modes and how to fix them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("issue id must be a number, got %q", args[0])
				}
				return showIssue(issue.Id(id))
			}
			return listIssues()
		},
	})
}

func showIssue(id issue.Id) error {
	is := issue.Get(id)
	if is == nil {
		return fmt.Errorf("unknown issue id %d", id)
	}
	out, err := is.Render("dark")
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func listIssues() error {
	issues := issue.Values()
	sort.Slice(issues, func(i, j int) bool { return issues[i].Id() < issues[j].Id() })
	for _, is := range issues {
		out, err := is.Render("dark")
		if err != nil {
			return err
		}
		fmt.Println(SubtitleStyle.Render(fmt.Sprintf("--- issue %d ---", is.Id())))
		fmt.Print(out)
	}
	return nil
}
