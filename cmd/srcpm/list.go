// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/srcpm/srcpm/internal/store"
)

// listParams bundles the dependencies for the list command.
type listParams struct {
	stdout io.Writer
	store  *store.Store
	id     string // optional filter; empty lists everything
}

// newListCommand creates the `srcpm list` command.
func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [package]",
		Short: "List installed packages",
		Long: `List installed packages across all placement tiers and search paths.

With a package identifier, only that package's installed versions are shown.`,
		Example: `  # Everything, everywhere
  srcpm list

  # All installed redis versions
  srcpm list redis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			var id string
			if len(args) > 0 {
				id = args[0]
			}

			eng, err := buildEngine(nil)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			runList(listParams{
				stdout: cmd.OutOrStdout(),
				store:  eng.Store(),
				id:     id,
			})
			return nil
		},
	}

	return cmd
}

// runList prints every matching install, one line per (version, tier) pair.
func runList(p listParams) {
	packages := p.store.ListAll(p.id)
	if len(packages) == 0 {
		fmt.Fprintln(p.stdout, SubtitleStyle.Render("No packages installed."))
		return
	}

	for _, pkg := range packages {
		fmt.Fprintf(p.stdout, "%s %s %s %s\n",
			PkgStyle.Render(pkg.ID),
			pkg.Version,
			SubtitleStyle.Render(string(pkg.Location)),
			VerboseStyle.Render(pkg.Path))
	}
}
