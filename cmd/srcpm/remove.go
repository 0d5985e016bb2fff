// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/srcpm/srcpm/internal/engine"
	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
)

// removeParams bundles the dependencies and flags for the remove command.
type removeParams struct {
	stdout    io.Writer
	stderr    io.Writer
	eng       *engine.Engine
	id        string
	version   string
	placement store.Location
}

// newRemoveCommand creates the `srcpm remove` command.
func newRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <package>[@version]",
		Short: "Remove installed package versions",
		Long: `Remove installed package versions from a placement tier.

The version may be a concrete version, the wildcard '*' to remove every
installed version, or omitted entirely. Omitting the version only works when
exactly one version is installed; several candidates make the request
ambiguous and nothing is removed.

Project-local packages are part of the project tree and are never removed
by this command; delete their directories manually.`,
		Example: `  # Remove the single installed version
  srcpm remove redis

  # Remove one specific version
  srcpm remove redis@3.0.2

  # Remove every installed version, system-wide
  srcpm remove redis@* --placement system`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			placementFlag, _ := cmd.Flags().GetString("placement")

			id, version, err := splitPackageArg(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: 1, Err: err}
			}
			placement, err := store.ParseLocation(placementFlag)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: 1, Err: err}
			}

			eng, err := buildEngine(nil)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			p := removeParams{
				stdout:    cmd.OutOrStdout(),
				stderr:    cmd.ErrOrStderr(),
				eng:       eng,
				id:        id,
				version:   version,
				placement: placement,
			}

			if err := runRemove(p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatRemoveError(err))
				return &ExitError{Code: classifyRemoveExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().String("placement", string(store.UserWide), "Placement tier: local, user, or system")

	return cmd
}

// runRemove removes the matched versions and reports each outcome.
func runRemove(p removeParams) error {
	results, err := p.eng.Remove(p.id, p.version, p.placement)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(p.stderr, "%s %s %s: %v\n",
				ErrorStyle.Render("failed"), PkgStyle.Render(r.Pack.ID), r.Pack.Version, r.Err)
			continue
		}
		fmt.Fprintf(p.stdout, "%s %s %s\n",
			SuccessStyle.Render("removed"), PkgStyle.Render(r.Pack.ID), r.Pack.Version)
	}
	return err
}

// classifyRemoveExitCode maps a removal error to the process exit code.
// Missing or ambiguous targets are user-correctable (exit 1); filesystem
// failures during deletion are not (exit 2).
func classifyRemoveExitCode(err error) int {
	switch {
	case errors.Is(err, issue.ErrNotFound):
		return 1
	case errors.Is(err, issue.ErrAmbiguous):
		return 1
	default:
		return 2
	}
}

// formatRemoveError adds remediation guidance to the common removal failures.
func formatRemoveError(err error) string {
	var ambiguous *issue.AmbiguousVersionError
	if errors.As(err, &ambiguous) {
		return fmt.Sprintf("%s\n\nName the version explicitly (e.g. %s@%s) or remove all of them with %s@*.",
			err.Error(), ambiguous.ID, ambiguous.Versions[0], ambiguous.ID)
	}
	return err.Error()
}
