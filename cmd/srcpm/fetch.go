// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/srcpm/srcpm/internal/engine"
	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
)

// fetchParams bundles the dependencies and flags for the fetch command.
type fetchParams struct {
	stdout     io.Writer
	stderr     io.Writer
	eng        *engine.Engine
	id         string
	constraint string
	placement  store.Location
	force      bool // --force: re-fetch an installed branch version
}

// newFetchCommand creates the `srcpm fetch` command, which installs a single
// package without consulting the plan.
func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <package>[@constraint]",
		Short: "Download and install a package",
		Long: `Download and install a package at a placement tier.

Suppliers are consulted in the configured priority order; the first one that
can describe the package serves the archive. The download is checksum
verified when the supplier advertises a digest, and the install is atomic:
a failed extraction leaves no partial package behind.

Fetching an already-installed release version is a no-op. Branch versions
(e.g. ~master) are also skipped unless --force is given; project-local
installs are never force-replaced.`,
		Example: `  # Best available redis 3.x, user-wide
  srcpm fetch redis@^3.0.0

  # Track a branch system-wide
  srcpm fetch vibe.d@~master --placement system

  # Refresh an installed branch checkout
  srcpm fetch vibe.d@~master --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			placementFlag, _ := cmd.Flags().GetString("placement")
			forceFlag, _ := cmd.Flags().GetBool("force")

			id, constraint, err := splitPackageArg(args[0])
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

			p := fetchParams{
				stdout:     cmd.OutOrStdout(),
				stderr:     cmd.ErrOrStderr(),
				eng:        eng,
				id:         id,
				constraint: constraint,
				placement:  placement,
				force:      forceFlag,
			}

			if err := runFetch(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatFetchError(err))
				return &ExitError{Code: classifyFetchExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().String("placement", string(store.UserWide), "Placement tier: local, user, or system")
	cmd.Flags().BoolP("force", "f", false, "Re-fetch an installed branch version")

	return cmd
}

// runFetch installs the requested package and reports where it landed.
func runFetch(ctx context.Context, p fetchParams) error {
	installed, err := p.eng.Fetch(ctx, p.id, p.constraint, p.placement, p.force)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "%s %s installed at %s\n",
		PkgStyle.Render(installed.ID), installed.Version, installed.Path)
	return nil
}

// classifyFetchExitCode maps a fetch error to the process exit code.
// Missing packages are user-correctable (exit 1); corrupted downloads and
// transport failures are transient (exit 2).
func classifyFetchExitCode(err error) int {
	if errors.Is(err, issue.ErrNotFound) {
		return 1
	}
	return 2
}

// formatFetchError adds remediation guidance to the common fetch failures.
func formatFetchError(err error) string {
	var checksumErr *issue.ChecksumError
	if errors.As(err, &checksumErr) {
		return fmt.Sprintf("%s\n\nThe download may be corrupted. Please try again.", checksumErr.Error())
	}
	if errors.Is(err, issue.ErrNotFound) {
		return fmt.Sprintf("%s\n\nCheck the package identifier and constraint, and verify the\nconfigured registries carry this package.", err.Error())
	}
	return err.Error()
}
