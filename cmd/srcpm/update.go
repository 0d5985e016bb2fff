// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/srcpm/srcpm/internal/engine"
)

// defaultPlanFile is looked up in the working directory when --plan is unset.
const defaultPlanFile = "srcpm-plan.yaml"

// updateParams bundles the dependencies and flags for the update command,
// enabling the core logic in runUpdate to be tested without a real Cobra
// command or a live package store.
type updateParams struct {
	stdout   io.Writer
	stderr   io.Writer
	eng      *engine.Engine
	upgrade  bool // --upgrade: allow re-fetching installed branch versions
	annotate bool // --annotate: report pending actions without applying them
}

// newUpdateCommand creates the `srcpm update` command, which reconciles the
// installed packages against the solved dependency plan.
func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile installed packages against the dependency plan",
		Long: `Reconcile installed packages against the dependency plan.

The update command repeatedly asks the resolver what should change, removes
packages the plan no longer needs, fetches the ones it does, and stops once
the installed state reaches a fixed point. Each package is handled at most
once per run.

Conflicting or unsatisfiable requirements stop the run before anything is
applied; resolve them in the plan and re-run.`,
		Example: `  # Reconcile against ./srcpm-plan.yaml
  srcpm update

  # Show what would change without touching anything
  srcpm update --annotate

  # Also re-fetch installed branch versions (e.g. ~master)
  srcpm update --upgrade

  # Use an explicit plan file
  srcpm update --plan ci/solved-plan.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			planPath, _ := cmd.Flags().GetString("plan")
			upgradeFlag, _ := cmd.Flags().GetBool("upgrade")
			annotateFlag, _ := cmd.Flags().GetBool("annotate")

			plan, err := engine.LoadPlan(planPath)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			eng, err := buildEngine(nil)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			eng.SetResolver(engine.NewPlanResolver(plan, eng.Store()))

			p := updateParams{
				stdout:   cmd.OutOrStdout(),
				stderr:   cmd.ErrOrStderr(),
				eng:      eng,
				upgrade:  upgradeFlag,
				annotate: annotateFlag,
			}

			if err := runUpdate(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().String("plan", defaultPlanFile, "Path to the solved dependency plan")
	cmd.Flags().BoolP("upgrade", "u", false, "Re-fetch installed branch versions")
	cmd.Flags().BoolP("annotate", "n", false, "Report pending actions without applying them")

	return cmd
}

// runUpdate drives the reconciliation loop and reports the outcome.
func runUpdate(ctx context.Context, p updateParams) error {
	var opts engine.UpdateOptions
	if p.upgrade {
		opts |= engine.UpgradePackages
	}
	if p.annotate {
		opts |= engine.JustAnnotate
	}

	if err := p.eng.Update(ctx, opts); err != nil {
		return err
	}

	if p.annotate {
		fmt.Fprintln(p.stdout, "Annotate-only run; nothing was applied.")
		return nil
	}
	fmt.Fprintln(p.stdout, SuccessStyle.Render("Packages are reconciled with the plan."))
	return nil
}

// classifyUpdateExitCode maps an update error to the process exit code.
// Unresolved dependency graphs use exit code 1 (plan-correctable); all other
// failures use exit code 2 (unexpected/transient).
func classifyUpdateExitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnresolved):
		return 1
	case errors.Is(err, os.ErrPermission):
		return 1
	default:
		return 2
	}
}
