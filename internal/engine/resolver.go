// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"

	"github.com/srcpm/srcpm/internal/supplier"
)

const (
	// UpgradePackages allows replacing an existing install with a newer one,
	// including forced re-fetch of branch versions at non-local tiers.
	UpgradePackages UpdateOptions = 1 << iota

	// JustAnnotate computes and announces actions but applies nothing.
	JustAnnotate
)

type (
	// UpdateOptions is a bit-set of flags for one update run.
	UpdateOptions uint8

	// Resolver owns the dependency graph for the loaded project. It is
	// treated as an external oracle: DetermineActions is re-evaluated each
	// reconciliation round against the then-current installed state, and may
	// return different results as that state changes.
	Resolver interface {
		// DetermineActions returns the actions required to converge the
		// installed state, given the suppliers available for fetching.
		DetermineActions(ctx context.Context, suppliers []supplier.Supplier, opts UpdateOptions) ([]Action, error)

		// Reinit forces the resolver to re-read installed state from the
		// package store. Must be called after any store mutation before
		// trusting a subsequent DetermineActions.
		Reinit() error
	}
)

// Has reports whether flag is set.
func (o UpdateOptions) Has(flag UpdateOptions) bool {
	return o&flag != 0
}
