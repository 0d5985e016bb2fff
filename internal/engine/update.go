// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnresolved is returned when the resolver reports conflicts or failures.
// The run stops without applying anything from that round; resolution
// requires operator or manifest-level intervention, not a retry.
var ErrUnresolved = errors.New("unresolved conflicts or failures in the dependency graph")

// Update drives the installed state toward a fixed point with respect to the
// resolver's view, or stops and reports why it cannot.
//
// Each round re-queries the resolver, filters out packages already handled
// in this run, announces every remaining action, and then applies them:
// removals first, fetches after, resolver reload last. The processed set
// exists to guarantee termination — the resolver is an external oracle whose
// view may lag one step behind the filesystem, and without the filter a
// lagging oracle could re-propose the same upgrade forever. The set is
// monotonically growing and bounded by the number of distinct package
// identifiers, so the loop terminates.
func (e *Engine) Update(ctx context.Context, opts UpdateOptions) error {
	if e.resolver == nil {
		return errors.New("update requires a resolver")
	}

	processed := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		actions, err := e.resolver.DetermineActions(ctx, e.suppliers, opts)
		if err != nil {
			return fmt.Errorf("determining actions: %w", err)
		}

		pending := make([]Action, 0, len(actions))
		for _, a := range actions {
			if _, done := processed[a.ID]; done {
				continue
			}
			pending = append(pending, a)
		}
		if len(pending) == 0 {
			e.logger.Info("packages are up to date")
			return nil
		}

		// Announce the whole round before applying anything, and stop cold
		// on conflicts or failures: partial application under an unresolved
		// graph is disallowed.
		unresolved := false
		for _, a := range pending {
			e.reportAction(a)
			if a.Kind == ActionConflict || a.Kind == ActionFailure {
				unresolved = true
			}
		}
		if unresolved {
			return ErrUnresolved
		}
		if opts.Has(JustAnnotate) {
			return nil
		}

		// All removals complete before any fetch begins, so a fetch
		// targeting a just-vacated install path never races against it.
		for _, a := range pending {
			if a.Kind != ActionRemove {
				continue
			}
			if err := e.store.Remove(a.Pack); err != nil {
				return fmt.Errorf("applying removal of %s: %w", a.ID, err)
			}
			e.logger.Info("removed", "package", a.ID, "version", a.Pack.Version)
		}

		for _, a := range pending {
			if a.Kind != ActionFetch {
				continue
			}
			if _, err := e.Fetch(ctx, a.ID, a.Version, a.Location, opts.Has(UpgradePackages)); err != nil {
				return fmt.Errorf("applying fetch of %s: %w", a.ID, err)
			}
			// Mark processed even when the fetch was a no-op: the intent for
			// this identifier has been satisfied for this run.
			processed[a.ID] = struct{}{}
		}

		if err := e.resolver.Reinit(); err != nil {
			return fmt.Errorf("reloading resolver state: %w", err)
		}
	}
}
