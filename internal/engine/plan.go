// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
	"github.com/srcpm/srcpm/pkg/pkgver"
)

type (
	// Plan is a solved dependency set: concrete versions only. Constraint
	// solving happens upstream; the plan is what the solver decided.
	Plan struct {
		Packages []PlanEntry `yaml:"packages"`
	}

	// PlanEntry pins one package to a concrete version and placement tier.
	PlanEntry struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		Placement string `yaml:"placement"` // local, user (default), or system
	}

	// PlanResolver derives reconciliation actions by diffing a solved plan
	// against the current store contents. It implements Resolver for driving
	// the update loop without an in-process constraint solver.
	PlanResolver struct {
		plan  *Plan
		store *store.Store
	}

	// planTarget is a deduplicated, placement-resolved plan entry.
	planTarget struct {
		version string
		root    string
		loc     store.Location
	}
)

// LoadPlan reads a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	for _, entry := range plan.Packages {
		if entry.Name == "" {
			return nil, fmt.Errorf("plan %s contains an entry without a name", path)
		}
	}

	return &plan, nil
}

// NewPlanResolver creates a resolver diffing plan against st.
func NewPlanResolver(plan *Plan, st *store.Store) *PlanResolver {
	return &PlanResolver{plan: plan, store: st}
}

// DetermineActions diffs the plan against installed state. Suppliers are
// unused — the plan already names concrete versions — but kept in the
// contract so resolver implementations that do consult them stay
// interchangeable.
func (r *PlanResolver) DetermineActions(ctx context.Context, _ []supplier.Supplier, opts UpdateOptions) ([]Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var actions []Action
	targets := make(map[string]planTarget)
	broken := make(map[string]struct{})

	for _, entry := range r.plan.Packages {
		if entry.Version == "" {
			actions = append(actions, FailureAction(entry.Name, map[string]string{
				"plan": "entry carries no version",
			}))
			broken[entry.Name] = struct{}{}
			continue
		}

		loc, root, err := r.placement(entry)
		if err != nil {
			return nil, err
		}

		if prev, dup := targets[entry.Name]; dup {
			if prev.version != entry.Version {
				actions = append(actions, ConflictAction(entry.Name, map[string]string{
					"plan (first entry)":     prev.version,
					"plan (duplicate entry)": entry.Version,
				}))
				broken[entry.Name] = struct{}{}
			}
			continue
		}
		targets[entry.Name] = planTarget{version: entry.Version, root: root, loc: loc}
	}

	// Fetches: every target not yet installed at its root, plus forced
	// branch re-fetches when upgrading.
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, bad := broken[name]; bad {
			continue
		}
		target := targets[name]
		installed := r.store.Lookup(name, target.version, target.root)
		switch {
		case installed == nil:
			actions = append(actions, FetchAction(name, target.version, target.loc))
		case opts.Has(UpgradePackages) && pkgver.IsBranch(target.version) && target.loc != store.Local:
			// Branch heads move; an upgrade run re-proposes them. The update
			// loop's processed set keeps this from repeating within one run.
			actions = append(actions, FetchAction(name, target.version, target.loc))
		}
	}

	// Removals: managed-tier installs the plan no longer names (or names at
	// a different version or root). Local placements and search paths are
	// not managed by the plan.
	for _, p := range r.store.ListAll("") {
		if p.Location != store.UserWide && p.Location != store.SystemWide {
			continue
		}
		target, wanted := targets[p.ID]
		if wanted && target.version == p.Version && target.root == p.Root {
			continue
		}
		actions = append(actions, RemoveAction(p))
	}

	return actions, nil
}

// Reinit re-reads installed state from the store.
func (r *PlanResolver) Reinit() error {
	return r.store.Reload()
}

// placement resolves an entry's placement name, defaulting to user-wide.
func (r *PlanResolver) placement(entry PlanEntry) (store.Location, string, error) {
	name := entry.Placement
	if name == "" {
		name = string(store.UserWide)
	}
	loc, err := store.ParseLocation(name)
	if err != nil {
		return "", "", fmt.Errorf("plan entry %s: %w", entry.Name, err)
	}
	root, err := r.store.InstallRoot(loc)
	if err != nil {
		return "", "", err
	}
	return loc, root, nil
}
