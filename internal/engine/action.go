// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"fmt"

	"github.com/srcpm/srcpm/internal/store"
)

const (
	// ActionFetch requires installing a package at a placement tier.
	ActionFetch ActionKind = "fetch"
	// ActionRemove retires an installed package that is no longer required
	// or is about to be superseded.
	ActionRemove ActionKind = "remove"
	// ActionConflict reports mutually incompatible version requirements.
	// Terminal for the run; never applied.
	ActionConflict ActionKind = "conflict"
	// ActionFailure reports that no version satisfies the requirements.
	// Terminal for the run; never applied.
	ActionFailure ActionKind = "failure"
)

type (
	// ActionKind tags the decision a resolver produced for one package.
	ActionKind string

	// Action is one state-changing decision from the resolver. Which fields
	// are set depends on Kind: fetches carry Version and Location, removals
	// carry Pack, conflicts and failures carry Issuers (the dependents and
	// the constraints they declared).
	Action struct {
		Kind     ActionKind
		ID       string
		Version  string
		Location store.Location
		Pack     *store.InstalledPackage
		Issuers  map[string]string
	}
)

// FetchAction requires id at version to be installed at loc.
func FetchAction(id, version string, loc store.Location) Action {
	return Action{Kind: ActionFetch, ID: id, Version: version, Location: loc}
}

// RemoveAction retires the given installed package.
func RemoveAction(p *store.InstalledPackage) Action {
	return Action{Kind: ActionRemove, ID: p.ID, Pack: p}
}

// ConflictAction reports incompatible requirements on id. issuers maps each
// dependent to the constraint it declared.
func ConflictAction(id string, issuers map[string]string) Action {
	return Action{Kind: ActionConflict, ID: id, Issuers: issuers}
}

// FailureAction reports that no version of id satisfies the requirements.
func FailureAction(id string, issuers map[string]string) Action {
	return Action{Kind: ActionFailure, ID: id, Issuers: issuers}
}

// String renders the action in one line, as announced to the operator.
func (a Action) String() string {
	switch a.Kind {
	case ActionFetch:
		return fmt.Sprintf("fetch %s %s -> %s", a.ID, a.Version, a.Location)
	case ActionRemove:
		return fmt.Sprintf("remove %s %s (%s)", a.ID, a.Pack.Version, a.Pack.Path)
	case ActionConflict:
		return fmt.Sprintf("conflict on %s", a.ID)
	case ActionFailure:
		return fmt.Sprintf("no satisfying version for %s", a.ID)
	default:
		return fmt.Sprintf("unknown action on %s", a.ID)
	}
}
