// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/pkg/pkgver"
)

// RemovalResult records the outcome of removing one matched package. A
// failure on one package never prevents attempting the rest; results carry
// the per-package verdicts so callers and tests can inspect them.
type RemovalResult struct {
	Pack *store.InstalledPackage
	Err  error
}

// RemovePackage unconditionally deletes the given install from the store.
func (e *Engine) RemovePackage(p *store.InstalledPackage) error {
	if p == nil {
		return errors.New("remove target must not be nil")
	}
	if err := e.store.Remove(p); err != nil {
		return err
	}
	e.logger.Info("removed", "package", p.ID, "version", p.Version, "path", p.Path)
	return nil
}

// Remove resolves a removal request into zero or more installs at loc and
// removes them. version may be a concrete version, the wildcard "*"
// (all versions), or empty — a shorthand for "the one version present",
// which fails as ambiguous when several are installed.
//
// Local placements are refused outright: they live inside the project tree
// and are not disposable cache entries, so only guidance is emitted and the
// store is never touched.
func (e *Engine) Remove(id, version string, loc store.Location) ([]RemovalResult, error) {
	if loc == store.Local {
		e.logger.Warn("local packages are part of the project tree; delete the package directory manually",
			"package", id, "project", e.projectRoot)
		return nil, nil
	}

	root, err := e.store.InstallRoot(loc)
	if err != nil {
		return nil, err
	}

	wildcard := version == pkgver.Wildcard
	var matches []*store.InstalledPackage
	var versions []string
	for _, p := range e.store.ListAll(id) {
		if p.Root != root {
			continue
		}
		if !wildcard && version != "" && p.Version != version {
			continue
		}
		matches = append(matches, p)
		versions = append(versions, p.Version)
	}

	if len(matches) == 0 {
		return nil, &issue.NotFoundError{ID: id, Constraint: version}
	}
	if version == "" && len(matches) > 1 {
		return nil, &issue.AmbiguousVersionError{ID: id, Versions: versions}
	}

	// Per-package failure isolation: attempt every match, aggregate the
	// failures, and report them together at the end.
	results := make([]RemovalResult, 0, len(matches))
	var failures []error
	for _, p := range matches {
		removeErr := e.store.Remove(p)
		results = append(results, RemovalResult{Pack: p, Err: removeErr})
		if removeErr != nil {
			e.logger.Error("removal failed", "package", p.ID, "version", p.Version, "err", removeErr)
			failures = append(failures, fmt.Errorf("%s %s: %w", p.ID, p.Version, removeErr))
			continue
		}
		e.logger.Info("removed", "package", p.ID, "version", p.Version)
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("removal finished with failures: %w", errors.Join(failures...))
	}
	return results, nil
}
