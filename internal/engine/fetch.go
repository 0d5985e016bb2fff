// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
	"github.com/srcpm/srcpm/pkg/pkgver"
)

// Fetch acquires the package matching (id, constraint) and installs it at
// loc, returning the resulting install. When a matching version is already
// present the call is an idempotent no-op — except for branch versions with
// forceBranchUpgrade set at non-local tiers, which are removed and
// re-fetched (local placements are never force-upgraded, since the operator
// may hold local edits).
func (e *Engine) Fetch(ctx context.Context, id, constraint string, loc store.Location, forceBranchUpgrade bool) (*store.InstalledPackage, error) {
	desc, sup, err := e.describe(ctx, id, constraint)
	if err != nil {
		return nil, err
	}

	root, err := e.store.InstallRoot(loc)
	if err != nil {
		return nil, err
	}

	if existing := e.store.Lookup(id, desc.Version, root); existing != nil {
		switch {
		case !pkgver.IsBranch(desc.Version):
			// Releases are immutable; never re-download.
			e.logger.Info("skip", "package", id, "version", desc.Version, "reason", "already installed")
			return existing, nil
		case !forceBranchUpgrade || loc == store.Local:
			e.logger.Info("skip", "package", id, "version", desc.Version, "reason", "branch already installed")
			return existing, nil
		default:
			// Forced branch re-fetch: drop the stale checkout first.
			if err := e.store.Remove(existing); err != nil {
				return nil, fmt.Errorf("removing stale %s %s: %w", id, desc.Version, err)
			}
		}
	}

	e.logger.Info("downloading", "package", id, "version", desc.Version, "supplier", sup.Source())

	archivePath, cleanup, err := e.download(ctx, sup, desc, id, constraint)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if desc.SHA256 != "" {
		if err := e.verifyArchive(archivePath, desc.SHA256); err != nil {
			return nil, err
		}
	}

	destPath := e.fs.Join(root, id+"-"+pkgver.PathSuffix(desc.Version))
	meta := store.PackageMeta{
		ID:          id,
		Version:     desc.Version,
		Source:      sup.Source(),
		InstalledAt: time.Now().UTC(),
	}

	p, err := e.store.Install(archivePath, meta, destPath, loc)
	if err != nil {
		return nil, fmt.Errorf("installing %s %s: %w", id, desc.Version, err)
	}

	e.logger.Info("installed", "package", id, "version", desc.Version, "path", p.Path)
	return p, nil
}

// describe queries suppliers in priority order; the first to return valid
// metadata wins. Per-supplier errors are swallowed (the next one is tried),
// but the winning supplier is then committed for the archive retrieval —
// there is no fallback once metadata succeeded.
func (e *Engine) describe(ctx context.Context, id, constraint string) (*supplier.Description, supplier.Supplier, error) {
	for _, sup := range e.suppliers {
		desc, err := sup.Describe(ctx, id, constraint)
		if err != nil {
			e.logger.Debug("supplier cannot describe package",
				"supplier", sup.Source(), "package", id, "err", err)
			continue
		}
		return desc, sup, nil
	}
	return nil, nil, &issue.NotFoundError{ID: id, Constraint: constraint}
}

// download retrieves the archive into a temp file scoped to the per-project
// download directory and returns its path with a cleanup func. The temp file
// is deleted on every exit path once created; callers must invoke cleanup.
func (e *Engine) download(ctx context.Context, sup supplier.Supplier, desc *supplier.Description, id, constraint string) (string, func(), error) {
	if err := e.fs.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating download directory %s: %w", e.tempDir, err)
	}

	tempPath := e.fs.Join(e.tempDir, fmt.Sprintf("%s-%s.tar.gz", id, pkgver.PathSuffix(desc.Version)))

	// A stale file with the same name can survive a crashed run.
	if _, err := e.fs.Stat(tempPath); err == nil {
		if err := e.fs.Remove(tempPath); err != nil {
			return "", nil, fmt.Errorf("clearing stale download %s: %w", tempPath, err)
		}
	}

	f, err := e.fs.Create(tempPath)
	if err != nil {
		return "", nil, fmt.Errorf("creating download file %s: %w", tempPath, err)
	}
	cleanup := func() { _ = e.fs.Remove(tempPath) }

	if err := sup.Retrieve(ctx, f, id, constraint); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("retrieving %s from %s: %w", id, sup.Source(), err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("finalizing download of %s: %w", id, err)
	}

	return tempPath, cleanup, nil
}

// verifyArchive checks the downloaded archive against the digest its
// supplier advertised.
func (e *Engine) verifyArchive(archivePath, expectedHash string) (err error) {
	f, err := e.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening %s for verification: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	return supplier.Verify(f, archivePath, expectedHash)
}
