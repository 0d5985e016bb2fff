// SPDX-License-Identifier: MPL-2.0

package store

import (
	"errors"
	"fmt"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/srcpm/srcpm/pkg/pkgver"
)

// packagesSubdir is the install target under the user and system tier roots.
const packagesSubdir = "packages"

const (
	// Local places packages inside the current project. Highest precedence;
	// never auto-upgraded.
	Local Location = "local"
	// UserWide places packages under the user tier root.
	UserWide Location = "user"
	// SystemWide places packages under the system tier root.
	SystemWide Location = "system"
	// searchPath tags packages found on extra search paths. Lookup-only;
	// never an install target.
	searchPath Location = "search"
)

// ErrUnknownLocation is returned when a Location is not a valid install target.
var ErrUnknownLocation = errors.New("unknown placement location")

type (
	// Location is a placement tier for installed packages.
	Location string

	// Roots maps placement tiers to their filesystem roots, plus extra
	// search paths that participate in lookups but are never install
	// targets.
	Roots struct {
		Project     string
		User        string
		System      string
		SearchPaths []string
	}

	// InstalledPackage is one installed package: identifier, concrete
	// version, its directory, and the owning tier. Never mutated in place —
	// an upgrade is always remove-then-reinstall under a new path.
	InstalledPackage struct {
		ID       string
		Version  string
		Path     string // Package directory
		Root     string // Destination root the package was installed under
		Location Location
	}

	// indexKey derives installed-package identity, per the storage design:
	// (id, version, root directory).
	indexKey struct {
		id      string
		version string
		root    string
	}

	// Store is the authoritative registry of installed packages across the
	// three placement tiers and any extra search paths. The filesystem is
	// the durable source of truth; the in-memory index is rebuilt from it by
	// Reload. Single-writer: concurrent mutation of the same roots is out of
	// contract.
	Store struct {
		fs    billy.Filesystem
		roots Roots
		index map[indexKey]*InstalledPackage
	}
)

// ParseLocation converts a user-facing placement name to a Location.
func ParseLocation(s string) (Location, error) {
	switch Location(s) {
	case Local, UserWide, SystemWide:
		return Location(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected local, user, or system)", ErrUnknownLocation, s)
	}
}

// New creates a Store over fs and performs the initial scan of all roots.
func New(fs billy.Filesystem, roots Roots) (*Store, error) {
	s := &Store{
		fs:    fs,
		roots: roots,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// InstallRoot returns the destination root directory for a placement tier:
// the project root for local placements, <tierRoot>/packages otherwise.
func (s *Store) InstallRoot(loc Location) (string, error) {
	switch loc {
	case Local:
		return s.roots.Project, nil
	case UserWide:
		return s.fs.Join(s.roots.User, packagesSubdir), nil
	case SystemWide:
		return s.fs.Join(s.roots.System, packagesSubdir), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLocation, loc)
	}
}

// Lookup returns the installed package matching (id, version, root), or nil.
func (s *Store) Lookup(id, version, root string) *InstalledPackage {
	return s.index[indexKey{id: id, version: version, root: root}]
}

// ListAll returns every installed package with the given identifier, across
// all tiers and search paths, in deterministic order. An empty id lists the
// entire store.
func (s *Store) ListAll(id string) []*InstalledPackage {
	var out []*InstalledPackage
	for _, p := range s.index {
		if id == "" || p.ID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		if c := pkgver.Compare(out[i].Version, out[j].Version); c != 0 {
			return c < 0
		}
		return out[i].Root < out[j].Root
	})
	return out
}

// Remove deletes the package directory and unregisters the package.
func (s *Store) Remove(p *InstalledPackage) error {
	if p == nil {
		return errors.New("remove target must not be nil")
	}
	if err := util.RemoveAll(s.fs, p.Path); err != nil {
		return fmt.Errorf("removing %s %s: %w", p.ID, p.Version, err)
	}
	delete(s.index, indexKey{id: p.ID, version: p.Version, root: p.Root})
	return nil
}

// Reload rescans all roots and rebuilds the index from the package metadata
// files on disk. Must be called after external store mutation before
// trusting lookups.
func (s *Store) Reload() error {
	s.index = make(map[indexKey]*InstalledPackage)

	if err := s.scanRoot(s.roots.Project, Local); err != nil {
		return err
	}
	if err := s.scanRoot(s.fs.Join(s.roots.User, packagesSubdir), UserWide); err != nil {
		return err
	}
	if err := s.scanRoot(s.fs.Join(s.roots.System, packagesSubdir), SystemWide); err != nil {
		return err
	}
	for _, path := range s.roots.SearchPaths {
		if err := s.scanRoot(path, searchPath); err != nil {
			return err
		}
	}

	return nil
}

// scanRoot registers every direct child of root carrying a valid metadata
// file. A missing root is fine (tier not provisioned yet); directories
// without metadata are not packages and are skipped.
func (s *Store) scanRoot(root string, loc Location) error {
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil //nolint:nilerr // unprovisioned root: nothing installed there
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := s.fs.Join(root, entry.Name())
		meta, err := readMeta(s.fs, dir)
		if err != nil {
			continue
		}
		s.register(&InstalledPackage{
			ID:       meta.ID,
			Version:  meta.Version,
			Path:     dir,
			Root:     root,
			Location: loc,
		})
	}

	return nil
}

// register adds a package to the index.
func (s *Store) register(p *InstalledPackage) {
	s.index[indexKey{id: p.ID, version: p.Version, root: p.Root}] = p
}
