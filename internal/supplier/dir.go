// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/pkg/pkgver"
)

// IndexFileName is the name of the index file a directory supplier serves.
const IndexFileName = "index.yaml"

type (
	// DirSupplier serves packages from a local directory of archives plus an
	// index.yaml describing them. Useful as a mirror, an air-gapped source,
	// or a hermetic test fixture. Configured via "dir:<path>" registry
	// entries.
	DirSupplier struct {
		dir string
	}

	// dirIndex is the YAML layout of index.yaml.
	dirIndex struct {
		Packages map[string][]dirEntry `yaml:"packages"`
	}

	// dirEntry describes one archive in the index.
	dirEntry struct {
		Version string `yaml:"version"`
		File    string `yaml:"file"`
		SHA256  string `yaml:"sha256"`
	}
)

// NewDirSupplier creates a supplier rooted at dir. The index is re-read on
// every call so an updated mirror is picked up without restarting.
func NewDirSupplier(dir string) *DirSupplier {
	return &DirSupplier{dir: dir}
}

// Source returns the directory path in "dir:" form.
func (d *DirSupplier) Source() string { return "dir:" + d.dir }

// Describe picks the highest indexed version matching the constraint.
func (d *DirSupplier) Describe(ctx context.Context, id, constraint string) (*Description, error) {
	entry, err := d.resolve(ctx, id, constraint)
	if err != nil {
		return nil, err
	}
	return &Description{
		Name:    id,
		Version: entry.Version,
		SHA256:  entry.SHA256,
	}, nil
}

// Retrieve copies the matching archive file to w.
func (d *DirSupplier) Retrieve(ctx context.Context, w io.Writer, id, constraint string) error {
	entry, err := d.resolve(ctx, id, constraint)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(d.dir, entry.File))
	if err != nil {
		return fmt.Errorf("opening archive for %s: %w", id, err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying archive for %s: %w", id, err)
	}

	return nil
}

// resolve loads the index and returns the best entry for (id, constraint).
func (d *DirSupplier) resolve(ctx context.Context, id, constraint string) (*dirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := d.loadIndex()
	if err != nil {
		return nil, err
	}

	var best *dirEntry
	for i := range idx.Packages[id] {
		entry := &idx.Packages[id][i]
		if !pkgver.MatchesConstraint(entry.Version, constraint) {
			continue
		}
		if best == nil || pkgver.Compare(entry.Version, best.Version) > 0 {
			best = entry
		}
	}
	if best == nil {
		return nil, &issue.NotFoundError{ID: id, Constraint: constraint}
	}
	if best.File == "" {
		return nil, fmt.Errorf("index entry for %s %s names no file", id, best.Version)
	}

	return best, nil
}

// loadIndex reads and parses index.yaml.
func (d *DirSupplier) loadIndex() (*dirIndex, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, IndexFileName))
	if err != nil {
		return nil, fmt.Errorf("reading supplier index in %s: %w", d.dir, err)
	}

	var idx dirIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing supplier index in %s: %w", d.dir, err)
	}

	return &idx, nil
}
