// SPDX-License-Identifier: MPL-2.0

package store

import (
	"fmt"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pelletier/go-toml/v2"
)

// MetaFileName is the per-package metadata file written at install time and
// read back when the store rescans its roots.
const MetaFileName = ".srcpm-meta.toml"

// PackageMeta records what a package directory contains and where it came
// from. It is the durable counterpart of an index entry.
type PackageMeta struct {
	ID          string    `toml:"id"`
	Version     string    `toml:"version"`
	Source      string    `toml:"source"`
	InstalledAt time.Time `toml:"installed_at"`
}

// readMeta loads and validates the metadata file of a package directory.
func readMeta(fs billy.Filesystem, dir string) (*PackageMeta, error) {
	data, err := util.ReadFile(fs, fs.Join(dir, MetaFileName))
	if err != nil {
		return nil, fmt.Errorf("reading package metadata in %s: %w", dir, err)
	}

	var meta PackageMeta
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing package metadata in %s: %w", dir, err)
	}
	if meta.ID == "" || meta.Version == "" {
		return nil, fmt.Errorf("package metadata in %s is missing id or version", dir)
	}

	return &meta, nil
}

// writeMeta persists the metadata file into a package directory.
func writeMeta(fs billy.Filesystem, dir string, meta PackageMeta) error {
	data, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding package metadata: %w", err)
	}
	if err := util.WriteFile(fs, fs.Join(dir, MetaFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing package metadata in %s: %w", dir, err)
	}
	return nil
}
