// SPDX-License-Identifier: MPL-2.0

package store

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"
)

// maxEntryBytes is the upper bound on a single extracted file (500 MB).
// Prevents decompression bombs when extracting package archives.
const maxEntryBytes = 500 << 20

// partialSuffix marks an extraction that has not been made visible yet.
const partialSuffix = ".partial"

// Install extracts the tar.gz archive at archivePath into destPath and
// registers the result. Installation is atomic from the caller's
// perspective: the archive is extracted into a hidden staging directory that
// is renamed to destPath only once extraction and metadata write both
// succeeded, so later lookups never observe a partially extracted package.
func (s *Store) Install(archivePath string, meta PackageMeta, destPath string, loc Location) (*InstalledPackage, error) {
	if meta.ID == "" || meta.Version == "" {
		return nil, errors.New("install metadata must carry id and version")
	}

	staging := destPath + partialSuffix

	// A stale staging directory can survive a crashed run; clear it.
	if _, err := s.fs.Stat(staging); err == nil {
		if err := util.RemoveAll(s.fs, staging); err != nil {
			return nil, fmt.Errorf("clearing stale staging directory %s: %w", staging, err)
		}
	}

	if err := s.extractArchive(archivePath, staging); err != nil {
		_ = util.RemoveAll(s.fs, staging)
		return nil, fmt.Errorf("extracting %s: %w", archivePath, err)
	}

	if err := writeMeta(s.fs, staging, meta); err != nil {
		_ = util.RemoveAll(s.fs, staging)
		return nil, err
	}

	if err := s.fs.Rename(staging, destPath); err != nil {
		_ = util.RemoveAll(s.fs, staging)
		return nil, fmt.Errorf("activating %s: %w", destPath, err)
	}

	p := &InstalledPackage{
		ID:       meta.ID,
		Version:  meta.Version,
		Path:     destPath,
		Root:     filepath.Dir(destPath),
		Location: loc,
	}
	s.register(p)

	return p, nil
}

// extractArchive unpacks the tar.gz archive at archivePath into destDir.
// Entries escaping destDir are rejected; entry types other than directories
// and regular files are skipped.
func (s *Store) extractArchive(archivePath, destDir string) (err error) {
	f, err := s.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() {
		// Gzip reader wraps the underlying file; close errors are not
		// actionable here since we only read from it.
		_ = gz.Close()
	}()

	if err := s.fs.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		name := path.Clean(hdr.Name)
		if name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry %q escapes the package directory", hdr.Name)
		}
		target := s.fs.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := s.fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := s.extractFile(tr, target, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks, devices and the rest have no business in a source
			// package archive.
			continue
		}
	}

	return nil
}

// extractFile writes one regular-file entry, capped at maxEntryBytes.
func (s *Store) extractFile(r io.Reader, target string, mode os.FileMode) (err error) {
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}

	out, err := s.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, io.LimitReader(r, maxEntryBytes)); err != nil {
		return fmt.Errorf("extracting %s: %w", target, err)
	}

	return nil
}
