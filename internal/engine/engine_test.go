// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
	"github.com/srcpm/srcpm/pkg/pkgver"
)

// testRoots are the tier roots used throughout the engine tests.
var testRoots = store.Roots{
	Project: "/work/project",
	User:    "/home/tester/.srcpm",
	System:  "/var/lib/srcpm",
}

// makeArchive builds an in-memory tar.gz archive from the given files.
func makeArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	return buf.Bytes()
}

// sha256Hex computes the lowercase hex-encoded SHA256 digest of data.
func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

type (
	// fakeVersion is one package version a fakeSupplier can serve.
	fakeVersion struct {
		version string
		data    []byte
		sha256  string
	}

	// fakeSupplier serves archives from memory and counts calls.
	fakeSupplier struct {
		name          string
		packages      map[string][]fakeVersion
		describeCalls int
		retrieveCalls int
		retrieveErr   error
	}

	// scriptedResolver replays a fixed sequence of action rounds; once the
	// script is exhausted it reports convergence.
	scriptedResolver struct {
		rounds  [][]Action
		round   int
		reinits int
	}
)

func (f *fakeSupplier) Source() string { return f.name }

func (f *fakeSupplier) Describe(_ context.Context, id, constraint string) (*supplier.Description, error) {
	f.describeCalls++
	v := f.match(id, constraint)
	if v == nil {
		return nil, &issue.NotFoundError{ID: id, Constraint: constraint}
	}
	return &supplier.Description{Name: id, Version: v.version, SHA256: v.sha256}, nil
}

func (f *fakeSupplier) Retrieve(_ context.Context, w io.Writer, id, constraint string) error {
	f.retrieveCalls++
	if f.retrieveErr != nil {
		return f.retrieveErr
	}
	v := f.match(id, constraint)
	if v == nil {
		return &issue.NotFoundError{ID: id, Constraint: constraint}
	}
	_, err := w.Write(v.data)
	return err
}

func (f *fakeSupplier) match(id, constraint string) *fakeVersion {
	var best *fakeVersion
	for i := range f.packages[id] {
		v := &f.packages[id][i]
		if !pkgver.MatchesConstraint(v.version, constraint) {
			continue
		}
		if best == nil || pkgver.Compare(v.version, best.version) > 0 {
			best = v
		}
	}
	return best
}

func (r *scriptedResolver) DetermineActions(context.Context, []supplier.Supplier, UpdateOptions) ([]Action, error) {
	if r.round >= len(r.rounds) {
		return nil, nil
	}
	actions := r.rounds[r.round]
	r.round++
	return actions, nil
}

func (r *scriptedResolver) Reinit() error {
	r.reinits++
	return nil
}

// newFakeSupplier creates a supplier serving one archive per listed version.
// Checksums are filled in so verification paths get exercised.
func newFakeSupplier(t *testing.T, name string, versions map[string][]string) *fakeSupplier {
	t.Helper()

	f := &fakeSupplier{name: name, packages: make(map[string][]fakeVersion)}
	for id, vs := range versions {
		for _, version := range vs {
			data := makeArchive(t, map[string]string{
				"manifest.json": fmt.Sprintf(`{"name":%q,"version":%q}`, id, version),
			})
			f.packages[id] = append(f.packages[id], fakeVersion{
				version: version,
				data:    data,
				sha256:  sha256Hex(data),
			})
		}
	}
	return f
}

// newTestEngine builds an engine over a fresh in-memory filesystem.
func newTestEngine(t *testing.T, suppliers []supplier.Supplier, resolver Resolver) (*Engine, billy.Filesystem) {
	t.Helper()

	fs := memfs.New()
	st, err := store.New(fs, testRoots)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	eng := New(fs, st, suppliers, resolver, testRoots.Project,
		WithLogger(log.New(io.Discard)))
	return eng, fs
}

// tempDownloadCount counts files left in the temp-download directory.
func tempDownloadCount(t *testing.T, fs billy.Filesystem) int {
	t.Helper()

	entries, err := fs.ReadDir(fs.Join(testRoots.Project, ".srcpm", "temp", "downloads"))
	if err != nil {
		return 0
	}
	return len(entries)
}

// storeSnapshot lists installed (id, version) pairs for mutation checks.
func storeSnapshot(e *Engine) []string {
	var out []string
	for _, p := range e.Store().ListAll("") {
		out = append(out, p.ID+"@"+p.Version)
	}
	return out
}
