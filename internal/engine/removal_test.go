// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
)

// failRemoveFS refuses to delete anything under failPrefix, simulating a
// permission problem on part of the store.
type failRemoveFS struct {
	billy.Filesystem
	failPrefix string
}

func (f *failRemoveFS) RemoveAll(path string) error {
	if f.failPrefix != "" && strings.HasPrefix(path, f.failPrefix) {
		return errors.New("operation not permitted")
	}
	return util.RemoveAll(f.Filesystem, path)
}

// seedInstalls fetches every (id, version) pair into the user tier.
func seedInstalls(t *testing.T, eng *Engine, packages map[string][]string) {
	t.Helper()
	for id, versions := range packages {
		for _, v := range versions {
			if _, err := eng.Fetch(context.Background(), id, v, store.UserWide, false); err != nil {
				t.Fatalf("seeding %s %s: %v", id, v, err)
			}
		}
	}
}

func TestRemoveWildcardRemovesAllVersions(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0", "1.1.0", "2.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)
	seedInstalls(t, eng, versions)

	results, err := eng.Remove("alpha", "*", store.UserWide)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("removal of %s %s failed: %v", r.Pack.ID, r.Pack.Version, r.Err)
		}
	}
	if got := storeSnapshot(eng); got != nil {
		t.Fatalf("packages survived a wildcard removal: %v", got)
	}
}

func TestRemoveConcreteVersionLeavesOthers(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0", "2.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)
	seedInstalls(t, eng, versions)

	results, err := eng.Remove("alpha", "1.0.0", store.UserWide)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(results) != 1 || results[0].Pack.Version != "1.0.0" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got := storeSnapshot(eng); len(got) != 1 || got[0] != "alpha@2.0.0" {
		t.Fatalf("installed = %v, want [alpha@2.0.0]", got)
	}
}

func TestRemoveEmptyVersionSingleMatch(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)
	seedInstalls(t, eng, versions)

	results, err := eng.Remove("alpha", "", store.UserWide)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
}

func TestRemoveEmptyVersionAmbiguous(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0", "2.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)
	seedInstalls(t, eng, versions)

	_, err := eng.Remove("alpha", "", store.UserWide)
	if !errors.Is(err, issue.ErrAmbiguous) {
		t.Fatalf("Remove error = %v, want ErrAmbiguous", err)
	}

	var ambiguous *issue.AmbiguousVersionError
	if !errors.As(err, &ambiguous) || len(ambiguous.Versions) != 2 {
		t.Fatalf("expected both candidate versions in the error, got %v", err)
	}
	if got := storeSnapshot(eng); len(got) != 2 {
		t.Fatalf("ambiguous removal must not touch the store, got %v", got)
	}
}

func TestRemoveNotFound(t *testing.T) {
	sup := newFakeSupplier(t, "registry", nil)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)

	if _, err := eng.Remove("ghost", "*", store.UserWide); !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("Remove error = %v, want ErrNotFound", err)
	}
}

func TestRemoveOtherTierUntouched(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)
	seedInstalls(t, eng, versions)

	// The only install is user-wide; a system-wide request matches nothing.
	if _, err := eng.Remove("alpha", "*", store.SystemWide); !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("Remove error = %v, want ErrNotFound", err)
	}
	if got := storeSnapshot(eng); len(got) != 1 {
		t.Fatalf("installed = %v, want the user-wide package intact", got)
	}
}

func TestRemoveLocalRefusedWithGuidance(t *testing.T) {
	sup := newFakeSupplier(t, "registry", map[string][]string{"alpha": {"1.0.0"}})
	eng, _ := newTestEngine(t, []supplier.Supplier{sup}, nil)

	if _, err := eng.Fetch(context.Background(), "alpha", "1.0.0", store.Local, false); err != nil {
		t.Fatalf("seeding local install: %v", err)
	}

	results, err := eng.Remove("alpha", "*", store.Local)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no removal attempts for local placements, got %+v", results)
	}
	if got := storeSnapshot(eng); len(got) != 1 {
		t.Fatalf("local package must survive, got %v", got)
	}
}

func TestRemoveIsolatesPerPackageFailures(t *testing.T) {
	versions := map[string][]string{"alpha": {"1.0.0", "2.0.0"}}
	sup := newFakeSupplier(t, "registry", versions)

	inner := memfs.New()
	fs := &failRemoveFS{Filesystem: inner}
	st, err := store.New(fs, testRoots)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	eng := New(fs, st, []supplier.Supplier{sup}, nil, testRoots.Project,
		WithLogger(log.New(io.Discard)))
	seedInstalls(t, eng, versions)

	// Make one of the two installs undeletable.
	fs.failPrefix = fs.Join(testRoots.User, "packages", "alpha-1.0.0")

	results, err := eng.Remove("alpha", "*", store.UserWide)
	if err == nil {
		t.Fatal("expected an aggregated failure error")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (every match is attempted)", len(results))
	}

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 1 {
		t.Fatalf("failed = %d, succeeded = %d, want 1 and 1", failed, succeeded)
	}
}

func TestRemovePackageNilGuard(t *testing.T) {
	eng, _ := newTestEngine(t, nil, nil)

	if err := eng.RemovePackage(nil); err == nil {
		t.Fatal("expected an error for a nil removal target")
	}
}
