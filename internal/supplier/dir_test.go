// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/srcpm/srcpm/internal/issue"
)

// writeDirFixture lays out a directory supplier with the given index content
// and archive files.
func writeDirFixture(t *testing.T, index string, files map[string][]byte) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, IndexFileName), []byte(index), 0o600); err != nil {
		t.Fatalf("writing index: %v", err)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			t.Fatalf("writing archive %s: %v", name, err)
		}
	}
	return dir
}

const testIndex = `
packages:
  alpha:
    - version: "1.0.0"
      file: alpha-1.0.0.tar.gz
      sha256: aaaa
    - version: "1.2.0"
      file: alpha-1.2.0.tar.gz
      sha256: bbbb
    - version: "2.0.0"
      file: alpha-2.0.0.tar.gz
  beta:
    - version: "~master"
      file: beta-master.tar.gz
`

func TestDirDescribePicksHighestMatch(t *testing.T) {
	dir := writeDirFixture(t, testIndex, nil)
	sup := NewDirSupplier(dir)

	desc, err := sup.Describe(context.Background(), "alpha", "^1.0.0")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0 (highest within ^1.0.0)", desc.Version)
	}
	if desc.SHA256 != "bbbb" {
		t.Errorf("SHA256 = %q, want bbbb", desc.SHA256)
	}
}

func TestDirDescribeBranch(t *testing.T) {
	dir := writeDirFixture(t, testIndex, nil)
	sup := NewDirSupplier(dir)

	desc, err := sup.Describe(context.Background(), "beta", "~master")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Version != "~master" {
		t.Errorf("Version = %q, want ~master", desc.Version)
	}
}

func TestDirDescribeNotFound(t *testing.T) {
	dir := writeDirFixture(t, testIndex, nil)
	sup := NewDirSupplier(dir)

	_, err := sup.Describe(context.Background(), "alpha", ">=3.0.0")
	if !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = sup.Describe(context.Background(), "ghost", "")
	if !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown package, got %v", err)
	}
}

func TestDirRetrieve(t *testing.T) {
	archive := []byte("alpha archive")
	dir := writeDirFixture(t, testIndex, map[string][]byte{
		"alpha-2.0.0.tar.gz": archive,
	})
	sup := NewDirSupplier(dir)

	var buf bytes.Buffer
	if err := sup.Retrieve(context.Background(), &buf, "alpha", "2.0.0"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), archive) {
		t.Errorf("retrieved %q, want %q", buf.Bytes(), archive)
	}
}

func TestDirMissingIndex(t *testing.T) {
	sup := NewDirSupplier(t.TempDir())

	_, err := sup.Describe(context.Background(), "alpha", "")
	if err == nil {
		t.Fatal("expected error for missing index.yaml")
	}
}
