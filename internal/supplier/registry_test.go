// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/srcpm/srcpm/internal/issue"
)

// newRegistryServer creates an httptest server that answers metadata queries
// for the given packages and serves archive bytes keyed by download path.
func newRegistryServer(t *testing.T, packages map[string]registryPackage, archives map[string][]byte) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, ok := archives[r.URL.Path]; ok {
			_, _ = w.Write(data)
			return
		}

		const prefix = "/packages/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, prefix)
		pkg, ok := packages[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		// Rebase relative download URLs onto this test server.
		if strings.HasPrefix(pkg.DownloadURL, "/") {
			pkg.DownloadURL = srv.URL + pkg.DownloadURL
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(pkg); err != nil {
			t.Errorf("encoding metadata: %v", err)
		}
	}))

	return srv
}

func TestRegistryDescribe(t *testing.T) {
	srv := newRegistryServer(t, map[string]registryPackage{
		"alpha": {Name: "alpha", Version: "1.0.0", SHA256: "abc123", DownloadURL: "/dl/alpha-1.0.0.tar.gz"},
	}, nil)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	desc, err := client.Describe(context.Background(), "alpha", "^1.0.0")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	if desc.Name != "alpha" || desc.Version != "1.0.0" || desc.SHA256 != "abc123" {
		t.Errorf("unexpected description: %+v", desc)
	}
}

func TestRegistryDescribeNotFound(t *testing.T) {
	srv := newRegistryServer(t, nil, nil)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	_, err := client.Describe(context.Background(), "ghost", "")
	if !errors.Is(err, issue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryDescribeIncompleteMetadata(t *testing.T) {
	srv := newRegistryServer(t, map[string]registryPackage{
		"alpha": {Name: "alpha", DownloadURL: "/dl/x"},
	}, nil)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	_, err := client.Describe(context.Background(), "alpha", "")
	if err == nil {
		t.Fatal("expected error for metadata without version")
	}
}

func TestRegistryRetrieve(t *testing.T) {
	archive := []byte("archive-bytes")
	srv := newRegistryServer(t, map[string]registryPackage{
		"alpha": {Name: "alpha", Version: "1.0.0", DownloadURL: "/dl/alpha-1.0.0.tar.gz"},
	}, map[string][]byte{
		"/dl/alpha-1.0.0.tar.gz": archive,
	})
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	var buf bytes.Buffer
	if err := client.Retrieve(context.Background(), &buf, "alpha", "1.0.0"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), archive) {
		t.Errorf("retrieved %q, want %q", buf.Bytes(), archive)
	}
}

func TestRegistryRetrieveDownloadFailure(t *testing.T) {
	srv := newRegistryServer(t, map[string]registryPackage{
		"alpha": {Name: "alpha", Version: "1.0.0", DownloadURL: "/dl/missing.tar.gz"},
	}, nil)
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	var buf bytes.Buffer
	err := client.Retrieve(context.Background(), &buf, "alpha", "1.0.0")
	if err == nil {
		t.Fatal("expected error when the archive download fails")
	}
}

func TestRegistrySendsAuthHeaders(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewRegistryClient(srv.URL, WithToken("sekrit"), WithUserAgent("srcpm-test"))
	_, _ = client.Describe(context.Background(), "alpha", "")

	if gotAuth != "Bearer sekrit" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotUA != "srcpm-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}
