// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/srcpm/srcpm/internal/issue"
)

const (
	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malicious or malformed responses.
	maxJSONResponseBytes = 10 << 20

	// defaultHTTPTimeout bounds every registry request. Supplier calls are
	// expected to fail outright rather than hang.
	defaultHTTPTimeout = 30 * time.Second
)

type (
	// RegistryClient queries an HTTP package registry for metadata and
	// archive downloads. The registry exposes
	// GET {base}/packages/{id}?constraint={c} returning JSON metadata, and
	// serves archives at the download URL that metadata names.
	RegistryClient struct {
		httpClient *http.Client
		baseURL    string // Registry base URL
		token      string // Optional bearer token for authenticated registries
		userAgent  string // User-Agent header value
	}

	// ClientOption configures a RegistryClient during construction.
	ClientOption func(*RegistryClient)

	// registryPackage is the JSON wire format for a registry metadata response.
	registryPackage struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		SHA256      string `json:"sha256"`
		DownloadURL string `json:"download_url"`
	}
)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *RegistryClient) {
		r.httpClient = c
	}
}

// WithToken sets a bearer token for authenticated registries.
func WithToken(token string) ClientOption {
	return func(r *RegistryClient) {
		r.token = token
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(r *RegistryClient) {
		r.userAgent = ua
	}
}

// NewRegistryClient creates a client for the registry at baseURL.
func NewRegistryClient(baseURL string, opts ...ClientOption) *RegistryClient {
	r := &RegistryClient{
		baseURL:   baseURL,
		userAgent: "srcpm",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return r
}

// Source returns the registry base URL.
func (r *RegistryClient) Source() string { return r.baseURL }

// Describe resolves (id, constraint) against the registry. A 404 maps to
// issue.ErrNotFound so the caller can fall through to the next supplier.
func (r *RegistryClient) Describe(ctx context.Context, id, constraint string) (*Description, error) {
	wire, err := r.describeWire(ctx, id, constraint)
	if err != nil {
		return nil, err
	}

	if wire.Name == "" || wire.Version == "" {
		return nil, fmt.Errorf("registry %s returned incomplete metadata for %s", r.baseURL, id)
	}

	return &Description{
		Name:    wire.Name,
		Version: wire.Version,
		SHA256:  wire.SHA256,
	}, nil
}

// Retrieve downloads the archive matching (id, constraint) and streams it to
// w. It re-resolves the metadata to obtain the download URL; a failure here
// is not recoverable within the fetch that issued it.
func (r *RegistryClient) Retrieve(ctx context.Context, w io.Writer, id, constraint string) error {
	wire, err := r.describeWire(ctx, id, constraint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wire.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", wire.DownloadURL, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only HTTP response body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s returned status %d", wire.DownloadURL, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("writing archive for %s: %w", id, err)
	}

	return nil
}

// describeWire fetches the raw wire metadata, including the download URL
// which the public Description deliberately omits.
func (r *RegistryClient) describeWire(ctx context.Context, id, constraint string) (*registryPackage, error) {
	endpoint := fmt.Sprintf("%s/packages/%s", r.baseURL, url.PathEscape(id))
	if constraint != "" {
		endpoint += "?constraint=" + url.QueryEscape(constraint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building metadata request: %w", err)
	}
	r.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", r.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only HTTP response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, &issue.NotFoundError{ID: id, Constraint: constraint}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry %s returned status %d for %s", r.baseURL, resp.StatusCode, id)
	}

	var wire registryPackage
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
	}
	if wire.DownloadURL == "" {
		return nil, fmt.Errorf("registry %s returned no download URL for %s", r.baseURL, id)
	}

	return &wire, nil
}

// setHeaders applies the shared headers to an outgoing request.
func (r *RegistryClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", r.userAgent)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
}
