// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/srcpm/srcpm/internal/engine"
	"github.com/srcpm/srcpm/internal/issue"
	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
)

// splitPackageArg parses the "id[@constraint]" form used by fetch and remove.
// A missing '@' leaves the constraint empty.
func splitPackageArg(arg string) (id, constraint string, err error) {
	id, constraint, _ = strings.Cut(arg, "@")
	if id == "" {
		return "", "", fmt.Errorf("invalid package argument %q: empty package identifier", arg)
	}
	return id, constraint, nil
}

// newSuppliers builds the supplier chain from the configured registries, in
// priority order. Entries prefixed "dir:" become local directory suppliers;
// everything else is treated as an HTTP registry base URL.
func newSuppliers(registries []string) []supplier.Supplier {
	suppliers := make([]supplier.Supplier, 0, len(registries))
	for _, entry := range registries {
		if dir, ok := strings.CutPrefix(entry, "dir:"); ok {
			suppliers = append(suppliers, supplier.NewDirSupplier(dir))
			continue
		}
		var opts []supplier.ClientOption
		if token := os.Getenv("SRCPM_REGISTRY_TOKEN"); token != "" {
			opts = append(opts, supplier.WithToken(token))
		}
		opts = append(opts, supplier.WithUserAgent("srcpm/"+Version))
		suppliers = append(suppliers, supplier.NewRegistryClient(entry, opts...))
	}
	return suppliers
}

// buildEngine wires the store, suppliers, and an optional resolver into an
// engine rooted at the current working directory's project tree.
func buildEngine(resolver engine.Resolver) (*engine.Engine, error) {
	if cfg == nil {
		return nil, issue.NewErrorContext().
			WithOperation("initialize engine").
			WithSuggestion("Check the configuration warnings printed above").
			Wrap(fmt.Errorf("configuration is not loaded")).
			BuildError()
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining project root: %w", err)
	}

	fs := osfs.New("/")
	st, err := store.New(fs, store.Roots{
		Project:     projectRoot,
		User:        cfg.UserRoot,
		System:      cfg.SystemRoot,
		SearchPaths: cfg.SearchPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("scanning package store: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "srcpm"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.TempDir != "" {
		opts = append(opts, engine.WithTempDir(cfg.TempDir))
	}

	return engine.New(fs, st, newSuppliers(cfg.Registries), resolver, projectRoot, opts...), nil
}
