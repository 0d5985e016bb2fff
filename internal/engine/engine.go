// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"os"
	"sort"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"

	"github.com/srcpm/srcpm/internal/store"
	"github.com/srcpm/srcpm/internal/supplier"
)

type (
	// Engine drives the reconciliation core: the update loop, the fetch
	// pipeline and the removal engine, all against a single package store.
	// Single-threaded and synchronous; the store assumes single-writer
	// access, so concurrent engines over the same roots are out of contract.
	Engine struct {
		fs          billy.Filesystem
		store       *store.Store
		suppliers   []supplier.Supplier
		resolver    Resolver
		projectRoot string
		tempDir     string
		logger      *log.Logger
	}

	// Option configures an Engine during construction.
	Option func(*Engine)
)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTempDir overrides the temp-download directory
// (default <projectRoot>/.srcpm/temp/downloads).
func WithTempDir(dir string) Option {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

// New creates an Engine. suppliers are consulted in the given priority
// order. resolver may be nil when the engine is only used for direct fetch
// and remove calls; Update requires one.
func New(fs billy.Filesystem, st *store.Store, suppliers []supplier.Supplier, resolver Resolver, projectRoot string, opts ...Option) *Engine {
	e := &Engine{
		fs:          fs,
		store:       st,
		suppliers:   suppliers,
		resolver:    resolver,
		projectRoot: projectRoot,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "srcpm",
		})
	}
	if e.tempDir == "" {
		e.tempDir = e.fs.Join(e.projectRoot, ".srcpm", "temp", "downloads")
	}
	return e
}

// Store returns the package store the engine mutates.
func (e *Engine) Store() *store.Store { return e.store }

// SetResolver installs the resolver driving Update. Resolvers that diff
// against the store need the engine's store first, so this runs after New.
func (e *Engine) SetResolver(r Resolver) { e.resolver = r }

// reportAction announces one action to the operator. Conflicts and failures
// include the full issuer chain, one line per dependent.
func (e *Engine) reportAction(a Action) {
	switch a.Kind {
	case ActionFetch:
		e.logger.Info("fetch", "package", a.ID, "version", a.Version, "placement", a.Location)
	case ActionRemove:
		e.logger.Info("remove", "package", a.ID, "version", a.Pack.Version, "path", a.Pack.Path)
	case ActionConflict:
		e.logger.Error("conflicting requirements", "package", a.ID)
		e.reportIssuers(a)
	case ActionFailure:
		e.logger.Error("no version satisfies the requirements", "package", a.ID)
		e.reportIssuers(a)
	}
}

// reportIssuers prints the dependents behind a conflict or failure in
// deterministic order.
func (e *Engine) reportIssuers(a Action) {
	deps := make([]string, 0, len(a.Issuers))
	for dep := range a.Issuers {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	for _, dep := range deps {
		e.logger.Error("required by", "dependent", dep, "constraint", a.Issuers[dep])
	}
}
