// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"context"
	"io"
)

type (
	// Description is the metadata a supplier reports for a package matching
	// a version constraint. Version is always a concrete version string
	// (release or branch), never a constraint.
	Description struct {
		Name    string // Package identifier
		Version string // Concrete version the supplier resolved the constraint to
		SHA256  string // Hex-encoded archive digest (optional; verified when present)
	}

	// Supplier is an external source of package metadata and archives.
	// Suppliers are consulted in configured priority order: a Describe
	// failure is recoverable (the caller tries the next supplier), while a
	// Retrieve failure is not — it propagates and aborts the fetch.
	Supplier interface {
		// Source identifies the supplier for logging and install metadata.
		Source() string

		// Describe resolves (id, constraint) to package metadata, or fails
		// when the supplier does not know the package or is unreachable.
		Describe(ctx context.Context, id, constraint string) (*Description, error)

		// Retrieve writes the archive matching (id, constraint) to w.
		Retrieve(ctx context.Context, w io.Writer, id, constraint string) error
	}
)
