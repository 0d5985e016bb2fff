// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates no supplier can describe a package, or no
	// installed package matches a removal request.
	ErrNotFound = errors.New("package not found")

	// ErrAmbiguous indicates a removal request without an explicit version
	// matched more than one installed version.
	ErrAmbiguous = errors.New("ambiguous package version")

	// ErrChecksumMismatch indicates a downloaded archive does not match the
	// checksum its supplier advertised.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

type (
	// NotFoundError reports that a package (optionally narrowed by a version
	// constraint) could not be located. It wraps ErrNotFound so callers can
	// use errors.Is for classification.
	NotFoundError struct {
		ID         string
		Constraint string
	}

	// AmbiguousVersionError reports that a removal request with an empty
	// version token matched multiple installed versions. An empty version is
	// only shorthand for "the one version present", so the caller must pick
	// one explicitly. Wraps ErrAmbiguous.
	AmbiguousVersionError struct {
		ID       string
		Versions []string
	}

	// ChecksumError carries both hash values of a failed archive
	// verification. Wraps ErrChecksumMismatch.
	ChecksumError struct {
		Resource string
		Expected string
		Got      string
	}
)

// Error formats the lookup failure, including the constraint when present.
func (e *NotFoundError) Error() string {
	if e.Constraint != "" && e.Constraint != "*" {
		return fmt.Sprintf("package %s (constraint %s) not found", e.ID, e.Constraint)
	}
	return fmt.Sprintf("package %s not found", e.ID)
}

// Unwrap returns ErrNotFound so callers can use errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error lists every matching version so the operator can disambiguate.
func (e *AmbiguousVersionError) Error() string {
	return fmt.Sprintf("multiple versions of %s installed (%s); specify one explicitly or use %q to remove all",
		e.ID, strings.Join(e.Versions, ", "), "*")
}

// Unwrap returns ErrAmbiguous so callers can use errors.Is.
func (e *AmbiguousVersionError) Unwrap() error { return ErrAmbiguous }

// Error shows both hash values for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s",
		e.Resource, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
