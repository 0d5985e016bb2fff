// SPDX-License-Identifier: MPL-2.0

// Package issue defines the error taxonomy of the reconciliation core
// (not-found, ambiguous-version, checksum failures) and an actionable-error
// builder used by the CLI layer to render errors with fix suggestions.
package issue
