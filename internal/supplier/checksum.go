// SPDX-License-Identifier: MPL-2.0

package supplier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/srcpm/srcpm/internal/issue"
)

// ComputeHash streams r through SHA256 and returns the lowercase
// hex-encoded digest.
func ComputeHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify computes the SHA256 digest of r and compares it with expectedHash
// (case-insensitive). Returns a *issue.ChecksumError wrapping
// issue.ErrChecksumMismatch when they differ.
func Verify(r io.Reader, resource, expectedHash string) error {
	got, err := ComputeHash(r)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expectedHash) {
		return &issue.ChecksumError{
			Resource: resource,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}

	return nil
}
