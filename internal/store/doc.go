// SPDX-License-Identifier: MPL-2.0

// Package store implements the tiered, location-aware package store. It
// tracks installed packages across the local, user-wide and system-wide
// placement tiers (plus read-only search paths), installs packages
// atomically from tar.gz archives, and rebuilds its in-memory index from
// per-package metadata files on demand. The filesystem is abstracted behind
// go-billy so tests run against an in-memory filesystem.
package store
