// SPDX-License-Identifier: MPL-2.0

// Package supplier provides access to external package sources. A Supplier
// resolves (id, constraint) pairs to concrete package metadata and retrieves
// the matching archive. Two implementations exist: RegistryClient for HTTP
// registries and DirSupplier for local mirror directories.
package supplier
