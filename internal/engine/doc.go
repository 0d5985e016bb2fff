// SPDX-License-Identifier: MPL-2.0

// Package engine implements the reconciliation core of srcpm: the update
// loop that converges installed packages toward the resolver's required
// state, the fetch pipeline that acquires archives from suppliers and
// installs them atomically, and the removal engine with per-package failure
// isolation. The resolver is an external oracle re-queried every round; a
// per-run processed set guarantees termination even when the oracle's view
// lags the filesystem.
package engine
