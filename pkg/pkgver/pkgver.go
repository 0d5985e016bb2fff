// SPDX-License-Identifier: MPL-2.0

// Package pkgver handles the version vocabulary of the package cache.
//
// Two kinds of version strings exist: concrete release versions, which are
// semantic versions and immutable once published, and branch versions, which
// track a mutable upstream reference and carry a leading '~' marker (e.g.
// "~master"). Branch versions are eligible for forced re-fetch; release
// versions never are.
package pkgver

import (
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// BranchPrefix marks a version string as tracking an upstream branch.
	BranchPrefix = "~"

	// Wildcard matches every installed version in a removal request.
	Wildcard = "*"
)

// IsBranch reports whether v tracks a mutable upstream branch.
func IsBranch(v string) bool {
	return strings.HasPrefix(v, BranchPrefix)
}

// PathSuffix returns v without the leading branch marker, suitable for
// building install paths and temp-file names of the form "<id>-<suffix>".
func PathSuffix(v string) string {
	return strings.TrimPrefix(v, BranchPrefix)
}

// IsValidRelease reports whether v is a well-formed release version.
// Branch versions are never valid releases.
func IsValidRelease(v string) bool {
	if IsBranch(v) {
		return false
	}
	return semver.IsValid(normalize(v))
}

// Compare orders two version strings. Branch versions sort below any release
// version (a branch head is an unknown quantity, so releases win); two branch
// versions compare lexically on the branch name; two releases compare by
// semantic version precedence.
func Compare(a, b string) int {
	aBranch, bBranch := IsBranch(a), IsBranch(b)
	switch {
	case aBranch && bBranch:
		return strings.Compare(a, b)
	case aBranch:
		return -1
	case bBranch:
		return 1
	default:
		return semver.Compare(normalize(a), normalize(b))
	}
}

// MatchesConstraint reports whether a concrete version satisfies a constraint
// expression. Supported forms:
//
//	""            any version
//	"*"           any version
//	"~branch"     exact branch match
//	"1.2.3"       exact release match
//	"=1.2.3"      exact release match
//	"^1.2.3"      >=1.2.3 within the same major version
//	"~1.2.3"      >=1.2.3 within the same major.minor version
//	">=1.2.3"     and the other relational operators >, <=, <
//
// A '~' followed by a digit (or "v" plus a digit) is the tilde range
// operator; any other '~' prefix is a branch constraint. Malformed versions
// or constraints never match.
func MatchesConstraint(version, constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == Wildcard {
		return true
	}

	if isBranchConstraint(constraint) {
		return version == constraint
	}

	// Branch-version installs only ever satisfy branch constraints.
	if IsBranch(version) {
		return false
	}

	op, want := splitConstraint(constraint)
	v, w := normalize(version), normalize(want)
	if !semver.IsValid(v) || !semver.IsValid(w) {
		return false
	}

	cmp := semver.Compare(v, w)
	switch op {
	case "", "=":
		return cmp == 0
	case "^":
		return cmp >= 0 && semver.Major(v) == semver.Major(w)
	case "~":
		return cmp >= 0 && semver.MajorMinor(v) == semver.MajorMinor(w)
	case ">=":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	default:
		return false
	}
}

// isBranchConstraint distinguishes "~master" (branch) from "~1.2.3" (tilde
// range). A tilde followed by a digit, or by "v" plus a digit, is a range.
func isBranchConstraint(c string) bool {
	if !strings.HasPrefix(c, BranchPrefix) {
		return false
	}
	rest := strings.TrimPrefix(c, BranchPrefix)
	rest = strings.TrimPrefix(rest, "v")
	return rest == "" || rest[0] < '0' || rest[0] > '9'
}

// splitConstraint separates the leading operator from the version part.
func splitConstraint(c string) (op, version string) {
	for _, candidate := range []string{">=", "<=", ">", "<", "=", "^", "~"} {
		if strings.HasPrefix(c, candidate) {
			return candidate, strings.TrimSpace(strings.TrimPrefix(c, candidate))
		}
	}
	return "", c
}

// normalize ensures the "v" prefix required by the semver package.
func normalize(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
