// SPDX-License-Identifier: MPL-2.0

// Package config loads the srcpm tool configuration: placement tier roots,
// supplier registries in priority order, extra search paths, and the
// temp-download override. Configuration comes from a YAML file in the
// platform config directory (overridable via --config) merged with
// SRCPM_* environment variables; defaults apply when no file exists.
package config
