// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride allows tests to override the config directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var configDirOverride string

// userRootOverride allows tests to override the default user tier root.
var userRootOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
	userRootOverride = ""
}

// SetConfigDirOverride sets a custom config directory path. Primarily
// intended for testing to bypass os.UserHomeDir().
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetUserRootOverride sets a custom user tier root. Primarily intended for
// testing to bypass os.UserHomeDir().
func SetUserRootOverride(dir string) {
	userRootOverride = dir
}
