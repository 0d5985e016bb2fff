// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/srcpm/srcpm/internal/issue"
)

const (
	// AppName is the application name, used for config and data directories.
	AppName = "srcpm"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// envPrefix is the prefix for environment variable overrides (SRCPM_*).
	envPrefix = "SRCPM"
)

// Config holds the tool configuration: where the placement tiers live, which
// suppliers to consult and in what order, and where transient downloads go.
type Config struct {
	// SystemRoot is the system-wide placement tier root. Packages install
	// under <SystemRoot>/packages.
	SystemRoot string `mapstructure:"system_root"`

	// UserRoot is the user-wide placement tier root. Packages install under
	// <UserRoot>/packages.
	UserRoot string `mapstructure:"user_root"`

	// SearchPaths lists extra directories scanned for installed packages.
	// They participate in lookups but are never install targets.
	SearchPaths []string `mapstructure:"search_paths"`

	// Registries lists supplier endpoints in priority order. Entries are
	// either HTTP base URLs or "dir:<path>" local directory suppliers.
	Registries []string `mapstructure:"registries"`

	// TempDir overrides the per-project temp-download directory
	// (<projectRoot>/.srcpm/temp/downloads by default).
	TempDir string `mapstructure:"temp_dir"`

	// Verbose enables verbose output.
	Verbose bool `mapstructure:"verbose"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() (*Config, error) {
	userRoot, err := UserRootDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		SystemRoot: SystemRootDir(),
		UserRoot:   userRoot,
		Registries: []string{"https://registry.srcpm.dev"},
	}, nil
}

// Load reads the configuration from the given file path, or from the
// platform config directory when path is empty. A missing default config
// file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	defaults, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("system_root", defaults.SystemRoot)
	v.SetDefault("user_root", defaults.UserRoot)
	v.SetDefault("search_paths", defaults.SearchPaths)
	v.SetDefault("registries", defaults.Registries)
	v.SetDefault("temp_dir", defaults.TempDir)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	switch {
	case path != "":
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Omit --config to use the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid YAML").
				Wrap(err).
				BuildError()
		}
	default:
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		defaultPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(defaultPath) {
			v.SetConfigFile(defaultPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(defaultPath).
					WithSuggestion("Check that the file contains valid YAML").
					Wrap(err).
					BuildError()
			}
		}
		// No config file found: defaults apply, not an error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks constraints the mapstructure decode cannot express.
func (c *Config) validate() error {
	if c.SystemRoot == "" {
		return fmt.Errorf("system_root must not be empty")
	}
	if c.UserRoot == "" {
		return fmt.Errorf("user_root must not be empty")
	}
	if len(c.Registries) == 0 {
		return issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Add at least one registry URL or dir: path to 'registries'").
			Wrap(fmt.Errorf("no registries configured")).
			BuildError()
	}
	return nil
}

// ConfigDir returns the srcpm configuration directory using platform
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application
// Support, and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// UserRootDir returns the default user-wide placement tier root,
// ~/.srcpm on all platforms.
func UserRootDir() (string, error) {
	if userRootOverride != "" {
		return userRootOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// SystemRootDir returns the default system-wide placement tier root:
// %ProgramData%\srcpm on Windows, /var/lib/srcpm elsewhere.
func SystemRootDir() string {
	if runtime.GOOS == "windows" {
		programData := os.Getenv("ProgramData")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, AppName)
	}
	return filepath.Join("/var", "lib", AppName)
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
