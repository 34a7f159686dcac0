package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default rule file name.
const DefaultConfigFile = ".topshop"

// ErrConfigNotFound is returned when the rule file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a rule file and merges it onto the built-in rules.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers decide whether that is fatal based on whether the path was
// given explicitly.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes rule file contents and merges them onto the
// built-in rules. The result is validated.
func ParseConfig(data []byte) (*File, error) {
	var loaded File
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cf := DefaultFile()
	cf.Platform.Merge(loaded.Platform)
	cf.Category.Merge(loaded.Category)
	cf.Defaults = loaded.Defaults
	for host, sc := range loaded.Sites {
		cf.Sites[normalizeSiteKey(host)] = sc
	}

	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

// FindConfigFile searches for the rule file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .topshop in the current directory
// 3. Look for .topshop in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the rule file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
