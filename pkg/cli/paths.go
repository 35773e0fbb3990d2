package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvConfig names the environment variable that overrides the
	// config file location.
	EnvConfig = "SPEAKERID_CONFIG"

	appDirName     = "speakerid"
	configFileName = "config.yaml"
)

// DefaultConfigPath resolves the config file location: the EnvConfig
// override if set, otherwise <user config dir>/speakerid/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cli: resolve config directory: %w", err)
	}
	return filepath.Join(base, appDirName, configFileName), nil
}

// DataDir returns the default directory for profile databases,
// <user config dir>/speakerid/profiles.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cli: resolve config directory: %w", err)
	}
	return filepath.Join(base, appDirName, "profiles"), nil
}

// SamplesDir returns the default directory for locally archived
// enrollment samples, <user config dir>/speakerid/samples.
func SamplesDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cli: resolve config directory: %w", err)
	}
	return filepath.Join(base, appDirName, "samples"), nil
}
