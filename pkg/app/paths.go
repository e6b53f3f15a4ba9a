package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const configFile = "taskrun.yaml"

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/taskrun/taskrun.yaml → ~/.config/taskrun/taskrun.yaml → ./taskrun.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "taskrun", configFile))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "taskrun", configFile))
	}

	candidates = append(candidates, configFile)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the data directory used when the configuration
// file sets none explicitly and state must outlive the config directory.
// Uses $XDG_DATA_HOME/taskrun if set, otherwise ~/.local/share/taskrun.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "taskrun")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "taskrun")
}
