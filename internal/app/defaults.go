package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - QVCS_CONFIG_PATH: config file location (default: ~/.config/qvcs.toml)
//   - QVCS_HOME: base directory for server data (default: ~/.local/share/qvcs)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking QVCS_CONFIG_PATH first,
// then falling back to ~/.config/qvcs.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("QVCS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "qvcs.toml"), nil
}

// getBaseDir returns the server data directory, checking QVCS_HOME first,
// then falling back to the XDG default ~/.local/share/qvcs.
func getBaseDir() (string, error) {
	if path := os.Getenv("QVCS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "qvcs"), nil
}
