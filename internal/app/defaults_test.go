package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("QVCS_CONFIG_PATH", "/custom/qvcs.toml")
		t.Setenv("QVCS_HOME", "/srv/qvcs")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/qvcs.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/qvcs.toml")
		}
		if defaults["base_dir"] != "/srv/qvcs" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/srv/qvcs")
		}
		if defaults["log_dir"] != "/srv/qvcs/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/srv/qvcs/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("QVCS_CONFIG_PATH", "")
		t.Setenv("QVCS_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "qvcs.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "qvcs")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
		if defaults["log_dir"] != filepath.Join(wantBase, "log") {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], filepath.Join(wantBase, "log"))
		}
	})
}
