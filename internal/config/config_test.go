package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ServerID: "test-server-abc",
		BaseDir:  "/home/user/.local/share/qvcs",
		LogDir:   "/home/user/.local/share/qvcs/log",
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/qvcs/db"},
		Revisions: RevisionsConfig{
			Compression:           "none",
			RequireLock:           true,
			HydrationCacheEntries: 128,
		},
		Promotion: PromotionConfig{Exclude: []string{"*.tmp"}},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", ".git"},
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ServerID != original.ServerID {
		t.Errorf("ServerID = %q, want %q", got.ServerID, original.ServerID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Revisions != original.Revisions {
		t.Errorf("Revisions = %+v, want %+v", got.Revisions, original.Revisions)
	}
	if len(got.Promotion.Exclude) != 1 || got.Promotion.Exclude[0] != "*.tmp" {
		t.Errorf("Promotion.Exclude = %v, want [*.tmp]", got.Promotion.Exclude)
	}
	if len(got.Vaults) != 1 {
		t.Fatalf("len(Vaults) = %d, want 1", len(got.Vaults))
	}
	if got.Vaults[0].Type != "filesystem" {
		t.Errorf("Vault.Type = %q, want %q", got.Vaults[0].Type, "filesystem")
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestManager_Read_TOMLKeys(t *testing.T) {
	in := `
server_id = "srv"
base_dir = "/srv/qvcs"

[database]
type = "sqlite-purego"
data_dir = "/srv/qvcs/db"

[revisions]
compression = "snappy"
require_lock = true

[promotion]
exclude = ["build/**", "*.bak"]

[[vaults]]
type = "s3"
name = "offsite"
s3_bucket = "qvcs-snapshots"
s3_region = "us-east-1"
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Database.Type != "sqlite-purego" {
		t.Errorf("Database.Type = %q, want sqlite-purego", cfg.Database.Type)
	}
	if !cfg.Revisions.RequireLock {
		t.Error("Revisions.RequireLock = false, want true")
	}
	if len(cfg.Promotion.Exclude) != 2 {
		t.Errorf("len(Promotion.Exclude) = %d, want 2", len(cfg.Promotion.Exclude))
	}
	if len(cfg.Vaults) != 1 || cfg.Vaults[0].S3Bucket != "qvcs-snapshots" {
		t.Errorf("Vaults = %+v", cfg.Vaults)
	}
}

func TestManager_Read_Invalid(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("server_id = ")); err == nil {
		t.Fatal("Read() expected error for malformed TOML")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("server-1", "/data/qvcs")

	if cfg.ServerID != "server-1" {
		t.Errorf("ServerID = %q, want %q", cfg.ServerID, "server-1")
	}
	if cfg.BaseDir != "/data/qvcs" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/qvcs")
	}
	if cfg.LogDir != "/data/qvcs/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/qvcs/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/qvcs/db" {
		t.Errorf("Database = %+v, want sqlite at /data/qvcs/db", cfg.Database)
	}
	if cfg.Revisions.Compression != "snappy" {
		t.Errorf("Revisions.Compression = %q, want snappy", cfg.Revisions.Compression)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "qvcs.toml")
		cfg := NewConfig("s1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "qvcs.toml")
		cfg := NewConfig("s1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "qvcs.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.ServerID != "read-test" {
			t.Errorf("ServerID = %q, want %q", got.ServerID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want memory", got.Database.Type)
		}
	})

	t.Run("rejects an invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "qvcs.toml")
		cfg := NewConfig("s1", dir)
		cfg.Revisions.Compression = "zstd"
		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := ReadFromFile(path); err == nil || !strings.Contains(err.Error(), "zstd") {
			t.Errorf("ReadFromFile() error = %v, want compression complaint", err)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/qvcs.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string // substring of the error; empty means valid
	}{
		{"defaults", func(c *Config) {}, ""},
		{"memory database", func(c *Config) { c.Database = DatabaseConfig{Type: "memory"} }, ""},
		{"missing server id", func(c *Config) { c.ServerID = "" }, "server_id"},
		{"unknown database", func(c *Config) { c.Database.Type = "postgres" }, "postgres"},
		{"sqlite without data dir", func(c *Config) { c.Database.DataDir = "" }, "data_dir"},
		{"negative cache", func(c *Config) { c.Revisions.HydrationCacheEntries = -1 }, "hydration_cache_entries"},
		{"filesystem vault without root", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "filesystem", Name: "local"}}
		}, "fs_vault_root"},
		{"s3 vault without bucket", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "s3", Name: "remote"}}
		}, "s3_bucket"},
		{"s3 half credentials", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "s3", Name: "remote", S3Bucket: "b", S3AccessKeyID: "k"}}
		}, "go together"},
		{"duplicate vault names", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "memory", Name: "a"}, {Type: "memory", Name: "a"}}
		}, "duplicate"},
		{"unknown vault type", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "ftp", Name: "a"}}
		}, "ftp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("s1", t.TempDir())
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
