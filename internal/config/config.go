package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for a qvcs server.
type Config struct {
	ServerID   string           `toml:"server_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Revisions  RevisionsConfig  `toml:"revisions"`
	Promotion  PromotionConfig  `toml:"promotion"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Vaults     []VaultConfig    `toml:"vaults"`
}

// RevisionsConfig tunes how revision data is stored and written.
type RevisionsConfig struct {
	Compression           string `toml:"compression"` // "snappy" (default) or "none"
	RequireLock           bool   `toml:"require_lock"`
	HydrationCacheEntries int    `toml:"hydration_cache_entries,omitempty"`
}

// PromotionConfig holds promotion filters.
type PromotionConfig struct {
	Exclude []string `toml:"exclude"`
}

// FilesystemConfig holds settings for importing work trees.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint points the vault at an S3-compatible store instead of AWS.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the project store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "sqlite-purego" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // not used for type=memory
}

// NewConfig creates a new Config with the provided values and defaults
// for the store and revision settings.
func NewConfig(serverID, baseDir string) *Config {
	return &Config{
		ServerID: serverID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Revisions: RevisionsConfig{
			Compression: "snappy",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields each component needs before anything is
// opened. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerID == "" {
		errs = append(errs, errors.New("server_id is required"))
	}

	switch c.Database.Type {
	case "sqlite", "sqlite-purego":
		if c.Database.DataDir == "" {
			errs = append(errs, fmt.Errorf("database.data_dir is required for type %q", c.Database.Type))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.type %q is not one of sqlite, sqlite-purego, memory", c.Database.Type))
	}

	switch c.Revisions.Compression {
	case "", "none", "snappy":
	default:
		errs = append(errs, fmt.Errorf("revisions.compression %q is not one of none, snappy", c.Revisions.Compression))
	}
	if c.Revisions.HydrationCacheEntries < 0 {
		errs = append(errs, errors.New("revisions.hydration_cache_entries must not be negative"))
	}

	names := make(map[string]bool)
	for i, v := range c.Vaults {
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("vaults[%d]: name is required", i))
		} else if names[v.Name] {
			errs = append(errs, fmt.Errorf("vaults[%d]: duplicate name %q", i, v.Name))
		}
		names[v.Name] = true

		switch v.Type {
		case "memory":
		case "filesystem":
			if v.FSVaultRoot == "" {
				errs = append(errs, fmt.Errorf("vault %q: fs_vault_root is required", v.Name))
			}
		case "s3":
			if v.S3Bucket == "" {
				errs = append(errs, fmt.Errorf("vault %q: s3_bucket is required", v.Name))
			}
			if (v.S3AccessKeyID == "") != (v.S3SecretAccessKey == "") {
				errs = append(errs, fmt.Errorf("vault %q: s3_access_key_id and s3_secret_access_key go together", v.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("vault %q: unknown type %q", v.Name, v.Type))
		}
	}
	return errors.Join(errs...)
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
