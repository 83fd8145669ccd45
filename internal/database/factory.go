package database

import (
	"fmt"
	"os"
	"path/filepath"

	"qvcs-go/internal/config"
)

// NewDatabaseFromConfig opens the store selected by the database config type.
// File-backed stores live at <data_dir>/<serverID>.db. The memory store is
// migrated on open; file stores are migrated explicitly.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, serverID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite", "sqlite-purego":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for %s database", cfg.Type)
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, serverID+".db")
		if cfg.Type == "sqlite-purego" {
			return NewPureGoSQLiteDatabase(dbPath)
		}
		return NewSQLiteDatabase(dbPath)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
