package testutil

import (
	"path/filepath"
	"testing"

	"qvcs-go/internal/database"
	"qvcs-go/internal/qvcs"
)

// NewTestDatabase creates a new in-memory SQLite database with all
// migrations applied. It is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewTestEngine creates an engine over a fresh test database. Its clock
// starts at FixedClock and only moves when the test advances it.
func NewTestEngine(t *testing.T, opts qvcs.Options) (*qvcs.Engine, *StubClock) {
	t.Helper()

	clock := FixedClock()
	e, err := qvcs.NewEngine(NewTestDatabase(t), qvcs.NewNopLogger(), clock, opts)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e, clock
}

// NewTestFileDatabase creates a migrated SQLite database in a temp
// directory. Unlike the in-memory database it allows concurrent
// connections.
func NewTestFileDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "qvcs.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
