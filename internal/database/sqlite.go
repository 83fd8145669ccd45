package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"qvcs-go/internal/database/migrations"
	"qvcs-go/internal/database/sqlc"
	"qvcs-go/internal/qvcs"
)

// SQLiteDatabase implements qvcs.Store on SQLite. Write transactions begin
// IMMEDIATE, so SQLite itself serialises writers.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	dialect migrations.Dialect
}

// NewSQLiteDatabase opens a database with the cgo driver (mattn/go-sqlite3).
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return newSQLiteDatabase(db, path, migrations.DialectCGo), nil
}

// NewPureGoSQLiteDatabase opens a database with the cgo-free driver
// (modernc.org/sqlite) in WAL mode.
func NewPureGoSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenPureGoConnection(path)
	if err != nil {
		return nil, err
	}
	return newSQLiteDatabase(db, path, migrations.DialectPureGo), nil
}

// NewSQLiteDatabaseFromDB wraps a connection opened by OpenConnection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return newSQLiteDatabase(db, "", migrations.DialectCGo)
}

func newSQLiteDatabase(db *sql.DB, path string, dialect migrations.Dialect) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
		dialect: dialect,
	}
}

// OpenConnection opens and configures a mattn/go-sqlite3 connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_txlock=immediate&_foreign_keys=1&_busy_timeout=5000"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenPureGoConnection opens and configures a modernc.org/sqlite connection.
func OpenPureGoConnection(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Update runs fn in a write transaction and commits if fn returns nil.
func (s *SQLiteDatabase) Update(ctx context.Context, fn func(qvcs.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrapBusy(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{q: s.queries.WithTx(tx)}); err != nil {
		return s.wrapBusy(err)
	}
	if err := tx.Commit(); err != nil {
		return s.wrapBusy(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLiteDatabase) View(ctx context.Context, fn func(qvcs.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrapBusy(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback()

	return s.wrapBusy(fn(&sqliteTx{q: s.queries.WithTx(tx)}))
}

// wrapBusy reports lock contention that outlived busy_timeout as a
// retryable concurrent modification.
func (s *SQLiteDatabase) wrapBusy(err error) error {
	if err == nil || errors.Is(err, qvcs.ErrConcurrentModification) {
		return err
	}
	var ce sqlite3.Error
	if errors.As(err, &ce) && (ce.Code == sqlite3.ErrBusy || ce.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", qvcs.ErrConcurrentModification, err)
	}
	var pe *moderncsqlite.Error
	if errors.As(err, &pe) {
		if code := pe.Code() & 0xff; code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED {
			return fmt.Errorf("%w: %w", qvcs.ErrConcurrentModification, err)
		}
	}
	return err
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string, at time.Time) (*qvcs.Operation, error) {
	op, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		StartedAt:  at.UTC(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return toOperation(op), nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string, at time.Time) error {
	err := s.queries.FinishOperation(ctx, sqlc.FinishOperationParams{
		FinishedAt: sql.NullTime{Time: at.UTC(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*qvcs.Operation, error) {
	ops, err := s.queries.ListOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	result := make([]*qvcs.Operation, len(ops))
	for i := range ops {
		result[i] = toOperation(ops[i])
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID(ctx context.Context) (int64, error) {
	id, err := s.queries.GetMaxOperationID(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

func toOperation(op sqlc.Operation) *qvcs.Operation {
	out := &qvcs.Operation{
		ID:         op.ID,
		StartedAt:  op.StartedAt,
		Operation:  op.Operation,
		Parameters: op.Parameters,
		Status:     op.Status,
	}
	if op.FinishedAt.Valid {
		out.FinishedAt = op.FinishedAt.Time
	}
	return out
}

// DB returns the underlying connection pool.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.dialect)
}

// SchemaStatus reports the schema version next to the latest one.
func (s *SQLiteDatabase) SchemaStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db, s.dialect)
}

// MigrateUp applies pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db, s.dialect)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements qvcs.Store
var _ qvcs.Store = (*SQLiteDatabase)(nil)
