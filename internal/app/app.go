package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"qvcs-go/internal/config"
	"qvcs-go/internal/database"
	qfs "qvcs-go/internal/fs"
	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/vault"
)

// SnapshotName is the vault item the store snapshot is uploaded under.
const SnapshotName = "db"

// QVCSApp is the application layer between the CLI and the engine.
// It constructs all dependencies from config, exposes operations that
// accept project, branch and path names, and manages the store lifecycle
// on Close.
type QVCSApp struct {
	cfg     *config.Config
	db      qvcs.Store
	vaults  []qvcs.Vault
	fsmgr   qfs.FilesystemManager
	engine  *qvcs.Engine
	logger  *slog.Logger
	clock   qvcs.Clock
	author  string
	op      *Operation
	logFile *os.File
}

// deps are the collaborators NewQVCSApp builds from config. Tests supply
// their own.
type deps struct {
	db      qvcs.Store
	vaults  []qvcs.Vault
	fsmgr   qfs.FilesystemManager
	logger  *slog.Logger
	logFile *os.File
	clock   qvcs.Clock
}

// NewQVCSApp creates a fully wired QVCSApp from the given config.
// operation names the CLI command being run (e.g. "CreateBranch") and
// author is recorded on every commit it makes. The caller must call Close
// when done.
func NewQVCSApp(ctx context.Context, cfg *config.Config, operation, author string) (*QVCSApp, error) {
	var vaults []qvcs.Vault
	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return nil, fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		vaults = append(vaults, v)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.ServerID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := qvcs.RealClock{}.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := newQVCSApp(ctx, cfg, deps{
		db:      db,
		vaults:  vaults,
		fsmgr:   qfs.NewOSFilesystemManager(cfg.Filesystem.Ignore),
		logger:  logger,
		logFile: logFile,
		clock:   qvcs.RealClock{},
	}, operation, author)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, err
	}
	return a, nil
}

func newQVCSApp(ctx context.Context, cfg *config.Config, d deps, operation, author string) (*QVCSApp, error) {
	if strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%w: author is required", qvcs.ErrInvalidRequest)
	}

	// Refuse to diverge from a newer snapshot held off the host.
	localMax, err := d.db.MaxOperationID(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking local operation log: %w", err)
	}
	for i, v := range d.vaults {
		remote, err := v.SnapshotVersion(ctx, cfg.ServerID, SnapshotName)
		if err != nil {
			return nil, fmt.Errorf("checking snapshot version in vault %d: %w", i, err)
		}
		if remote > localMax {
			return nil, fmt.Errorf("local database is behind vault %d (local=%d, remote=%d): restore the snapshot or re-initialize", i, localMax, remote)
		}
	}

	engine, err := qvcs.NewEngine(d.db, &slogAdapter{l: d.logger}, d.clock, qvcs.Options{
		Compression:           cfg.Revisions.Compression,
		RequireLock:           cfg.Revisions.RequireLock,
		HydrationCacheEntries: cfg.Revisions.HydrationCacheEntries,
		PromotionExclude:      cfg.Promotion.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return &QVCSApp{
		cfg:     cfg,
		db:      d.db,
		vaults:  d.vaults,
		fsmgr:   d.fsmgr,
		engine:  engine,
		logger:  d.logger,
		clock:   d.clock,
		author:  author,
		op:      NewOperation(operation, ""),
		logFile: d.logFile,
	}, nil
}

// Engine exposes the underlying engine for read paths the app does not wrap.
func (a *QVCSApp) Engine() *qvcs.Engine {
	return a.engine
}

// SetParameters records the raw command arguments on the operation.
func (a *QVCSApp) SetParameters(params string) {
	a.op.Parameters = params
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only store-mutating commands call it.
func (a *QVCSApp) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(ctx, a.op.Operation, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// mutate persists the operation and runs fn, marking the operation failed
// if fn does.
func (a *QVCSApp) mutate(ctx context.Context, fn func() error) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.op.Status = StatusError
		return err
	}
	return nil
}

// History returns the most recent operations, newest first.
func (a *QVCSApp) History(ctx context.Context, limit int) ([]*qvcs.Operation, error) {
	return a.db.ListOperations(ctx, limit)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, snapshots the
// store, and uploads the snapshot to every vault.
// For non-persisted operations: just closes the database.
func (a *QVCSApp) Close() error {
	ctx := context.Background()
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(ctx, a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}

		tmpPath, err := a.snapshot(ctx)
		if err != nil {
			errs = append(errs, err)
		}

		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}

		if tmpPath != "" {
			for i, v := range a.vaults {
				if err := a.uploadSnapshot(ctx, v, tmpPath, a.op.ID); err != nil {
					errs = append(errs, fmt.Errorf("vault %d: %w", i, err))
				}
			}
			os.Remove(tmpPath)
		}
	} else if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// snapshot writes a consistent copy of the store to a temp file and
// returns its path.
func (a *QVCSApp) snapshot(ctx context.Context) (string, error) {
	if len(a.vaults) == 0 {
		return "", nil
	}
	tmpFile, err := os.CreateTemp("", "qvcs-db-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating temp file for db snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	// VACUUM INTO refuses to overwrite an existing file
	os.Remove(tmpPath)

	if err := a.db.BackupTo(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshotting database: %w", err)
	}
	return tmpPath, nil
}

// uploadSnapshot opens the snapshot file and stores it in v.
func (a *QVCSApp) uploadSnapshot(ctx context.Context, v qvcs.Vault, path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db snapshot: %w", err)
	}

	if err := v.PutSnapshot(ctx, a.cfg.ServerID, SnapshotName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	a.logger.Info("snapshot uploaded", "version", version, "size", info.Size())
	return nil
}

// branch looks up a live branch by project and branch name.
func (a *QVCSApp) branch(ctx context.Context, projectName, branchName string) (*qvcs.Project, *qvcs.Branch, error) {
	p, err := a.engine.Project(ctx, projectName)
	if err != nil {
		return nil, nil, err
	}
	b, err := a.engine.Branch(ctx, p.ID, branchName)
	if err != nil {
		return nil, nil, err
	}
	return p, b, nil
}

// splitPath cleans a project path and returns its parent directory and
// final element.
func splitPath(p string) (string, string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", "", fmt.Errorf("%w: path %q names the project root", qvcs.ErrInvalidRequest, p)
	}
	return path.Dir(clean), path.Base(clean), nil
}
