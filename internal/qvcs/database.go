package qvcs

import (
	"context"
	"time"
)

// Database is the durable store behind the engine. Update runs fn inside
// a single serialisable read-write transaction: fn's writes commit
// together when it returns nil and are discarded otherwise. View runs fn
// against a consistent snapshot and never commits.
type Database interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx exposes the point lookups, range scans and inserts the engine needs.
// Find/Latest/Newest methods return (nil, nil) when nothing matches.
// Ceiling arguments are inclusive commit ids; pass NoCeiling for no bound.
type Tx interface {
	// Commits
	InsertCommit(ctx context.Context, author, message string, at time.Time) (*Commit, error)
	FindCommit(ctx context.Context, id int64) (*Commit, error)
	NewestCommit(ctx context.Context) (*Commit, error)
	ListCommits(ctx context.Context, limit int) ([]*Commit, error)

	// Projects and identities
	InsertProject(ctx context.Context, name string, commitID int64) (*Project, error)
	SetProjectRoot(ctx context.Context, projectID, directoryID int64) error
	FindProject(ctx context.Context, id int64) (*Project, error)
	FindProjectByName(ctx context.Context, name string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	InsertDirectory(ctx context.Context, projectID int64) (int64, error)
	InsertFile(ctx context.Context, projectID, commitID int64) (int64, error)
	FindFileProject(ctx context.Context, fileID int64) (int64, error)

	// Branches
	InsertBranch(ctx context.Context, b *Branch) (*Branch, error)
	FindBranch(ctx context.Context, id int64) (*Branch, error)
	FindBranchByName(ctx context.Context, projectID int64, name string) (*Branch, error)
	ListBranches(ctx context.Context, projectID int64) ([]*Branch, error)
	ListLiveChildBranches(ctx context.Context, branchID int64) ([]*Branch, error)
	MarkBranchDeleted(ctx context.Context, branchID, commitID int64) error

	// Directory locations
	InsertDirectoryLocation(ctx context.Context, loc *DirectoryLocation) (*DirectoryLocation, error)
	LatestDirectoryLocation(ctx context.Context, directoryID, branchID, ceiling int64) (*DirectoryLocation, error)
	DirectoryIDsByParent(ctx context.Context, parentDirectoryID, branchID, ceiling int64) ([]int64, error)

	// File names
	InsertFileName(ctx context.Context, name *FileName) (*FileName, error)
	LatestFileName(ctx context.Context, fileID, branchID, ceiling int64) (*FileName, error)
	// FirstUnpromotedFileName returns the oldest name row branchID holds
	// for fileID that has not been promoted, or nil.
	FirstUnpromotedFileName(ctx context.Context, fileID, branchID int64) (*FileName, error)
	FileIDsByDirectory(ctx context.Context, directoryID, branchID, ceiling int64) ([]int64, error)
	FileIDsNamedOnBranch(ctx context.Context, branchID int64) ([]int64, error)
	MarkFileNamesPromoted(ctx context.Context, fileID, branchID, commitID int64) error

	// File revisions. LatestFileName and NewestRevision skip rows promoted at
	// or below the ceiling.
	InsertRevision(ctx context.Context, rev *FileRevision) (*FileRevision, error)
	FindRevision(ctx context.Context, id int64) (*FileRevision, error)
	NewestRevision(ctx context.Context, fileID, branchID, ceiling int64) (*FileRevision, error)
	LineageTip(ctx context.Context, fileID, branchID int64) (*FileRevision, error)
	ListRevisions(ctx context.Context, fileID, branchID, ceiling int64) ([]*FileRevision, error)
	DemoteRevision(ctx context.Context, id, reverseDeltaID int64, data []byte, compression string) (bool, error)
	MarkRevisionsPromoted(ctx context.Context, fileID, branchID, commitID int64) error
	FileIDsRevisedOnBranch(ctx context.Context, branchID int64) ([]int64, error)

	// Promotion candidate cache
	UpsertPromotionCandidate(ctx context.Context, fileID, branchID, commitID int64) error
	DeletePromotionCandidate(ctx context.Context, fileID, branchID int64) error
	DeleteBranchPromotionCandidates(ctx context.Context, branchID int64) error
	ListPromotionCandidates(ctx context.Context, branchID int64) ([]*PromotionCandidate, error)

	// Locks
	FindLock(ctx context.Context, fileID, branchID int64) (*FileLock, error)
	InsertLock(ctx context.Context, lock *FileLock) error
	DeleteLock(ctx context.Context, fileID, branchID int64) error
	ListLocks(ctx context.Context, branchID int64) ([]*FileLock, error)

	// Tags
	InsertTag(ctx context.Context, tag *Tag) (*Tag, error)
	FindTag(ctx context.Context, id int64) (*Tag, error)
	FindTagByText(ctx context.Context, branchID int64, text string) (*Tag, error)
	ListTags(ctx context.Context, branchID int64) ([]*Tag, error)
	UpdateTagCommit(ctx context.Context, tagID, commitID int64) error
}

// Operation records one administrative command run against a Store.
type Operation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time // zero while the operation is running
	Operation  string
	Parameters string
	Status     string
}

// Store is a Database with the lifecycle hooks the application layer uses:
// schema checks, the operation log and point-in-time snapshots.
type Store interface {
	Database
	CheckMigrations() error
	CreateOperation(ctx context.Context, operation, parameters string, at time.Time) (*Operation, error)
	FinishOperation(ctx context.Context, id int64, status string, at time.Time) error
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
	MaxOperationID(ctx context.Context) (int64, error)
	// BackupTo writes a consistent copy of the store to destPath.
	BackupTo(ctx context.Context, destPath string) error
}
