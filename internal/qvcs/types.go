package qvcs

import (
	"math"
	"time"
)

// NoCeiling is the commit ceiling used for live (untruncated) views.
const NoCeiling int64 = math.MaxInt64

// BranchType determines how a branch sees its parent's history.
type BranchType int

const (
	// BranchTypeTrunk is the root branch of a project. It has no parent.
	BranchTypeTrunk BranchType = iota + 1
	// BranchTypeFeature is translucent: parent changes made after the
	// branch was created remain visible until shadowed locally.
	BranchTypeFeature
	// BranchTypeRelease is opaque: parent rows are capped at the commit the
	// branch was created at.
	BranchTypeRelease
	// BranchTypeReadOnlyTag is a read-only view of its parent as of a tag.
	BranchTypeReadOnlyTag
	// BranchTypeReadOnlyDate is a read-only view of its parent as of a point in time.
	BranchTypeReadOnlyDate
)

func (t BranchType) String() string {
	switch t {
	case BranchTypeTrunk:
		return "trunk"
	case BranchTypeFeature:
		return "feature"
	case BranchTypeRelease:
		return "release"
	case BranchTypeReadOnlyTag:
		return "read-only-tag"
	case BranchTypeReadOnlyDate:
		return "read-only-date"
	default:
		return "unknown"
	}
}

// ReadOnly reports whether writes to a branch of this type are refused.
func (t BranchType) ReadOnly() bool {
	return t == BranchTypeReadOnlyTag || t == BranchTypeReadOnlyDate
}

// ParseBranchType converts a user supplied name to a BranchType.
func ParseBranchType(s string) (BranchType, bool) {
	for _, t := range []BranchType{BranchTypeTrunk, BranchTypeFeature, BranchTypeRelease, BranchTypeReadOnlyTag, BranchTypeReadOnlyDate} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// MutationReason records why a directory or file name row was written.
type MutationReason int

const (
	ReasonCreate MutationReason = iota + 1
	ReasonRename
	ReasonMove
	ReasonDelete
	ReasonUndelete
	ReasonPromote
)

func (r MutationReason) String() string {
	switch r {
	case ReasonCreate:
		return "create"
	case ReasonRename:
		return "rename"
	case ReasonMove:
		return "move"
	case ReasonDelete:
		return "delete"
	case ReasonUndelete:
		return "undelete"
	case ReasonPromote:
		return "promote"
	default:
		return "unknown"
	}
}

// Commit is one entry in the global, strictly increasing commit ledger.
type Commit struct {
	ID          int64
	Author      string
	Message     string
	CommittedAt time.Time
}

// Project groups a branch tree and a directory tree under one name.
type Project struct {
	ID              int64
	Name            string
	RootDirectoryID int64
	CommitID        int64
}

// Branch is a node in a project's branch tree.
type Branch struct {
	ID             int64
	ProjectID      int64
	Name           string
	ParentBranchID int64 // 0 for the trunk
	Type           BranchType
	CommitID       int64 // commit the branch was created at
	TagID          int64 // read-only tag views only
	ViewCommitID   int64 // read-only date views only
	Deleted        bool
	DeletedCommit  int64
}

// Scope is one entry of a resolved ancestry: the rows of BranchID with
// commit ids at or below Ceiling are visible.
type Scope struct {
	Branch  *Branch
	Ceiling int64
}

// DirectoryLocation is one append-only mutation row for a logical
// directory. Rows are never updated, so CommitID is both the insert and
// the last-update commit of the state the row describes.
type DirectoryLocation struct {
	ID                int64
	DirectoryID       int64
	ParentDirectoryID int64 // 0 for a project root
	BranchID          int64
	Name              string
	CommitID          int64
	Reason            MutationReason
	Deleted           bool
}

// FileName is one append-only mutation row for a file's name and
// containing directory.
type FileName struct {
	ID          int64
	FileID      int64
	DirectoryID int64
	BranchID    int64
	Name        string
	CommitID    int64
	Reason      MutationReason
	Deleted     bool
	Promoted    bool
	PromotedBy  int64 // commit that promoted the row, or 0
}

// DeleteCommitID returns the commit that deleted the file, or 0.
func (f *FileName) DeleteCommitID() int64 {
	if f.Deleted {
		return f.CommitID
	}
	return 0
}

// FileRevision is one version of a file's content on a branch. Tip rows
// hold the full (possibly compressed) content. Demoted rows hold a
// script that rebuilds their content from ReverseDeltaRevisionID.
type FileRevision struct {
	ID                     int64
	FileID                 int64
	BranchID               int64
	AncestorRevisionID     int64
	ReverseDeltaRevisionID int64
	CommitID               int64
	Author                 string
	Description            string
	Compression            string
	RawSize                int64
	Digest                 []byte
	Data                   []byte // nil when loaded as a header only
	Promoted               bool
	PromotedBy             int64 // commit that promoted the row, or 0
}

// IsTip reports whether the revision stores full content.
func (r *FileRevision) IsTip() bool { return r.ReverseDeltaRevisionID == 0 }

// PromotionCandidate is an advisory cache row marking a file as possibly
// promotable from BranchID to its parent.
type PromotionCandidate struct {
	FileID   int64
	BranchID int64
	CommitID int64
}

// FileLock records exclusive intent to modify a file lineage on a branch.
type FileLock struct {
	FileID   int64
	BranchID int64
	User     string
	LockedAt time.Time
}

// Tag names a commit on a branch.
type Tag struct {
	ID       int64
	BranchID int64
	Text     string
	CommitID int64
	Moveable bool
}

// DirectoryEntry is one visible child of a directory.
type DirectoryEntry struct {
	Name        string
	IsDirectory bool
	DirectoryID int64 // directories only
	FileID      int64 // files only
}
