package qvcs

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBranch          = errors.New("unknown branch")
	ErrUnknownProject         = errors.New("unknown project")
	ErrPathNotFound           = errors.New("path not found")
	ErrRevisionNotFound       = errors.New("revision not found")
	ErrCorruptDeltaChain      = errors.New("corrupt delta chain")
	ErrAlreadyLocked          = errors.New("file is locked by another user")
	ErrNotLockHolder          = errors.New("caller does not hold the lock")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrReadOnlyBranch         = errors.New("branch is read-only")
	ErrAlreadyExists          = errors.New("name already exists")
	ErrUnknownTag             = errors.New("unknown tag")
	ErrTagNotMoveable         = errors.New("tag is not moveable")
	ErrNotPromotable          = errors.New("file is not promotable")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrSnapshotNotFound       = errors.New("snapshot not found")
)

// IsRetryable reports whether the operation that produced err may succeed
// if re-run against fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// MergeConflict describes a promotion that cannot be fast-forwarded. It is
// reported inside a PromotionResult rather than returned as an error;
// it implements error so callers may surface it as one.
type MergeConflict struct {
	FileID         int64
	ChildBranchID  int64
	ParentBranchID int64

	AncestorRevisionID int64
	ChildRevisionID    int64 // 0 when the child deleted the file
	ParentRevisionID   int64 // 0 when the parent deleted the file

	Ancestor []byte
	Child    []byte // nil when the child deleted the file
	Parent   []byte // nil when the parent deleted the file

	// ChildName and ParentName are set when both branches renamed or
	// moved the file.
	ChildName  *FileName
	ParentName *FileName
}

// ChildDeleted reports whether the conflict is a child-side delete
// against a parent-side modification.
func (c *MergeConflict) ChildDeleted() bool { return c.ChildRevisionID == 0 }

// ParentDeleted reports whether the parent deleted a file the child
// changed.
func (c *MergeConflict) ParentDeleted() bool { return c.ParentRevisionID == 0 && c.ChildRevisionID != 0 }

// NameDiverged reports whether the conflict is over the file's name or
// directory.
func (c *MergeConflict) NameDiverged() bool { return c.ChildName != nil && c.ParentName != nil }

func (c *MergeConflict) Error() string {
	switch {
	case c.ChildDeleted():
		return fmt.Sprintf("merge conflict on file %d: deleted on branch %d, modified on branch %d since revision %d",
			c.FileID, c.ChildBranchID, c.ParentBranchID, c.AncestorRevisionID)
	case c.ParentDeleted():
		return fmt.Sprintf("merge conflict on file %d: changed on branch %d, deleted on branch %d",
			c.FileID, c.ChildBranchID, c.ParentBranchID)
	case c.NameDiverged():
		return fmt.Sprintf("merge conflict on file %d: named %q on branch %d and %q on branch %d",
			c.FileID, c.ChildName.Name, c.ChildBranchID, c.ParentName.Name, c.ParentBranchID)
	}
	return fmt.Sprintf("merge conflict on file %d: revisions %d (branch %d) and %d (branch %d) diverge from %d",
		c.FileID, c.ChildRevisionID, c.ChildBranchID, c.ParentRevisionID, c.ParentBranchID, c.AncestorRevisionID)
}
