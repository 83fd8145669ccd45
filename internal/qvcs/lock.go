package qvcs

import (
	"context"
	"fmt"
)

// AcquireLock takes the exclusive lock on fileID's lineage on a branch.
// Acquiring a lock the user already holds returns the existing lock.
func (e *Engine) AcquireLock(ctx context.Context, branchID, fileID int64, user string) (*FileLock, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: lock requires a user", ErrInvalidRequest)
	}
	var out *FileLock
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		if _, err := t.visibleFileName(ctx, scopes, fileID); err != nil {
			return err
		}
		tip, err := t.tipRevision(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		if tip == nil {
			return fmt.Errorf("file %d: %w", fileID, ErrRevisionNotFound)
		}

		cur, err := t.tx.FindLock(ctx, fileID, b.ID)
		if err != nil {
			return fmt.Errorf("finding lock: %w", err)
		}
		if cur != nil {
			if cur.User != user {
				return fmt.Errorf("file %d held by %s: %w", fileID, cur.User, ErrAlreadyLocked)
			}
			out = cur
			return nil
		}

		out = &FileLock{FileID: fileID, BranchID: b.ID, User: user, LockedAt: e.clock.Now().UTC()}
		if err := t.tx.InsertLock(ctx, out); err != nil {
			return fmt.Errorf("inserting lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("lock acquired", "branch_id", branchID, "file_id", fileID, "user", user)
	return out, nil
}

// ReleaseLock drops a lock held by user. With override set any holder's
// lock is dropped.
func (e *Engine) ReleaseLock(ctx context.Context, branchID, fileID int64, user string, override bool) error {
	var holder string
	err := e.update(ctx, func(t *txn) error {
		if _, err := t.branch(ctx, branchID); err != nil {
			return err
		}
		cur, err := t.tx.FindLock(ctx, fileID, branchID)
		if err != nil {
			return fmt.Errorf("finding lock: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("file %d is not locked: %w", fileID, ErrNotLockHolder)
		}
		if cur.User != user && !override {
			return fmt.Errorf("file %d held by %s: %w", fileID, cur.User, ErrNotLockHolder)
		}
		holder = cur.User
		if err := t.tx.DeleteLock(ctx, fileID, branchID); err != nil {
			return fmt.Errorf("deleting lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if holder != user {
		e.logger.Warn("lock broken", "branch_id", branchID, "file_id", fileID, "holder", holder, "user", user)
	} else {
		e.logger.Info("lock released", "branch_id", branchID, "file_id", fileID, "user", user)
	}
	return nil
}

// LockHolder returns the lock on fileID's lineage on a branch, or nil.
func (e *Engine) LockHolder(ctx context.Context, branchID, fileID int64) (*FileLock, error) {
	var out *FileLock
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.tx.FindLock(ctx, fileID, branchID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("finding lock: %w", err)
	}
	return out, nil
}

// Locks lists the locks held on a branch.
func (e *Engine) Locks(ctx context.Context, branchID int64) ([]*FileLock, error) {
	var out []*FileLock
	err := e.view(ctx, func(t *txn) error {
		if _, err := t.branch(ctx, branchID); err != nil {
			return err
		}
		var err error
		out, err = t.tx.ListLocks(ctx, branchID)
		return err
	})
	return out, err
}
