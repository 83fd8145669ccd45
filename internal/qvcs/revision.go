package qvcs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"qvcs-go/internal/delta"
)

// tipRevision returns the newest revision of fileID on the nearest scope
// that has one, or nil. Revisions promoted by a commit at or below the
// scope's ceiling do not count.
func (t *txn) tipRevision(ctx context.Context, scopes []Scope, fileID int64) (*FileRevision, error) {
	for _, s := range scopes {
		rev, err := t.tx.NewestRevision(ctx, fileID, s.Branch.ID, s.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("finding newest revision: %w", err)
		}
		if rev != nil {
			return rev, nil
		}
	}
	return nil, nil
}

// appendRevision records content as the new tip of fileID's lineage on b
// under commit c. The previous tip of the same lineage is demoted in the
// same transaction: its data becomes a script rebuilding it from content.
// A non-zero base must equal the tip visible on b.
func (t *txn) appendRevision(ctx context.Context, b *Branch, fileID int64, c *Commit, content []byte, description string, base int64) (*FileRevision, error) {
	scopes, err := t.scopeOf(ctx, b.ID, NoCeiling)
	if err != nil {
		return nil, err
	}
	visible, err := t.tipRevision(ctx, scopes, fileID)
	if err != nil {
		return nil, err
	}
	if base != 0 && (visible == nil || visible.ID != base) {
		return nil, fmt.Errorf("%w: file %d tip is no longer revision %d", ErrConcurrentModification, fileID, base)
	}

	lineage, err := t.tx.LineageTip(ctx, fileID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("finding lineage tip: %w", err)
	}

	stored, tag, err := delta.Encode(content, t.e.opts.Compression)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	rev := &FileRevision{
		FileID:      fileID,
		BranchID:    b.ID,
		CommitID:    c.ID,
		Author:      c.Author,
		Description: description,
		Compression: tag,
		RawSize:     int64(len(content)),
		Digest:      sum[:],
		Data:        stored,
	}
	if visible != nil {
		rev.AncestorRevisionID = visible.ID
	}
	rev, err = t.tx.InsertRevision(ctx, rev)
	if err != nil {
		return nil, fmt.Errorf("inserting revision: %w", err)
	}

	if lineage != nil {
		old, err := t.literal(lineage)
		if err != nil {
			return nil, err
		}
		script, stag, err := delta.Encode(delta.Compute(content, old), t.e.opts.Compression)
		if err != nil {
			return nil, err
		}
		ok, err := t.tx.DemoteRevision(ctx, lineage.ID, rev.ID, script, stag)
		if err != nil {
			return nil, fmt.Errorf("demoting revision %d: %w", lineage.ID, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: revision %d is no longer the tip", ErrConcurrentModification, lineage.ID)
		}
		t.content.Add(lineage.ID, old)
	}
	t.content.Add(rev.ID, bytes.Clone(content))

	if err := t.markCandidate(ctx, b, fileID, c.ID); err != nil {
		return nil, err
	}

	t.e.logger.Debug("revision appended", "branch_id", b.ID, "file_id", fileID, "revision_id", rev.ID,
		"ancestor_id", rev.AncestorRevisionID, "raw_size", rev.RawSize, "compression", tag)
	return rev, nil
}

// checkLock enforces the lineage lock for a write by user. It reports
// whether user holds the lock.
func (t *txn) checkLock(ctx context.Context, fileID, branchID int64, user string, requireHeld bool) (bool, error) {
	lock, err := t.tx.FindLock(ctx, fileID, branchID)
	if err != nil {
		return false, fmt.Errorf("finding lock: %w", err)
	}
	if lock != nil {
		if lock.User != user {
			return false, fmt.Errorf("file %d locked by %s: %w", fileID, lock.User, ErrNotLockHolder)
		}
		return true, nil
	}
	if requireHeld {
		return false, fmt.Errorf("file %d is not locked: %w", fileID, ErrNotLockHolder)
	}
	return false, nil
}

// AppendRequest describes a new revision of an existing file.
type AppendRequest struct {
	BranchID    int64
	FileID      int64
	Content     []byte
	Author      string
	Description string
	// BaseRevisionID, when set, must be the tip the caller last saw.
	BaseRevisionID int64
}

// AppendRevision records a new revision on a branch. A lock held by the
// author is released on success.
func (e *Engine) AppendRevision(ctx context.Context, req AppendRequest) (*FileRevision, error) {
	var rev *FileRevision
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, req.BranchID)
		if err != nil {
			return err
		}
		if _, err := t.visibleFileName(ctx, scopes, req.FileID); err != nil {
			return err
		}
		tip, err := t.tipRevision(ctx, scopes, req.FileID)
		if err != nil {
			return err
		}
		if tip == nil {
			return fmt.Errorf("file %d: %w", req.FileID, ErrRevisionNotFound)
		}

		held, err := t.checkLock(ctx, req.FileID, b.ID, req.Author, e.opts.RequireLock)
		if err != nil {
			return err
		}

		c, err := t.newCommit(ctx, req.Author, describe(req.Description, fmt.Sprintf("revise file %d", req.FileID)))
		if err != nil {
			return err
		}
		rev, err = t.appendRevision(ctx, b, req.FileID, c, req.Content, req.Description, req.BaseRevisionID)
		if err != nil {
			return err
		}
		if held {
			if err := t.tx.DeleteLock(ctx, req.FileID, b.ID); err != nil {
				return fmt.Errorf("releasing lock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("revision appended", "branch_id", req.BranchID, "file_id", req.FileID, "revision_id", rev.ID)
	return rev, nil
}

// TipRevision returns the newest revision of fileID visible on a branch.
func (e *Engine) TipRevision(ctx context.Context, branchID, fileID, ceiling int64) (*FileRevision, error) {
	var out *FileRevision
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.tipRevision(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("file %d on branch %d: %w", fileID, branchID, ErrRevisionNotFound)
		}
		return nil
	})
	return out, err
}

// RevisionAsOf returns the revision of fileID visible on a branch at a
// point in time.
func (e *Engine) RevisionAsOf(ctx context.Context, branchID, fileID int64, at time.Time) (*FileRevision, error) {
	c, err := e.CommitAt(ctx, at)
	if err != nil {
		return nil, err
	}
	return e.TipRevision(ctx, branchID, fileID, c.ID)
}

// Hydrate returns the full content of a revision.
func (e *Engine) Hydrate(ctx context.Context, revisionID int64) ([]byte, error) {
	var out []byte
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.hydrate(ctx, revisionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FileContent returns the tip revision of fileID on a branch together
// with its content.
func (e *Engine) FileContent(ctx context.Context, branchID, fileID, ceiling int64) (*FileRevision, []byte, error) {
	var rev *FileRevision
	var content []byte
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		if _, err := t.visibleFileName(ctx, scopes, fileID); err != nil {
			return err
		}
		rev, err = t.tipRevision(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		if rev == nil {
			return fmt.Errorf("file %d: %w", fileID, ErrRevisionNotFound)
		}
		content, err = t.hydrate(ctx, rev.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rev, content, nil
}

// FileHistory follows ancestor links back from the tip visible on a
// branch, newest first. Returned revisions carry no data.
func (e *Engine) FileHistory(ctx context.Context, branchID, fileID, ceiling int64) ([]*FileRevision, error) {
	var out []*FileRevision
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		tip, err := t.tipRevision(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		if tip == nil {
			return fmt.Errorf("file %d: %w", fileID, ErrRevisionNotFound)
		}

		seen := make(map[int64]bool)
		for id := tip.ID; id != 0; {
			if seen[id] {
				return fmt.Errorf("%w: ancestor cycle at revision %d", ErrCorruptDeltaChain, id)
			}
			seen[id] = true
			rev, err := t.tx.FindRevision(ctx, id)
			if err != nil {
				return fmt.Errorf("finding revision: %w", err)
			}
			if rev == nil {
				return fmt.Errorf("%w: dangling ancestor %d", ErrCorruptDeltaChain, id)
			}
			rev.Data = nil
			out = append(out, rev)
			id = rev.AncestorRevisionID
		}
		return nil
	})
	return out, err
}

// BranchRevisions lists the revisions of fileID owned by one branch,
// newest first, without data.
func (e *Engine) BranchRevisions(ctx context.Context, branchID, fileID, ceiling int64) ([]*FileRevision, error) {
	var out []*FileRevision
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.tx.ListRevisions(ctx, fileID, branchID, ceiling)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	return out, nil
}
