package qvcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// fileNameState returns the definitive name row for fileID as seen
// through scopes, or nil. Rows promoted into the parent at or below a
// scope's ceiling are skipped, so the parent's copy shows through.
func (t *txn) fileNameState(ctx context.Context, scopes []Scope, fileID int64) (*FileName, error) {
	for _, s := range scopes {
		fn, err := t.tx.LatestFileName(ctx, fileID, s.Branch.ID, s.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("finding file name: %w", err)
		}
		if fn != nil {
			return fn, nil
		}
	}
	return nil, nil
}

// visibleFileName requires the file and its containing directory chain to
// be present.
func (t *txn) visibleFileName(ctx context.Context, scopes []Scope, fileID int64) (*FileName, error) {
	fn, err := t.fileNameState(ctx, scopes, fileID)
	if err != nil {
		return nil, err
	}
	if fn == nil || fn.Deleted {
		return nil, fmt.Errorf("file %d: %w", fileID, ErrPathNotFound)
	}
	if _, err := t.visibleDirectory(ctx, scopes, fn.DirectoryID); errors.Is(err, ErrPathNotFound) {
		return nil, fmt.Errorf("file %d: %w", fileID, ErrPathNotFound)
	} else if err != nil {
		return nil, err
	}
	return fn, nil
}

// childFiles lists the present files whose effective directory is
// directoryID, sorted by name.
func (t *txn) childFiles(ctx context.Context, scopes []Scope, directoryID int64) ([]*FileName, error) {
	seen := make(map[int64]bool)
	var out []*FileName
	for _, s := range scopes {
		ids, err := t.tx.FileIDsByDirectory(ctx, directoryID, s.Branch.ID, s.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("listing files: %w", err)
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			fn, err := t.fileNameState(ctx, scopes, id)
			if err != nil {
				return nil, err
			}
			if fn != nil && !fn.Deleted && fn.DirectoryID == directoryID {
				out = append(out, fn)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// resolveFile finds the present file called name in directoryID.
func (t *txn) resolveFile(ctx context.Context, scopes []Scope, directoryID int64, name string) (*FileName, error) {
	if _, err := t.visibleDirectory(ctx, scopes, directoryID); err != nil {
		return nil, err
	}
	files, err := t.childFiles(ctx, scopes, directoryID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%q in directory %d: %w", name, directoryID, ErrPathNotFound)
}

// deletedOnBranch reports whether b's own rows delete fileID while the
// view b inherits from its parent still has it.
func (t *txn) deletedOnBranch(ctx context.Context, scopes []Scope, fileID int64) (bool, error) {
	own, err := t.tx.LatestFileName(ctx, fileID, scopes[0].Branch.ID, scopes[0].Ceiling)
	if err != nil {
		return false, fmt.Errorf("finding file name: %w", err)
	}
	if own == nil || !own.Deleted {
		return false, nil
	}
	inherited, err := t.fileNameState(ctx, scopes[1:], fileID)
	if err != nil {
		return false, err
	}
	return inherited != nil && !inherited.Deleted, nil
}

// ResolveFile resolves a logical file path on a branch.
func (e *Engine) ResolveFile(ctx context.Context, branchID int64, path string, ceiling int64) (*FileName, error) {
	dirSegs, name, err := SplitFilePath(path)
	if err != nil {
		return nil, err
	}
	var out *FileName
	err = e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		dir, err := t.walkPath(ctx, scopes, dirSegs)
		if err != nil {
			return err
		}
		out, err = t.resolveFile(ctx, scopes, dir.DirectoryID, name)
		return err
	})
	return out, err
}

// ResolveFileIn resolves a file by short name within a directory.
func (e *Engine) ResolveFileIn(ctx context.Context, branchID, directoryID int64, name string, ceiling int64) (*FileName, error) {
	var out *FileName
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.resolveFile(ctx, scopes, directoryID, name)
		return err
	})
	return out, err
}

// CurrentName returns the directory and short name fileID has on a branch.
func (e *Engine) CurrentName(ctx context.Context, branchID, fileID, ceiling int64) (*FileName, error) {
	var out *FileName
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.visibleFileName(ctx, scopes, fileID)
		return err
	})
	return out, err
}

// FilePath returns the full logical path of fileID on a branch.
func (e *Engine) FilePath(ctx context.Context, branchID, fileID, ceiling int64) (string, error) {
	var out string
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.filePath(ctx, scopes, fileID)
		return err
	})
	return out, err
}

func (t *txn) filePath(ctx context.Context, scopes []Scope, fileID int64) (string, error) {
	fn, err := t.visibleFileName(ctx, scopes, fileID)
	if err != nil {
		return "", err
	}
	dir, err := t.directoryPath(ctx, scopes, fn.DirectoryID)
	if err != nil {
		return "", err
	}
	if dir == "/" {
		return "/" + fn.Name, nil
	}
	return dir + "/" + fn.Name, nil
}

// DeletedOnBranch reports whether fileID was deleted by branchID itself
// while its parent still has it.
func (e *Engine) DeletedOnBranch(ctx context.Context, branchID, fileID int64) (bool, error) {
	var out bool
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, NoCeiling)
		if err != nil {
			return err
		}
		out, err = t.deletedOnBranch(ctx, scopes, fileID)
		return err
	})
	return out, err
}

// AddFileRequest describes a new file and its first revision.
type AddFileRequest struct {
	BranchID    int64
	DirectoryID int64
	Name        string
	Content     []byte
	Author      string
	Description string
}

// AddFile creates a file with its first revision under one commit.
func (e *Engine) AddFile(ctx context.Context, req AddFileRequest) (*FileName, *FileRevision, error) {
	if err := validName(req.Name); err != nil {
		return nil, nil, err
	}
	var name *FileName
	var rev *FileRevision
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, req.BranchID)
		if err != nil {
			return err
		}
		if _, err := t.visibleDirectory(ctx, scopes, req.DirectoryID); err != nil {
			return err
		}
		if err := t.requireFreeName(ctx, scopes, req.DirectoryID, req.Name); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, req.Author, describe(req.Description, "add file "+req.Name))
		if err != nil {
			return err
		}
		fileID, err := t.tx.InsertFile(ctx, b.ProjectID, c.ID)
		if err != nil {
			return fmt.Errorf("inserting file: %w", err)
		}
		name, err = t.tx.InsertFileName(ctx, &FileName{
			FileID:      fileID,
			DirectoryID: req.DirectoryID,
			BranchID:    b.ID,
			Name:        req.Name,
			CommitID:    c.ID,
			Reason:      ReasonCreate,
		})
		if err != nil {
			return fmt.Errorf("inserting file name: %w", err)
		}
		rev, err = t.appendRevision(ctx, b, fileID, c, req.Content, req.Description, 0)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("file added", "branch_id", req.BranchID, "file_id", name.FileID, "name", req.Name, "revision_id", rev.ID)
	return name, rev, nil
}

// RenameFile gives a file a new short name in the same directory.
func (e *Engine) RenameFile(ctx context.Context, branchID, fileID int64, newName, author string) (*FileName, error) {
	if err := validName(newName); err != nil {
		return nil, err
	}
	return e.mutateFileName(ctx, branchID, fileID, author, ReasonRename,
		func(t *txn, scopes []Scope, next *FileName) error {
			if next.Name == newName {
				return nil
			}
			if err := t.requireFreeName(ctx, scopes, next.DirectoryID, newName); err != nil {
				return err
			}
			next.Name = newName
			return nil
		})
}

// MoveFile moves a file to another directory, keeping its short name.
func (e *Engine) MoveFile(ctx context.Context, branchID, fileID, newDirectoryID int64, author string) (*FileName, error) {
	return e.mutateFileName(ctx, branchID, fileID, author, ReasonMove,
		func(t *txn, scopes []Scope, next *FileName) error {
			if _, err := t.visibleDirectory(ctx, scopes, newDirectoryID); err != nil {
				return err
			}
			if next.DirectoryID == newDirectoryID {
				return nil
			}
			if err := t.requireFreeName(ctx, scopes, newDirectoryID, next.Name); err != nil {
				return err
			}
			next.DirectoryID = newDirectoryID
			return nil
		})
}

// DeleteFile hides a file on a branch. Its revisions remain readable.
func (e *Engine) DeleteFile(ctx context.Context, branchID, fileID int64, author string) (*FileName, error) {
	return e.mutateFileName(ctx, branchID, fileID, author, ReasonDelete,
		func(_ *txn, _ []Scope, next *FileName) error {
			next.Deleted = true
			return nil
		})
}

// UndeleteFile restores a deleted file under its last name.
func (e *Engine) UndeleteFile(ctx context.Context, branchID, fileID int64, author string) (*FileName, error) {
	var out *FileName
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		cur, err := t.fileNameState(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("file %d: %w", fileID, ErrPathNotFound)
		}
		if !cur.Deleted {
			return fmt.Errorf("%w: file %d is not deleted", ErrInvalidRequest, fileID)
		}
		if _, err := t.visibleDirectory(ctx, scopes, cur.DirectoryID); err != nil {
			return err
		}
		if err := t.requireFreeName(ctx, scopes, cur.DirectoryID, cur.Name); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, author, "undelete file "+cur.Name)
		if err != nil {
			return err
		}
		out, err = t.insertFileName(ctx, b, cur, c, ReasonUndelete, func(next *FileName) { next.Deleted = false })
		return err
	})
	return out, err
}

func (e *Engine) mutateFileName(ctx context.Context, branchID, fileID int64, author string, reason MutationReason,
	apply func(t *txn, scopes []Scope, next *FileName) error) (*FileName, error) {
	var out *FileName
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		cur, err := t.visibleFileName(ctx, scopes, fileID)
		if err != nil {
			return err
		}
		next := *cur
		if err := apply(t, scopes, &next); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, author, fmt.Sprintf("%s file %s", reason, cur.Name))
		if err != nil {
			return err
		}
		out, err = t.insertFileName(ctx, b, &next, c, reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("file name mutated", "branch_id", branchID, "file_id", fileID, "reason", reason.String())
	return out, nil
}

// insertFileName appends a name row for b based on from and records the
// file as a promotion candidate when b has a parent.
func (t *txn) insertFileName(ctx context.Context, b *Branch, from *FileName, c *Commit, reason MutationReason, edit func(*FileName)) (*FileName, error) {
	next := *from
	next.BranchID = b.ID
	next.CommitID = c.ID
	next.Reason = reason
	next.Promoted = false
	next.PromotedBy = 0
	if edit != nil {
		edit(&next)
	}
	out, err := t.tx.InsertFileName(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("inserting file name: %w", err)
	}
	if err := t.markCandidate(ctx, b, out.FileID, c.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func describe(desc, fallback string) string {
	if desc != "" {
		return desc
	}
	return fallback
}
