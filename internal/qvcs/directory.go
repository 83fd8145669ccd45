package qvcs

import (
	"context"
	"fmt"
	"sort"
)

// directoryState returns the definitive mutation row for directoryID as
// seen through scopes, or nil when no scope has one. The nearest scope with
// any row wins, even if that row is a delete.
func (t *txn) directoryState(ctx context.Context, scopes []Scope, directoryID int64) (*DirectoryLocation, error) {
	for _, s := range scopes {
		loc, err := t.tx.LatestDirectoryLocation(ctx, directoryID, s.Branch.ID, s.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("finding directory location: %w", err)
		}
		if loc != nil {
			return loc, nil
		}
	}
	return nil, nil
}

// visibleDirectory resolves directoryID and requires it and every
// directory above it to be present.
func (t *txn) visibleDirectory(ctx context.Context, scopes []Scope, directoryID int64) (*DirectoryLocation, error) {
	var first *DirectoryLocation
	seen := make(map[int64]bool)
	for id := directoryID; ; {
		if seen[id] {
			return nil, fmt.Errorf("directory %d: %w", directoryID, ErrPathNotFound)
		}
		seen[id] = true

		loc, err := t.directoryState(ctx, scopes, id)
		if err != nil {
			return nil, err
		}
		if loc == nil || loc.Deleted {
			return nil, fmt.Errorf("directory %d: %w", directoryID, ErrPathNotFound)
		}
		if first == nil {
			first = loc
		}
		if loc.ParentDirectoryID == 0 {
			return first, nil
		}
		id = loc.ParentDirectoryID
	}
}

// childDirectories lists the present directories whose effective parent
// is parentID, sorted by name.
func (t *txn) childDirectories(ctx context.Context, scopes []Scope, parentID int64) ([]*DirectoryLocation, error) {
	seen := make(map[int64]bool)
	var out []*DirectoryLocation
	for _, s := range scopes {
		ids, err := t.tx.DirectoryIDsByParent(ctx, parentID, s.Branch.ID, s.Ceiling)
		if err != nil {
			return nil, fmt.Errorf("listing child directories: %w", err)
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			loc, err := t.directoryState(ctx, scopes, id)
			if err != nil {
				return nil, err
			}
			if loc != nil && !loc.Deleted && loc.ParentDirectoryID == parentID {
				out = append(out, loc)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// rootDirectory returns the project root as seen on the scoped branch.
func (t *txn) rootDirectory(ctx context.Context, scopes []Scope) (*DirectoryLocation, error) {
	p, err := t.project(ctx, scopes[0].Branch.ProjectID)
	if err != nil {
		return nil, err
	}
	return t.visibleDirectory(ctx, scopes, p.RootDirectoryID)
}

// walkPath resolves directory segments from the project root.
func (t *txn) walkPath(ctx context.Context, scopes []Scope, segs []string) (*DirectoryLocation, error) {
	cur, err := t.rootDirectory(ctx, scopes)
	if err != nil {
		return nil, err
	}
	for i, seg := range segs {
		children, err := t.childDirectories(ctx, scopes, cur.DirectoryID)
		if err != nil {
			return nil, err
		}
		var next *DirectoryLocation
		for _, c := range children {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%s: %w", JoinPath(segs[:i+1]...), ErrPathNotFound)
		}
		cur = next
	}
	return cur, nil
}

// directoryPath rebuilds the effective path of a visible directory.
func (t *txn) directoryPath(ctx context.Context, scopes []Scope, directoryID int64) (string, error) {
	var segs []string
	seen := make(map[int64]bool)
	for id := directoryID; !seen[id]; {
		seen[id] = true
		loc, err := t.directoryState(ctx, scopes, id)
		if err != nil {
			return "", err
		}
		if loc == nil || loc.Deleted {
			return "", fmt.Errorf("directory %d: %w", directoryID, ErrPathNotFound)
		}
		if loc.ParentDirectoryID == 0 {
			break
		}
		segs = append([]string{loc.Name}, segs...)
		id = loc.ParentDirectoryID
	}
	return JoinPath(segs...), nil
}

// nameTaken reports whether a present directory or file named name already
// lives in directoryID.
func (t *txn) nameTaken(ctx context.Context, scopes []Scope, directoryID int64, name string) (bool, error) {
	dirs, err := t.childDirectories(ctx, scopes, directoryID)
	if err != nil {
		return false, err
	}
	for _, d := range dirs {
		if d.Name == name {
			return true, nil
		}
	}
	files, err := t.childFiles(ctx, scopes, directoryID)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (t *txn) requireFreeName(ctx context.Context, scopes []Scope, directoryID int64, name string) error {
	taken, err := t.nameTaken(ctx, scopes, directoryID, name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%q: %w", name, ErrAlreadyExists)
	}
	return nil
}

// ResolveDirectory resolves a logical directory path on a branch as of
// ceiling (NoCeiling for the latest state).
func (e *Engine) ResolveDirectory(ctx context.Context, branchID int64, path string, ceiling int64) (*DirectoryLocation, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	var out *DirectoryLocation
	err = e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.walkPath(ctx, scopes, segs)
		return err
	})
	return out, err
}

// DirectoryPath returns the effective path of a directory on a branch.
func (e *Engine) DirectoryPath(ctx context.Context, branchID, directoryID, ceiling int64) (string, error) {
	var out string
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		out, err = t.directoryPath(ctx, scopes, directoryID)
		return err
	})
	return out, err
}

// ChildrenOf lists the directories directly inside directoryID.
func (e *Engine) ChildrenOf(ctx context.Context, branchID, directoryID, ceiling int64) ([]*DirectoryLocation, error) {
	var out []*DirectoryLocation
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		if _, err := t.visibleDirectory(ctx, scopes, directoryID); err != nil {
			return err
		}
		out, err = t.childDirectories(ctx, scopes, directoryID)
		return err
	})
	return out, err
}

// ListDirectory lists the directories and files directly inside
// directoryID, directories first, each group sorted by name.
func (e *Engine) ListDirectory(ctx context.Context, branchID, directoryID, ceiling int64) ([]DirectoryEntry, error) {
	var out []DirectoryEntry
	err := e.view(ctx, func(t *txn) error {
		scopes, err := t.scopeOf(ctx, branchID, ceiling)
		if err != nil {
			return err
		}
		if _, err := t.visibleDirectory(ctx, scopes, directoryID); err != nil {
			return err
		}
		dirs, err := t.childDirectories(ctx, scopes, directoryID)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			out = append(out, DirectoryEntry{Name: d.Name, IsDirectory: true, DirectoryID: d.DirectoryID})
		}
		files, err := t.childFiles(ctx, scopes, directoryID)
		if err != nil {
			return err
		}
		for _, f := range files {
			out = append(out, DirectoryEntry{Name: f.Name, FileID: f.FileID})
		}
		return nil
	})
	return out, err
}

// AddDirectory creates a directory named name inside parentID.
func (e *Engine) AddDirectory(ctx context.Context, branchID, parentID int64, name, author string) (*DirectoryLocation, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	var out *DirectoryLocation
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		if _, err := t.visibleDirectory(ctx, scopes, parentID); err != nil {
			return err
		}
		if err := t.requireFreeName(ctx, scopes, parentID, name); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, author, "add directory "+name)
		if err != nil {
			return err
		}
		id, err := t.tx.InsertDirectory(ctx, b.ProjectID)
		if err != nil {
			return fmt.Errorf("inserting directory: %w", err)
		}
		out, err = t.tx.InsertDirectoryLocation(ctx, &DirectoryLocation{
			DirectoryID:       id,
			ParentDirectoryID: parentID,
			BranchID:          b.ID,
			Name:              name,
			CommitID:          c.ID,
			Reason:            ReasonCreate,
		})
		if err != nil {
			return fmt.Errorf("inserting directory location: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("directory added", "branch_id", branchID, "directory_id", out.DirectoryID, "name", name)
	return out, nil
}

// RenameDirectory gives a directory a new name in the same parent.
func (e *Engine) RenameDirectory(ctx context.Context, branchID, directoryID int64, newName, author string) (*DirectoryLocation, error) {
	if err := validName(newName); err != nil {
		return nil, err
	}
	return e.mutateDirectory(ctx, branchID, directoryID, author, ReasonRename,
		func(t *txn, scopes []Scope, next *DirectoryLocation) error {
			if next.Name == newName {
				return nil
			}
			if err := t.requireFreeName(ctx, scopes, next.ParentDirectoryID, newName); err != nil {
				return err
			}
			next.Name = newName
			return nil
		})
}

// MoveDirectory reparents a directory. A directory cannot be moved into
// itself or any of its descendants.
func (e *Engine) MoveDirectory(ctx context.Context, branchID, directoryID, newParentID int64, author string) (*DirectoryLocation, error) {
	return e.mutateDirectory(ctx, branchID, directoryID, author, ReasonMove,
		func(t *txn, scopes []Scope, next *DirectoryLocation) error {
			if _, err := t.visibleDirectory(ctx, scopes, newParentID); err != nil {
				return err
			}
			inside, err := t.isWithin(ctx, scopes, newParentID, directoryID)
			if err != nil {
				return err
			}
			if inside {
				return fmt.Errorf("%w: cannot move directory %d beneath itself", ErrInvalidRequest, directoryID)
			}
			if err := t.requireFreeName(ctx, scopes, newParentID, next.Name); err != nil {
				return err
			}
			next.ParentDirectoryID = newParentID
			return nil
		})
}

// DeleteDirectory hides a directory, and with it everything beneath it.
func (e *Engine) DeleteDirectory(ctx context.Context, branchID, directoryID int64, author string) (*DirectoryLocation, error) {
	return e.mutateDirectory(ctx, branchID, directoryID, author, ReasonDelete,
		func(_ *txn, _ []Scope, next *DirectoryLocation) error {
			next.Deleted = true
			return nil
		})
}

// UndeleteDirectory restores a deleted directory in its last parent.
func (e *Engine) UndeleteDirectory(ctx context.Context, branchID, directoryID int64, author string) (*DirectoryLocation, error) {
	var out *DirectoryLocation
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		cur, err := t.directoryState(ctx, scopes, directoryID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("directory %d: %w", directoryID, ErrPathNotFound)
		}
		if !cur.Deleted {
			return fmt.Errorf("%w: directory %d is not deleted", ErrInvalidRequest, directoryID)
		}
		if _, err := t.visibleDirectory(ctx, scopes, cur.ParentDirectoryID); err != nil {
			return err
		}
		if err := t.requireFreeName(ctx, scopes, cur.ParentDirectoryID, cur.Name); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, author, "undelete directory "+cur.Name)
		if err != nil {
			return err
		}
		next := *cur
		next.BranchID = b.ID
		next.CommitID = c.ID
		next.Reason = ReasonUndelete
		next.Deleted = false
		out, err = t.tx.InsertDirectoryLocation(ctx, &next)
		if err != nil {
			return fmt.Errorf("inserting directory location: %w", err)
		}
		return nil
	})
	return out, err
}

// mutateDirectory appends a new mutation row for a present, non-root
// directory. The row is always owned by branchID; ancestor rows are never
// touched.
func (e *Engine) mutateDirectory(ctx context.Context, branchID, directoryID int64, author string, reason MutationReason,
	apply func(t *txn, scopes []Scope, next *DirectoryLocation) error) (*DirectoryLocation, error) {
	var out *DirectoryLocation
	err := e.update(ctx, func(t *txn) error {
		b, scopes, err := t.writeScope(ctx, branchID)
		if err != nil {
			return err
		}
		cur, err := t.visibleDirectory(ctx, scopes, directoryID)
		if err != nil {
			return err
		}
		if cur.ParentDirectoryID == 0 {
			return fmt.Errorf("%w: the project root cannot be %sd", ErrInvalidRequest, reason)
		}

		next := *cur
		if err := apply(t, scopes, &next); err != nil {
			return err
		}

		c, err := t.newCommit(ctx, author, fmt.Sprintf("%s directory %s", reason, cur.Name))
		if err != nil {
			return err
		}
		next.BranchID = b.ID
		next.CommitID = c.ID
		next.Reason = reason
		out, err = t.tx.InsertDirectoryLocation(ctx, &next)
		if err != nil {
			return fmt.Errorf("inserting directory location: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("directory mutated", "branch_id", branchID, "directory_id", directoryID, "reason", reason.String())
	return out, nil
}

// isWithin reports whether directoryID is ancestorID or lies beneath it.
func (t *txn) isWithin(ctx context.Context, scopes []Scope, directoryID, ancestorID int64) (bool, error) {
	seen := make(map[int64]bool)
	for id := directoryID; id != 0 && !seen[id]; {
		if id == ancestorID {
			return true, nil
		}
		seen[id] = true
		loc, err := t.directoryState(ctx, scopes, id)
		if err != nil {
			return false, err
		}
		if loc == nil {
			return false, nil
		}
		id = loc.ParentDirectoryID
	}
	return false, nil
}

// writeScope loads a writable branch and its live scope.
func (t *txn) writeScope(ctx context.Context, branchID int64) (*Branch, []Scope, error) {
	b, err := t.writableBranch(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}
	scopes, err := t.scopeOf(ctx, branchID, NoCeiling)
	if err != nil {
		return nil, nil, err
	}
	return b, scopes, nil
}
