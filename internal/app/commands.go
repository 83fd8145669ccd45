package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qvcs-go/internal/qvcs"
)

// ceilingOf maps a user supplied commit id to a view ceiling. Zero means
// the live view.
func ceilingOf(commitID int64) int64 {
	if commitID <= 0 {
		return qvcs.NoCeiling
	}
	return commitID
}

// Projects

func (a *QVCSApp) CreateProject(ctx context.Context, name string) (*qvcs.Project, *qvcs.Branch, error) {
	var p *qvcs.Project
	var trunk *qvcs.Branch
	err := a.mutate(ctx, func() error {
		var err error
		p, trunk, err = a.engine.CreateProject(ctx, name, a.author)
		return err
	})
	return p, trunk, err
}

func (a *QVCSApp) Projects(ctx context.Context) ([]*qvcs.Project, error) {
	return a.engine.Projects(ctx)
}

// Branches

// CreateBranch adds a branch named name under parent. kind is a branch
// type name ("feature", "release", "read-only-tag", "read-only-date");
// tag and asOf select the view of read-only branches.
func (a *QVCSApp) CreateBranch(ctx context.Context, project, parent, name, kind, tag string, asOf time.Time) (*qvcs.Branch, error) {
	typ, ok := qvcs.ParseBranchType(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown branch type %q", qvcs.ErrInvalidRequest, kind)
	}
	_, pb, err := a.branch(ctx, project, parent)
	if err != nil {
		return nil, err
	}
	var b *qvcs.Branch
	err = a.mutate(ctx, func() error {
		var err error
		b, err = a.engine.CreateBranch(ctx, qvcs.CreateBranchRequest{
			ParentBranchID: pb.ID,
			Name:           name,
			Type:           typ,
			TagText:        tag,
			AsOf:           asOf,
			Author:         a.author,
		})
		return err
	})
	return b, err
}

func (a *QVCSApp) Branches(ctx context.Context, project string) ([]*qvcs.Branch, error) {
	p, err := a.engine.Project(ctx, project)
	if err != nil {
		return nil, err
	}
	return a.engine.Branches(ctx, p.ID)
}

func (a *QVCSApp) DeleteBranch(ctx context.Context, project, branch string) error {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return err
	}
	return a.mutate(ctx, func() error {
		return a.engine.DeleteBranch(ctx, b.ID, a.author)
	})
}

// Directories

func (a *QVCSApp) resolveDir(ctx context.Context, b *qvcs.Branch, p string) (*qvcs.DirectoryLocation, error) {
	return a.engine.ResolveDirectory(ctx, b.ID, p, qvcs.NoCeiling)
}

// AddDirectory creates the directory at p. Its parent must exist.
func (a *QVCSApp) AddDirectory(ctx context.Context, project, branch, p string) (*qvcs.DirectoryLocation, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	dir, name, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	parent, err := a.resolveDir(ctx, b, dir)
	if err != nil {
		return nil, err
	}
	var loc *qvcs.DirectoryLocation
	err = a.mutate(ctx, func() error {
		var err error
		loc, err = a.engine.AddDirectory(ctx, b.ID, parent.DirectoryID, name, a.author)
		return err
	})
	return loc, err
}

// ListDirectory lists the directory at p as of commitID (0 for live).
func (a *QVCSApp) ListDirectory(ctx context.Context, project, branch, p string, commitID int64) ([]qvcs.DirectoryEntry, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	ceiling := ceilingOf(commitID)
	loc, err := a.engine.ResolveDirectory(ctx, b.ID, p, ceiling)
	if err != nil {
		return nil, err
	}
	return a.engine.ListDirectory(ctx, b.ID, loc.DirectoryID, ceiling)
}

func (a *QVCSApp) RenameDirectory(ctx context.Context, project, branch, p, newName string) (*qvcs.DirectoryLocation, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	loc, err := a.resolveDir(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var out *qvcs.DirectoryLocation
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.RenameDirectory(ctx, b.ID, loc.DirectoryID, newName, a.author)
		return err
	})
	return out, err
}

func (a *QVCSApp) MoveDirectory(ctx context.Context, project, branch, p, newParent string) (*qvcs.DirectoryLocation, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	loc, err := a.resolveDir(ctx, b, p)
	if err != nil {
		return nil, err
	}
	parent, err := a.resolveDir(ctx, b, newParent)
	if err != nil {
		return nil, err
	}
	var out *qvcs.DirectoryLocation
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.MoveDirectory(ctx, b.ID, loc.DirectoryID, parent.DirectoryID, a.author)
		return err
	})
	return out, err
}

// DeleteDirectory deletes the directory at p. The returned row carries the
// directory id UndeleteDirectory takes.
func (a *QVCSApp) DeleteDirectory(ctx context.Context, project, branch, p string) (*qvcs.DirectoryLocation, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	loc, err := a.resolveDir(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var out *qvcs.DirectoryLocation
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.DeleteDirectory(ctx, b.ID, loc.DirectoryID, a.author)
		return err
	})
	return out, err
}

// UndeleteDirectory restores a deleted directory by id; deleted paths no
// longer resolve.
func (a *QVCSApp) UndeleteDirectory(ctx context.Context, project, branch string, directoryID int64) (*qvcs.DirectoryLocation, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	var out *qvcs.DirectoryLocation
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.UndeleteDirectory(ctx, b.ID, directoryID, a.author)
		return err
	})
	return out, err
}

// Files

func (a *QVCSApp) resolveFile(ctx context.Context, b *qvcs.Branch, p string) (*qvcs.FileName, error) {
	return a.engine.ResolveFile(ctx, b.ID, p, qvcs.NoCeiling)
}

// AddFile creates the file at p with content as its first revision.
func (a *QVCSApp) AddFile(ctx context.Context, project, branch, p string, content []byte, description string) (*qvcs.FileName, *qvcs.FileRevision, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, nil, err
	}
	dir, name, err := splitPath(p)
	if err != nil {
		return nil, nil, err
	}
	parent, err := a.resolveDir(ctx, b, dir)
	if err != nil {
		return nil, nil, err
	}
	var fn *qvcs.FileName
	var rev *qvcs.FileRevision
	err = a.mutate(ctx, func() error {
		var err error
		fn, rev, err = a.engine.AddFile(ctx, qvcs.AddFileRequest{
			BranchID:    b.ID,
			DirectoryID: parent.DirectoryID,
			Name:        name,
			Content:     content,
			Author:      a.author,
			Description: description,
		})
		return err
	})
	return fn, rev, err
}

// Cat returns the content of the file at p. A non-zero revisionID selects
// an older revision from the file's history; otherwise the tip as of
// commitID (0 for live) is returned.
func (a *QVCSApp) Cat(ctx context.Context, project, branch, p string, commitID, revisionID int64) (*qvcs.FileRevision, []byte, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, nil, err
	}
	ceiling := ceilingOf(commitID)
	fn, err := a.engine.ResolveFile(ctx, b.ID, p, ceiling)
	if err != nil {
		return nil, nil, err
	}
	if revisionID == 0 {
		return a.engine.FileContent(ctx, b.ID, fn.FileID, ceiling)
	}

	history, err := a.engine.FileHistory(ctx, b.ID, fn.FileID, ceiling)
	if err != nil {
		return nil, nil, err
	}
	for _, rev := range history {
		if rev.ID == revisionID {
			content, err := a.engine.Hydrate(ctx, rev.ID)
			if err != nil {
				return nil, nil, err
			}
			return rev, content, nil
		}
	}
	return nil, nil, fmt.Errorf("revision %d of %s: %w", revisionID, p, qvcs.ErrRevisionNotFound)
}

// FileLog returns the history of the file at p, newest first.
func (a *QVCSApp) FileLog(ctx context.Context, project, branch, p string, commitID int64) ([]*qvcs.FileRevision, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	ceiling := ceilingOf(commitID)
	fn, err := a.engine.ResolveFile(ctx, b.ID, p, ceiling)
	if err != nil {
		return nil, err
	}
	return a.engine.FileHistory(ctx, b.ID, fn.FileID, ceiling)
}

// Checkin records content as a new revision of the file at p. A non-zero
// base must be the tip revision the caller last saw.
func (a *QVCSApp) Checkin(ctx context.Context, project, branch, p string, content []byte, description string, base int64) (*qvcs.FileRevision, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var rev *qvcs.FileRevision
	err = a.mutate(ctx, func() error {
		var err error
		rev, err = a.engine.AppendRevision(ctx, qvcs.AppendRequest{
			BranchID:       b.ID,
			FileID:         fn.FileID,
			Content:        content,
			Author:         a.author,
			Description:    description,
			BaseRevisionID: base,
		})
		return err
	})
	return rev, err
}

func (a *QVCSApp) DeleteFile(ctx context.Context, project, branch, p string) (*qvcs.FileName, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var out *qvcs.FileName
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.DeleteFile(ctx, b.ID, fn.FileID, a.author)
		return err
	})
	return out, err
}

func (a *QVCSApp) UndeleteFile(ctx context.Context, project, branch string, fileID int64) (*qvcs.FileName, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	var out *qvcs.FileName
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.UndeleteFile(ctx, b.ID, fileID, a.author)
		return err
	})
	return out, err
}

func (a *QVCSApp) RenameFile(ctx context.Context, project, branch, p, newName string) (*qvcs.FileName, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var out *qvcs.FileName
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.RenameFile(ctx, b.ID, fn.FileID, newName, a.author)
		return err
	})
	return out, err
}

// MoveFile moves the file at p into the directory newDir.
func (a *QVCSApp) MoveFile(ctx context.Context, project, branch, p, newDir string) (*qvcs.FileName, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return nil, err
	}
	dir, err := a.resolveDir(ctx, b, newDir)
	if err != nil {
		return nil, err
	}
	var out *qvcs.FileName
	err = a.mutate(ctx, func() error {
		var err error
		out, err = a.engine.MoveFile(ctx, b.ID, fn.FileID, dir.DirectoryID, a.author)
		return err
	})
	return out, err
}

// Locks

func (a *QVCSApp) Lock(ctx context.Context, project, branch, p string) (*qvcs.FileLock, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return nil, err
	}
	var lock *qvcs.FileLock
	err = a.mutate(ctx, func() error {
		var err error
		lock, err = a.engine.AcquireLock(ctx, b.ID, fn.FileID, a.author)
		return err
	})
	return lock, err
}

// Unlock releases the lock on p. force releases another user's lock.
func (a *QVCSApp) Unlock(ctx context.Context, project, branch, p string, force bool) error {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if err != nil {
		return err
	}
	return a.mutate(ctx, func() error {
		return a.engine.ReleaseLock(ctx, b.ID, fn.FileID, a.author, force)
	})
}

func (a *QVCSApp) Locks(ctx context.Context, project, branch string) ([]*qvcs.FileLock, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	return a.engine.Locks(ctx, b.ID)
}

// Promotion

func (a *QVCSApp) PromotionCandidates(ctx context.Context, project, branch string, fullScan bool) ([]*qvcs.Candidate, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	return a.engine.ComputePromotionCandidates(ctx, b.ID, qvcs.CandidateOptions{FullScan: fullScan})
}

// Promote promotes the file at p from a feature branch to its parent. A
// file deleted on the branch is found through the parent.
func (a *QVCSApp) Promote(ctx context.Context, project, branch, p string) (*qvcs.PromotionResult, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if errors.Is(err, qvcs.ErrPathNotFound) && b.ParentBranchID != 0 {
		fn, err = a.engine.ResolveFile(ctx, b.ParentBranchID, p, qvcs.NoCeiling)
	}
	if err != nil {
		return nil, err
	}
	var res *qvcs.PromotionResult
	err = a.mutate(ctx, func() error {
		var err error
		res, err = a.engine.Promote(ctx, qvcs.PromoteRequest{
			FileID:        fn.FileID,
			ChildBranchID: b.ID,
			Author:        a.author,
		})
		return err
	})
	return res, err
}

func (a *QVCSApp) PromoteAll(ctx context.Context, project, branch string) ([]*qvcs.PromotionResult, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	var results []*qvcs.PromotionResult
	err = a.mutate(ctx, func() error {
		var err error
		results, err = a.engine.PromoteAll(ctx, b.ID, a.author)
		return err
	})
	return results, err
}

func (a *QVCSApp) ReconcileCandidates(ctx context.Context, project, branch string) (int, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return 0, err
	}
	var n int
	err = a.mutate(ctx, func() error {
		var err error
		n, err = a.engine.ReconcileCandidates(ctx, b.ID)
		return err
	})
	return n, err
}

// Tags

func (a *QVCSApp) CreateTag(ctx context.Context, project, branch, text string, moveable bool) (*qvcs.Tag, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	var tag *qvcs.Tag
	err = a.mutate(ctx, func() error {
		var err error
		tag, err = a.engine.CreateTag(ctx, b.ID, text, moveable)
		return err
	})
	return tag, err
}

// MoveTag moves a moveable tag to commitID, or the newest commit when
// commitID is 0.
func (a *QVCSApp) MoveTag(ctx context.Context, project, branch, text string, commitID int64) (*qvcs.Tag, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	var tag *qvcs.Tag
	err = a.mutate(ctx, func() error {
		var err error
		tag, err = a.engine.MoveTag(ctx, b.ID, text, commitID)
		return err
	})
	return tag, err
}

func (a *QVCSApp) Tags(ctx context.Context, project, branch string) ([]*qvcs.Tag, error) {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return nil, err
	}
	return a.engine.Tags(ctx, b.ID)
}

// Commits returns up to limit commits, newest first. A negative limit
// returns all of them.
func (a *QVCSApp) Commits(ctx context.Context, limit int) ([]*qvcs.Commit, error) {
	return a.engine.Commits(ctx, limit)
}

// DismissCandidate drops the file at p from a branch's candidate cache.
func (a *QVCSApp) DismissCandidate(ctx context.Context, project, branch, p string) error {
	_, b, err := a.branch(ctx, project, branch)
	if err != nil {
		return err
	}
	fn, err := a.resolveFile(ctx, b, p)
	if errors.Is(err, qvcs.ErrPathNotFound) && b.ParentBranchID != 0 {
		fn, err = a.engine.ResolveFile(ctx, b.ParentBranchID, p, qvcs.NoCeiling)
	}
	if err != nil {
		return err
	}
	return a.mutate(ctx, func() error {
		return a.engine.DismissCandidate(ctx, fn.FileID, b.ID)
	})
}
