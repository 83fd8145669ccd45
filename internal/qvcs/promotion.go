package qvcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// PromotionType classifies what a candidate would change on the parent.
type PromotionType int

const (
	PromotionSimple PromotionType = iota + 1
	PromotionCreated
	PromotionDeleted
	PromotionRenamed
	PromotionMoved
	PromotionMovedAndRenamed
)

func (p PromotionType) String() string {
	switch p {
	case PromotionSimple:
		return "simple"
	case PromotionCreated:
		return "created"
	case PromotionDeleted:
		return "deleted"
	case PromotionRenamed:
		return "renamed"
	case PromotionMoved:
		return "moved"
	case PromotionMovedAndRenamed:
		return "moved+renamed"
	default:
		return "unknown"
	}
}

// Candidate is a file whose state on a feature branch differs from its
// parent in a way promotion can carry up.
type Candidate struct {
	FileID         int64
	ChildBranchID  int64
	ParentBranchID int64
	Type           PromotionType
	ContentChanged bool
	Path           string
	// CommitID is the newest child-side change to the file.
	CommitID int64
	// ParentDeleted is set when the parent deleted the file after the
	// child started changing it.
	ParentDeleted bool

	ChildName  *FileName
	ParentName *FileName     // nil for created files
	BaseName   *FileName     // parent's name when the child first renamed or moved the file
	ChildTip   *FileRevision // nil for deleted files
	ParentTip  *FileRevision // nil for created files and parent-side deletes
	Ancestor   *FileRevision // nil for created files
}

// FastForward reports whether promotion can apply without a merge: the
// parent has not moved past the common ancestor.
func (c *Candidate) FastForward() bool {
	switch {
	case c.Type == PromotionCreated:
		return true
	case c.ParentDeleted || c.NameDiverged():
		return false
	case c.Type == PromotionDeleted || c.ContentChanged:
		return sameRevision(c.ParentTip, c.Ancestor)
	default:
		return true
	}
}

// NameDiverged reports whether both branches renamed or moved the file
// since the child's first name change.
func (c *Candidate) NameDiverged() bool {
	switch c.Type {
	case PromotionRenamed, PromotionMoved, PromotionMovedAndRenamed:
	default:
		return false
	}
	if c.BaseName == nil || c.ParentName == nil {
		return false
	}
	return c.BaseName.Name != c.ParentName.Name || c.BaseName.DirectoryID != c.ParentName.DirectoryID
}

// PromotionResult is the outcome of promoting one file. Exactly one of
// Conflict or CommitID is set.
type PromotionResult struct {
	Candidate *Candidate
	Conflict  *MergeConflict
	CommitID  int64
	Revision  *FileRevision // new parent revision when content moved up
	Name      *FileName     // new parent name row when the name changed
}

// Promoted reports whether the file was written to the parent.
func (r *PromotionResult) Promoted() bool { return r.Conflict == nil }

// CandidateOptions controls candidate discovery.
type CandidateOptions struct {
	// FullScan ignores the candidate cache and examines every file the
	// child branch has touched.
	FullScan bool
}

// PromoteRequest identifies one file to promote. ParentBranchID may be
// zero, in which case the child's parent is used.
type PromoteRequest struct {
	FileID         int64
	ChildBranchID  int64
	ParentBranchID int64
	Author         string
}

func sameRevision(a, b *FileRevision) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// markCandidate records fileID in the advisory candidate cache of b.
func (t *txn) markCandidate(ctx context.Context, b *Branch, fileID, commitID int64) error {
	if b.ParentBranchID == 0 {
		return nil
	}
	if err := t.tx.UpsertPromotionCandidate(ctx, fileID, b.ID, commitID); err != nil {
		return fmt.Errorf("recording promotion candidate: %w", err)
	}
	return nil
}

// promotionPair loads a feature branch and the scopes of it and its parent.
func (t *txn) promotionPair(ctx context.Context, childID int64) (*Branch, []Scope, []Scope, error) {
	child, err := t.branch(ctx, childID)
	if err != nil {
		return nil, nil, nil, err
	}
	if child.Type != BranchTypeFeature {
		return nil, nil, nil, fmt.Errorf("branch %q is a %s branch: %w", child.Name, child.Type, ErrNotPromotable)
	}
	childScopes, err := t.scopeOf(ctx, child.ID, NoCeiling)
	if err != nil {
		return nil, nil, nil, err
	}
	parentScopes, err := t.scopeOf(ctx, child.ParentBranchID, NoCeiling)
	if err != nil {
		return nil, nil, nil, err
	}
	return child, childScopes, parentScopes, nil
}

// commonAncestor follows rev's ancestor links until it leaves the child
// branch. The first revision not owned by the child was visible on both
// branches when the child diverged. Nil means the lineage began on the
// child.
func (t *txn) commonAncestor(ctx context.Context, childID int64, rev *FileRevision) (*FileRevision, error) {
	seen := make(map[int64]bool)
	for rev != nil && rev.BranchID == childID {
		if seen[rev.ID] {
			return nil, fmt.Errorf("%w: ancestor cycle at revision %d", ErrCorruptDeltaChain, rev.ID)
		}
		seen[rev.ID] = true
		if rev.AncestorRevisionID == 0 {
			return nil, nil
		}
		next, err := t.tx.FindRevision(ctx, rev.AncestorRevisionID)
		if err != nil {
			return nil, fmt.Errorf("finding revision: %w", err)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: dangling ancestor %d", ErrCorruptDeltaChain, rev.AncestorRevisionID)
		}
		rev = next
	}
	if rev != nil {
		rev.Data = nil
	}
	return rev, nil
}

// examine derives whether fileID is a promotion candidate from the
// authoritative name and revision rows. It returns nil when it is not.
func (t *txn) examine(ctx context.Context, child *Branch, childScopes, parentScopes []Scope, fileID int64) (*Candidate, error) {
	childName, err := t.fileNameState(ctx, childScopes, fileID)
	if err != nil || childName == nil {
		return nil, err
	}
	parentName, err := t.fileNameState(ctx, parentScopes, fileID)
	if err != nil {
		return nil, err
	}
	childTip, err := t.tipRevision(ctx, childScopes, fileID)
	if err != nil {
		return nil, err
	}
	parentTip, err := t.tipRevision(ctx, parentScopes, fileID)
	if err != nil {
		return nil, err
	}

	ownName := childName.BranchID == child.ID
	ownContent := childTip != nil && childTip.BranchID == child.ID
	parentGone := parentName != nil && parentName.Deleted
	c := &Candidate{
		FileID:         fileID,
		ChildBranchID:  child.ID,
		ParentBranchID: child.ParentBranchID,
		ChildName:      childName,
		ParentName:     parentName,
		ChildTip:       childTip,
		ParentTip:      parentTip,
		ContentChanged: ownContent,
	}
	if ownName {
		c.CommitID = childName.CommitID
		if c.BaseName, err = t.baseName(ctx, child, fileID); err != nil {
			return nil, err
		}
	}
	if ownContent && childTip.CommitID > c.CommitID {
		c.CommitID = childTip.CommitID
	}

	switch {
	case childName.Deleted && ownName:
		if parentName == nil || parentGone {
			return nil, nil
		}
		c.Type = PromotionDeleted
		c.ChildTip = nil
		c.ContentChanged = false
		atDelete, err := t.scopeOf(ctx, child.ID, childName.CommitID)
		if err != nil {
			return nil, err
		}
		seen, err := t.tipRevision(ctx, atDelete, fileID)
		if err != nil {
			return nil, err
		}
		if c.Ancestor, err = t.commonAncestor(ctx, child.ID, seen); err != nil {
			return nil, err
		}

	case childName.Deleted:
		// The child sees the parent's delete over its own edits.
		if !ownContent || !parentGone {
			return nil, nil
		}
		c.Type = PromotionSimple
		if err := t.markParentDeleted(ctx, c); err != nil {
			return nil, err
		}

	case parentName == nil || (!parentGone && parentTip == nil):
		if (!ownName && !ownContent) || childTip == nil {
			return nil, nil
		}
		c.Type = PromotionCreated

	case parentGone:
		if childTip == nil {
			return nil, nil
		}
		// A child that undeleted a file the parent had already removed
		// brings it back.
		if c.BaseName == nil || c.BaseName.Deleted {
			c.Type = PromotionCreated
			break
		}
		c.Type = nameChange(childName, parentName)
		if err := t.markParentDeleted(ctx, c); err != nil {
			return nil, err
		}

	default:
		c.Type = nameChange(childName, parentName)
		if !ownContent && c.Type == PromotionSimple {
			return nil, nil
		}
		if ownContent {
			if c.Ancestor, err = t.commonAncestor(ctx, child.ID, childTip); err != nil {
				return nil, err
			}
		} else {
			c.Ancestor = parentTip
		}
	}

	if c.Path, err = t.candidatePath(ctx, c, childScopes, parentScopes); err != nil {
		return nil, err
	}
	return c, nil
}

// baseName returns the parent's name row for fileID as of the child's
// oldest unpromoted name change, or nil when the parent had none.
func (t *txn) baseName(ctx context.Context, child *Branch, fileID int64) (*FileName, error) {
	first, err := t.tx.FirstUnpromotedFileName(ctx, fileID, child.ID)
	if err != nil {
		return nil, fmt.Errorf("finding file name: %w", err)
	}
	if first == nil {
		return nil, nil
	}
	atFirst, err := t.scopeOf(ctx, child.ParentBranchID, first.CommitID)
	if err != nil {
		return nil, err
	}
	return t.fileNameState(ctx, atFirst, fileID)
}

// markParentDeleted turns c into a delete-versus-change conflict.
func (t *txn) markParentDeleted(ctx context.Context, c *Candidate) error {
	c.ParentDeleted = true
	c.ParentTip = nil
	if !c.ContentChanged {
		c.Ancestor = c.ChildTip
		return nil
	}
	var err error
	c.Ancestor, err = t.commonAncestor(ctx, c.ChildBranchID, c.ChildTip)
	return err
}

func nameChange(childName, parentName *FileName) PromotionType {
	renamed := childName.Name != parentName.Name
	moved := childName.DirectoryID != parentName.DirectoryID
	switch {
	case renamed && moved:
		return PromotionMovedAndRenamed
	case moved:
		return PromotionMoved
	case renamed:
		return PromotionRenamed
	default:
		return PromotionSimple
	}
}

// candidatePath resolves where c lives: on the parent for deletes, just
// before the parent's delete when the child can no longer see it, and on
// the child otherwise. An unreachable path comes back empty.
func (t *txn) candidatePath(ctx context.Context, c *Candidate, childScopes, parentScopes []Scope) (string, error) {
	scopes := childScopes
	switch {
	case c.Type == PromotionDeleted:
		scopes = parentScopes
	case c.ChildName.Deleted:
		before, err := t.scopeOf(ctx, c.ParentBranchID, c.ParentName.CommitID-1)
		if err != nil {
			return "", err
		}
		scopes = before
	}
	p, err := t.filePath(ctx, scopes, c.FileID)
	if errors.Is(err, ErrPathNotFound) {
		return "", nil
	}
	return p, err
}

// excluded reports whether path matches a promotion exclude pattern. An
// unresolved path cannot be checked, so it counts as excluded whenever
// patterns are configured.
func (e *Engine) excluded(path string) bool {
	if path == "" {
		return len(e.exclude) > 0
	}
	for _, g := range e.exclude {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// candidateFileIDs returns the files worth examining on child, from the
// cache or from a scan of every row the branch owns.
func (t *txn) candidateFileIDs(ctx context.Context, childID int64, fullScan bool) ([]int64, error) {
	if !fullScan {
		rows, err := t.tx.ListPromotionCandidates(ctx, childID)
		if err != nil {
			return nil, fmt.Errorf("listing promotion candidates: %w", err)
		}
		ids := make([]int64, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.FileID)
		}
		return ids, nil
	}

	revised, err := t.tx.FileIDsRevisedOnBranch(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("scanning revisions: %w", err)
	}
	named, err := t.tx.FileIDsNamedOnBranch(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("scanning file names: %w", err)
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range append(revised, named...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *txn) computeCandidates(ctx context.Context, childID int64, fullScan bool) ([]*Candidate, error) {
	child, childScopes, parentScopes, err := t.promotionPair(ctx, childID)
	if err != nil {
		return nil, err
	}
	ids, err := t.candidateFileIDs(ctx, child.ID, fullScan)
	if err != nil {
		return nil, err
	}

	var out []*Candidate
	for _, id := range ids {
		c, err := t.examine(ctx, child, childScopes, parentScopes, id)
		if err != nil {
			return nil, fmt.Errorf("examining file %d: %w", id, err)
		}
		if c == nil || t.e.excluded(c.Path) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ComputePromotionCandidates lists the files on a feature branch that can
// be promoted to its parent. The candidate cache only narrows which files
// are examined; every reported candidate is re-derived from the
// authoritative rows.
func (e *Engine) ComputePromotionCandidates(ctx context.Context, childBranchID int64, opts CandidateOptions) ([]*Candidate, error) {
	var out []*Candidate
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.computeCandidates(ctx, childBranchID, opts.FullScan)
		return err
	})
	return out, err
}

// ReconcileCandidates rebuilds a branch's candidate cache from a full scan.
// It returns the number of cache rows written.
func (e *Engine) ReconcileCandidates(ctx context.Context, childBranchID int64) (int, error) {
	var n int
	err := e.update(ctx, func(t *txn) error {
		cands, err := t.computeCandidates(ctx, childBranchID, true)
		if err != nil {
			return err
		}
		if err := t.tx.DeleteBranchPromotionCandidates(ctx, childBranchID); err != nil {
			return fmt.Errorf("clearing promotion candidates: %w", err)
		}
		for _, c := range cands {
			if err := t.tx.UpsertPromotionCandidate(ctx, c.FileID, childBranchID, c.CommitID); err != nil {
				return fmt.Errorf("recording promotion candidate: %w", err)
			}
		}
		n = len(cands)
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.logger.Info("promotion candidates reconciled", "branch_id", childBranchID, "candidates", n)
	return n, nil
}

// DismissCandidate drops a file from a branch's candidate cache. A later
// full scan will find it again if it still differs.
func (e *Engine) DismissCandidate(ctx context.Context, fileID, childBranchID int64) error {
	return e.update(ctx, func(t *txn) error {
		if _, err := t.branch(ctx, childBranchID); err != nil {
			return err
		}
		if err := t.tx.DeletePromotionCandidate(ctx, fileID, childBranchID); err != nil {
			return fmt.Errorf("dismissing promotion candidate: %w", err)
		}
		return nil
	})
}

// Promote carries one file's change from a feature branch to its parent.
// A fast-forward writes the parent and flags the child's rows promoted. A
// diverged file returns a result holding a MergeConflict and writes
// nothing.
func (e *Engine) Promote(ctx context.Context, req PromoteRequest) (*PromotionResult, error) {
	var res *PromotionResult
	err := e.update(ctx, func(t *txn) error {
		child, childScopes, parentScopes, err := t.promotionPair(ctx, req.ChildBranchID)
		if err != nil {
			return err
		}
		if req.ParentBranchID != 0 && req.ParentBranchID != child.ParentBranchID {
			return fmt.Errorf("%w: branch %d is not the parent of %q", ErrInvalidRequest, req.ParentBranchID, child.Name)
		}
		parent, err := t.writableBranch(ctx, child.ParentBranchID)
		if err != nil {
			return err
		}

		c, err := t.examine(ctx, child, childScopes, parentScopes, req.FileID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("file %d on %q: %w", req.FileID, child.Name, ErrNotPromotable)
		}
		if e.excluded(c.Path) {
			if c.Path == "" {
				return fmt.Errorf("file %d has no reachable path to check against exclusions: %w", req.FileID, ErrNotPromotable)
			}
			return fmt.Errorf("file %s is excluded from promotion: %w", c.Path, ErrNotPromotable)
		}

		if !c.FastForward() {
			conflict, err := t.conflictFor(ctx, c)
			if err != nil {
				return err
			}
			res = &PromotionResult{Candidate: c, Conflict: conflict}
			return nil
		}

		res, err = t.fastForward(ctx, child, parent, parentScopes, c, req.Author)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Conflict != nil {
		e.logger.Warn("promotion conflict", "file_id", req.FileID, "child_id", req.ChildBranchID,
			"ancestor_id", res.Conflict.AncestorRevisionID, "parent_tip_id", res.Conflict.ParentRevisionID)
	} else {
		e.logger.Info("file promoted", "file_id", req.FileID, "child_id", req.ChildBranchID,
			"type", res.Candidate.Type.String(), "commit_id", res.CommitID)
	}
	return res, nil
}

func (t *txn) conflictFor(ctx context.Context, c *Candidate) (*MergeConflict, error) {
	mc := &MergeConflict{
		FileID:         c.FileID,
		ChildBranchID:  c.ChildBranchID,
		ParentBranchID: c.ParentBranchID,
	}
	var err error
	if c.Ancestor != nil {
		mc.AncestorRevisionID = c.Ancestor.ID
		if mc.Ancestor, err = t.hydrate(ctx, c.Ancestor.ID); err != nil {
			return nil, err
		}
	}
	if c.ParentTip != nil {
		mc.ParentRevisionID = c.ParentTip.ID
		if mc.Parent, err = t.hydrate(ctx, c.ParentTip.ID); err != nil {
			return nil, err
		}
	}
	if c.ChildTip != nil {
		mc.ChildRevisionID = c.ChildTip.ID
		if mc.Child, err = t.hydrate(ctx, c.ChildTip.ID); err != nil {
			return nil, err
		}
	}
	if c.NameDiverged() {
		mc.ChildName, mc.ParentName = c.ChildName, c.ParentName
	}
	return mc, nil
}

func (t *txn) fastForward(ctx context.Context, child, parent *Branch, parentScopes []Scope, c *Candidate, author string) (*PromotionResult, error) {
	if _, err := t.checkLock(ctx, c.FileID, parent.ID, author, false); err != nil {
		return nil, err
	}

	commit, err := t.newCommit(ctx, author, fmt.Sprintf("promote %s file %d from %s", c.Type, c.FileID, child.Name))
	if err != nil {
		return nil, err
	}
	res := &PromotionResult{Candidate: c, CommitID: commit.ID}

	switch c.Type {
	case PromotionDeleted:
		res.Name, err = t.insertFileName(ctx, parent, c.ParentName, commit, ReasonPromote,
			func(next *FileName) { next.Deleted = true })
		if err != nil {
			return nil, err
		}

	case PromotionCreated:
		if _, err := t.visibleDirectory(ctx, parentScopes, c.ChildName.DirectoryID); err != nil {
			return nil, fmt.Errorf("promoting file %d: %w", c.FileID, err)
		}
		if err := t.requireFreeName(ctx, parentScopes, c.ChildName.DirectoryID, c.ChildName.Name); err != nil {
			return nil, err
		}
		res.Name, err = t.insertFileName(ctx, parent, c.ChildName, commit, ReasonPromote,
			func(next *FileName) { next.Deleted = false })
		if err != nil {
			return nil, err
		}
		if res.Revision, err = t.promoteContent(ctx, parent, c, commit, 0); err != nil {
			return nil, err
		}

	default:
		if c.ContentChanged {
			base := int64(0)
			if c.ParentTip != nil {
				base = c.ParentTip.ID
			}
			if res.Revision, err = t.promoteContent(ctx, parent, c, commit, base); err != nil {
				return nil, err
			}
		}
		if c.Type != PromotionSimple {
			if _, err := t.visibleDirectory(ctx, parentScopes, c.ChildName.DirectoryID); err != nil {
				return nil, fmt.Errorf("promoting file %d: %w", c.FileID, err)
			}
			if err := t.requireFreeName(ctx, parentScopes, c.ChildName.DirectoryID, c.ChildName.Name); err != nil {
				return nil, err
			}
			res.Name, err = t.insertFileName(ctx, parent, c.ParentName, commit, ReasonPromote,
				func(next *FileName) {
					next.DirectoryID = c.ChildName.DirectoryID
					next.Name = c.ChildName.Name
				})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := t.tx.MarkRevisionsPromoted(ctx, c.FileID, child.ID, commit.ID); err != nil {
		return nil, fmt.Errorf("marking revisions promoted: %w", err)
	}
	if err := t.tx.MarkFileNamesPromoted(ctx, c.FileID, child.ID, commit.ID); err != nil {
		return nil, fmt.Errorf("marking file names promoted: %w", err)
	}
	if err := t.tx.DeletePromotionCandidate(ctx, c.FileID, child.ID); err != nil {
		return nil, fmt.Errorf("clearing promotion candidate: %w", err)
	}
	return res, nil
}

func (t *txn) promoteContent(ctx context.Context, parent *Branch, c *Candidate, commit *Commit, base int64) (*FileRevision, error) {
	content, err := t.hydrate(ctx, c.ChildTip.ID)
	if err != nil {
		return nil, err
	}
	return t.appendRevision(ctx, parent, c.FileID, commit, content, describe(c.ChildTip.Description, "promoted"), base)
}

// PromoteAll promotes every candidate of a feature branch, one file per
// transaction. Conflicts are returned in the results; a failure on one
// file does not stop the others.
func (e *Engine) PromoteAll(ctx context.Context, childBranchID int64, author string) ([]*PromotionResult, error) {
	cands, err := e.ComputePromotionCandidates(ctx, childBranchID, CandidateOptions{})
	if err != nil {
		return nil, err
	}

	var results []*PromotionResult
	var errs []error
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := e.Promote(ctx, PromoteRequest{FileID: c.FileID, ChildBranchID: childBranchID, Author: author})
		if err != nil {
			errs = append(errs, fmt.Errorf("promoting file %d: %w", c.FileID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
