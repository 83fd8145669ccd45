package qvcs

import (
	"context"
	"fmt"
	"time"
)

// branch loads a live branch.
func (t *txn) branch(ctx context.Context, id int64) (*Branch, error) {
	b, err := t.tx.FindBranch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if b == nil || b.Deleted {
		return nil, fmt.Errorf("branch %d: %w", id, ErrUnknownBranch)
	}
	return b, nil
}

// writableBranch loads a live branch that accepts writes.
func (t *txn) writableBranch(ctx context.Context, id int64) (*Branch, error) {
	b, err := t.branch(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Type.ReadOnly() {
		return nil, fmt.Errorf("branch %q: %w", b.Name, ErrReadOnlyBranch)
	}
	return b, nil
}

// ancestry returns branchID followed by its parent, grandparent and so on
// up to the trunk. Deleted branches may be read but never written.
func (t *txn) ancestry(ctx context.Context, branchID int64) ([]*Branch, error) {
	var chain []*Branch
	seen := make(map[int64]bool)
	for id := branchID; id != 0; {
		if seen[id] {
			return nil, fmt.Errorf("%w: branch %d is its own ancestor", ErrUnknownBranch, id)
		}
		seen[id] = true

		b, err := t.tx.FindBranch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("finding branch: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("branch %d: %w", id, ErrUnknownBranch)
		}
		chain = append(chain, b)
		id = b.ParentBranchID
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("branch %d: %w", branchID, ErrUnknownBranch)
	}
	return chain, nil
}

// scopeOf returns the ancestry of branchID with the commit ceiling that
// applies to each member. A release branch caps its parents at its own
// creation commit. A read-only view caps everything at its view commit.
// Feature branches impose no cap, so later parent changes stay visible.
func (t *txn) scopeOf(ctx context.Context, branchID, ceiling int64) ([]Scope, error) {
	key := scopeKey{branchID: branchID, ceiling: ceiling}
	if s, ok := t.scopes[key]; ok {
		return s, nil
	}

	chain, err := t.ancestry(ctx, branchID)
	if err != nil {
		return nil, err
	}

	limit := ceiling
	scopes := make([]Scope, 0, len(chain))
	for _, b := range chain {
		if b.Type.ReadOnly() {
			vc, err := t.viewCommit(ctx, b)
			if err != nil {
				return nil, err
			}
			limit = min(limit, vc)
		}
		scopes = append(scopes, Scope{Branch: b, Ceiling: limit})
		if b.Type == BranchTypeRelease {
			limit = min(limit, b.CommitID)
		}
	}

	t.scopes[key] = scopes
	return scopes, nil
}

// viewCommit is the commit a read-only branch looks at. Tag views follow
// the tag, so moving a moveable tag moves the view.
func (t *txn) viewCommit(ctx context.Context, b *Branch) (int64, error) {
	switch b.Type {
	case BranchTypeReadOnlyTag:
		tag, err := t.tx.FindTag(ctx, b.TagID)
		if err != nil {
			return 0, fmt.Errorf("finding tag: %w", err)
		}
		if tag == nil {
			return 0, fmt.Errorf("branch %q tag %d: %w", b.Name, b.TagID, ErrUnknownTag)
		}
		return tag.CommitID, nil
	case BranchTypeReadOnlyDate:
		return b.ViewCommitID, nil
	default:
		return NoCeiling, nil
	}
}

// CreateBranchRequest describes a new branch.
type CreateBranchRequest struct {
	ParentBranchID int64
	Name           string
	Type           BranchType
	// TagText names a tag on the parent. Required for BranchTypeReadOnlyTag.
	TagText string
	// AsOf selects the viewed commit. Required for BranchTypeReadOnlyDate.
	AsOf   time.Time
	Author string
}

// CreateBranch adds a branch under an existing, writable parent.
func (e *Engine) CreateBranch(ctx context.Context, req CreateBranchRequest) (*Branch, error) {
	if err := validName(req.Name); err != nil {
		return nil, err
	}
	if req.Type == BranchTypeTrunk || req.Type.String() == "unknown" {
		return nil, fmt.Errorf("%w: cannot create a %s branch", ErrInvalidRequest, req.Type)
	}

	var created *Branch
	err := e.update(ctx, func(t *txn) error {
		parent, err := t.writableBranch(ctx, req.ParentBranchID)
		if err != nil {
			return err
		}

		existing, err := t.tx.FindBranchByName(ctx, parent.ProjectID, req.Name)
		if err != nil {
			return fmt.Errorf("finding branch: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("branch %q: %w", req.Name, ErrAlreadyExists)
		}

		b := &Branch{
			ProjectID:      parent.ProjectID,
			Name:           req.Name,
			ParentBranchID: parent.ID,
			Type:           req.Type,
		}

		switch req.Type {
		case BranchTypeReadOnlyTag:
			tag, err := t.tx.FindTagByText(ctx, parent.ID, req.TagText)
			if err != nil {
				return fmt.Errorf("finding tag: %w", err)
			}
			if tag == nil {
				return fmt.Errorf("tag %q on %q: %w", req.TagText, parent.Name, ErrUnknownTag)
			}
			b.TagID = tag.ID
		case BranchTypeReadOnlyDate:
			c, err := t.commitAt(ctx, req.AsOf)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("%w: no commit at or before %s", ErrUnknownCommit, req.AsOf.Format(time.RFC3339))
			}
			b.ViewCommitID = c.ID
		}

		c, err := t.newCommit(ctx, req.Author, "create branch "+req.Name)
		if err != nil {
			return err
		}
		b.CommitID = c.ID

		created, err = t.tx.InsertBranch(ctx, b)
		if err != nil {
			return fmt.Errorf("inserting branch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("branch created", "branch", created.Name, "branch_id", created.ID,
		"type", created.Type.String(), "parent_id", created.ParentBranchID)
	return created, nil
}

// DeleteBranch flags a branch as deleted. The trunk and branches with live
// children cannot be deleted. History remains readable.
func (e *Engine) DeleteBranch(ctx context.Context, branchID int64, author string) error {
	err := e.update(ctx, func(t *txn) error {
		b, err := t.branch(ctx, branchID)
		if err != nil {
			return err
		}
		if b.Type == BranchTypeTrunk {
			return fmt.Errorf("%w: the trunk cannot be deleted", ErrInvalidRequest)
		}
		children, err := t.tx.ListLiveChildBranches(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("listing child branches: %w", err)
		}
		if len(children) > 0 {
			return fmt.Errorf("%w: branch %q has %d live child branches", ErrInvalidRequest, b.Name, len(children))
		}

		c, err := t.newCommit(ctx, author, "delete branch "+b.Name)
		if err != nil {
			return err
		}
		if err := t.tx.MarkBranchDeleted(ctx, b.ID, c.ID); err != nil {
			return fmt.Errorf("deleting branch: %w", err)
		}
		if err := t.tx.DeleteBranchPromotionCandidates(ctx, b.ID); err != nil {
			return fmt.Errorf("clearing promotion candidates: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("branch deleted", "branch_id", branchID)
	return nil
}

// Branch looks up a live branch by project and name.
func (e *Engine) Branch(ctx context.Context, projectID int64, name string) (*Branch, error) {
	var b *Branch
	err := e.view(ctx, func(t *txn) error {
		var err error
		b, err = t.tx.FindBranchByName(ctx, projectID, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if b == nil || b.Deleted {
		return nil, fmt.Errorf("branch %q: %w", name, ErrUnknownBranch)
	}
	return b, nil
}

// Branches lists a project's live branches in creation order.
func (e *Engine) Branches(ctx context.Context, projectID int64) ([]*Branch, error) {
	var out []*Branch
	err := e.view(ctx, func(t *txn) error {
		all, err := t.tx.ListBranches(ctx, projectID)
		if err != nil {
			return err
		}
		for _, b := range all {
			if !b.Deleted {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return out, nil
}

// Ancestry returns branchID and its ancestors, nearest first.
func (e *Engine) Ancestry(ctx context.Context, branchID int64) ([]*Branch, error) {
	var out []*Branch
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.ancestry(ctx, branchID)
		return err
	})
	return out, err
}

// ChildCount reports how many live branches of projectID have branchID
// as their parent.
func (e *Engine) ChildCount(ctx context.Context, projectID, branchID int64) (int, error) {
	var n int
	err := e.view(ctx, func(t *txn) error {
		b, err := t.tx.FindBranch(ctx, branchID)
		if err != nil {
			return fmt.Errorf("finding branch: %w", err)
		}
		if b == nil || b.ProjectID != projectID {
			return fmt.Errorf("branch %d: %w", branchID, ErrUnknownBranch)
		}
		children, err := t.tx.ListLiveChildBranches(ctx, branchID)
		if err != nil {
			return fmt.Errorf("listing child branches: %w", err)
		}
		n = len(children)
		return nil
	})
	return n, err
}
