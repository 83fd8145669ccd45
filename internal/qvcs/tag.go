package qvcs

import (
	"context"
	"fmt"
	"strings"
)

// CreateTag labels the newest commit on a branch. Tag text is unique per
// branch.
func (e *Engine) CreateTag(ctx context.Context, branchID int64, text string, moveable bool) (*Tag, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty tag", ErrInvalidRequest)
	}
	var out *Tag
	err := e.update(ctx, func(t *txn) error {
		b, err := t.writableBranch(ctx, branchID)
		if err != nil {
			return err
		}
		existing, err := t.tx.FindTagByText(ctx, b.ID, text)
		if err != nil {
			return fmt.Errorf("finding tag: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("tag %q on %q: %w", text, b.Name, ErrAlreadyExists)
		}
		newest, err := t.tx.NewestCommit(ctx)
		if err != nil {
			return fmt.Errorf("reading newest commit: %w", err)
		}
		if newest == nil {
			return fmt.Errorf("%w: no commits to tag", ErrUnknownCommit)
		}
		out, err = t.tx.InsertTag(ctx, &Tag{BranchID: b.ID, Text: text, CommitID: newest.ID, Moveable: moveable})
		if err != nil {
			return fmt.Errorf("inserting tag: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("tag created", "branch_id", branchID, "tag", text, "commit_id", out.CommitID)
	return out, nil
}

// MoveTag points a moveable tag at a later commit. A zero commitID moves
// it to the newest commit. Read-only views built on the tag follow it.
func (e *Engine) MoveTag(ctx context.Context, branchID int64, text string, commitID int64) (*Tag, error) {
	var out *Tag
	err := e.update(ctx, func(t *txn) error {
		tag, err := t.tx.FindTagByText(ctx, branchID, text)
		if err != nil {
			return fmt.Errorf("finding tag: %w", err)
		}
		if tag == nil {
			return fmt.Errorf("tag %q: %w", text, ErrUnknownTag)
		}
		if !tag.Moveable {
			return fmt.Errorf("tag %q: %w", text, ErrTagNotMoveable)
		}

		var target *Commit
		if commitID == 0 {
			target, err = t.tx.NewestCommit(ctx)
		} else {
			target, err = t.tx.FindCommit(ctx, commitID)
		}
		if err != nil {
			return fmt.Errorf("finding commit: %w", err)
		}
		if target == nil {
			return fmt.Errorf("commit %d: %w", commitID, ErrUnknownCommit)
		}
		if target.ID < tag.CommitID {
			return fmt.Errorf("%w: tag %q cannot move back from commit %d to %d", ErrInvalidRequest, text, tag.CommitID, target.ID)
		}

		if err := t.tx.UpdateTagCommit(ctx, tag.ID, target.ID); err != nil {
			return fmt.Errorf("moving tag: %w", err)
		}
		tag.CommitID = target.ID
		out = tag
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("tag moved", "branch_id", branchID, "tag", text, "commit_id", out.CommitID)
	return out, nil
}

// Tag finds a tag by its text on a branch.
func (e *Engine) Tag(ctx context.Context, branchID int64, text string) (*Tag, error) {
	var out *Tag
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.tx.FindTagByText(ctx, branchID, text)
		if err != nil {
			return fmt.Errorf("finding tag: %w", err)
		}
		if out == nil {
			return fmt.Errorf("tag %q: %w", text, ErrUnknownTag)
		}
		return nil
	})
	return out, err
}

// Tags lists the tags on a branch.
func (e *Engine) Tags(ctx context.Context, branchID int64) ([]*Tag, error) {
	var out []*Tag
	err := e.view(ctx, func(t *txn) error {
		if _, err := t.branch(ctx, branchID); err != nil {
			return err
		}
		var err error
		out, err = t.tx.ListTags(ctx, branchID)
		return err
	})
	return out, err
}
