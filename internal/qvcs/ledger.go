package qvcs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownCommit is returned when no commit matches a lookup.
var ErrUnknownCommit = errors.New("unknown commit")

// newCommit appends an entry to the commit ledger. Ids are assigned by the
// store inside the serialised write transaction, so they strictly increase
// in commit order. Timestamps never run backwards even if the clock does.
func (t *txn) newCommit(ctx context.Context, author, message string) (*Commit, error) {
	if author == "" {
		return nil, fmt.Errorf("%w: commit requires an author", ErrInvalidRequest)
	}

	at := t.e.clock.Now().UTC()
	last, err := t.tx.NewestCommit(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading newest commit: %w", err)
	}
	if last != nil && at.Before(last.CommittedAt) {
		at = last.CommittedAt
	}

	c, err := t.tx.InsertCommit(ctx, author, message, at)
	if err != nil {
		return nil, fmt.Errorf("inserting commit: %w", err)
	}
	return c, nil
}

// commitAt returns the newest commit made at or before at, or nil.
func (t *txn) commitAt(ctx context.Context, at time.Time) (*Commit, error) {
	commits, err := t.tx.ListCommits(ctx, -1)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}
	for _, c := range commits {
		if !c.CommittedAt.After(at) {
			return c, nil
		}
	}
	return nil, nil
}

// Commits returns up to limit commits, newest first. A negative limit
// returns all of them.
func (e *Engine) Commits(ctx context.Context, limit int) ([]*Commit, error) {
	var out []*Commit
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.tx.ListCommits(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}
	return out, nil
}

// CommitAt returns the newest commit made at or before at.
func (e *Engine) CommitAt(ctx context.Context, at time.Time) (*Commit, error) {
	var out *Commit
	err := e.view(ctx, func(t *txn) error {
		var err error
		out, err = t.commitAt(ctx, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: none at or before %s", ErrUnknownCommit, at.Format(time.RFC3339))
	}
	return out, nil
}
