package qvcs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"qvcs-go/internal/delta"
)

// hydrate rebuilds the content of revisionID. It follows reverse-delta
// targets until it reaches a literal (or memoised) revision, then applies
// the collected scripts newest to oldest. Cycles and dangling targets are
// reported as ErrCorruptDeltaChain.
func (t *txn) hydrate(ctx context.Context, revisionID int64) ([]byte, error) {
	if content, ok := t.content.Get(revisionID); ok {
		return bytes.Clone(content), nil
	}

	var chain []*FileRevision
	var prev *FileRevision
	visited := make(map[int64]bool)
	var content []byte
	for id := revisionID; ; {
		if cached, ok := t.content.Get(id); ok {
			content = cached
			break
		}
		if visited[id] {
			return nil, fmt.Errorf("%w: cycle at revision %d", ErrCorruptDeltaChain, id)
		}
		visited[id] = true

		rev, err := t.tx.FindRevision(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("finding revision: %w", err)
		}
		if rev == nil {
			if id == revisionID {
				return nil, fmt.Errorf("revision %d: %w", id, ErrRevisionNotFound)
			}
			return nil, fmt.Errorf("%w: dangling target %d", ErrCorruptDeltaChain, id)
		}
		if prev != nil && rev.FileID != prev.FileID {
			return nil, fmt.Errorf("%w: revision %d targets revision %d of another file", ErrCorruptDeltaChain, prev.ID, id)
		}
		prev = rev

		if rev.IsTip() {
			content, err = t.literal(rev)
			if err != nil {
				return nil, err
			}
			t.content.Add(rev.ID, content)
			break
		}
		chain = append(chain, rev)
		id = rev.ReverseDeltaRevisionID
	}

	for i := len(chain) - 1; i >= 0; i-- {
		rev := chain[i]
		script, err := delta.Decode(rev.Data, rev.Compression)
		if err != nil {
			return nil, fmt.Errorf("%w: revision %d: %v", ErrCorruptDeltaChain, rev.ID, err)
		}
		next, err := delta.Apply(content, script)
		if err != nil {
			return nil, fmt.Errorf("%w: revision %d: %v", ErrCorruptDeltaChain, rev.ID, err)
		}
		if err := verify(rev, next); err != nil {
			return nil, err
		}
		t.content.Add(rev.ID, next)
		content = next
	}
	return bytes.Clone(content), nil
}

// literal decodes the full content stored on a tip revision.
func (t *txn) literal(rev *FileRevision) ([]byte, error) {
	if !rev.IsTip() {
		return nil, fmt.Errorf("%w: revision %d holds a delta", ErrCorruptDeltaChain, rev.ID)
	}
	content, err := delta.Decode(rev.Data, rev.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: revision %d: %v", ErrCorruptDeltaChain, rev.ID, err)
	}
	if err := verify(rev, content); err != nil {
		return nil, err
	}
	return content, nil
}

func verify(rev *FileRevision, content []byte) error {
	if int64(len(content)) != rev.RawSize {
		return fmt.Errorf("%w: revision %d rebuilt %d bytes, expected %d", ErrCorruptDeltaChain, rev.ID, len(content), rev.RawSize)
	}
	if len(rev.Digest) > 0 {
		sum := sha256.Sum256(content)
		if !bytes.Equal(sum[:], rev.Digest) {
			return fmt.Errorf("%w: revision %d digest mismatch", ErrCorruptDeltaChain, rev.ID)
		}
	}
	return nil
}
