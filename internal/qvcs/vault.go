package qvcs

import (
	"context"
	"io"
)

// Vault stores point-in-time snapshots of a server's store off the host.
// Each named item carries a version; the application uses the id of the
// operation that produced the snapshot.
type Vault interface {
	// PutSnapshot stores size bytes read from r under serverID/name.
	PutSnapshot(ctx context.Context, serverID, name string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the stored item to w.
	GetSnapshot(ctx context.Context, serverID, name string, w io.Writer) error

	// SnapshotVersion returns the stored version, or 0 if nothing is stored.
	SnapshotVersion(ctx context.Context, serverID, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
