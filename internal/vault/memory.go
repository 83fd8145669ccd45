package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"qvcs-go/internal/qvcs"
)

// MemoryVault keeps snapshots in memory. It is safe for concurrent use
// and intended for tests and throwaway servers.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte
	versions  map[string]int64
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
		versions:  make(map[string]int64),
	}
}

func snapshotKey(serverID, name string) string {
	return serverID + "/" + name
}

// PutSnapshot stores a snapshot together with its version.
func (m *MemoryVault) PutSnapshot(_ context.Context, serverID, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := snapshotKey(serverID, name)
	m.snapshots[key] = data
	m.versions[key] = version
	return nil
}

// GetSnapshot writes the stored snapshot to w.
func (m *MemoryVault) GetSnapshot(_ context.Context, serverID, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshots[snapshotKey(serverID, name)]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s/%s: %w", serverID, name, qvcs.ErrSnapshotNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns the stored version, or 0 if none.
func (m *MemoryVault) SnapshotVersion(_ context.Context, serverID, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[snapshotKey(serverID, name)], nil
}

// ValidateSetup always succeeds for an in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

var _ qvcs.Vault = (*MemoryVault)(nil)
