package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"qvcs-go/internal/qvcs"
)

func TestMemoryVault_PutAndGetSnapshot(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		item    string
		content string
	}{
		{name: "store and retrieve snapshot", item: "qvcs.db", content: "sqlite bytes"},
		{name: "store empty snapshot", item: "empty.db", content: ""},
		{name: "store large snapshot", item: "large.db", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := vault.PutSnapshot(ctx, "server-1", tt.item, r, int64(len(tt.content)), 3); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetSnapshot(ctx, "server-1", tt.item, &buf); err != nil {
				t.Fatalf("GetSnapshot() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetSnapshot() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_SnapshotVersion(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	v, err := vault.SnapshotVersion(ctx, "server-1", "qvcs.db")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if v != 0 {
		t.Errorf("SnapshotVersion() before put = %d, want 0", v)
	}

	data := "db"
	if err := vault.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(data), int64(len(data)), 42); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	v, err = vault.SnapshotVersion(ctx, "server-1", "qvcs.db")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if v != 42 {
		t.Errorf("SnapshotVersion() = %d, want 42", v)
	}

	// other servers are isolated
	v, _ = vault.SnapshotVersion(ctx, "server-2", "qvcs.db")
	if v != 0 {
		t.Errorf("SnapshotVersion(server-2) = %d, want 0", v)
	}
}

func TestMemoryVault_GetSnapshotNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetSnapshot(context.Background(), "nonexistent", "qvcs.db", &buf)
	if !errors.Is(err, qvcs.ErrSnapshotNotFound) {
		t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestMemoryVault_PutSnapshotSizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "test"
	err := vault.PutSnapshot(context.Background(), "server-1", "qvcs.db", strings.NewReader(content), int64(len(content)+10), 1)
	if err == nil {
		t.Error("PutSnapshot() expected error for size mismatch, got nil")
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}
