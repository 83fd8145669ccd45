package vault

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qvcs-go/internal/qvcs"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "snapshots")); err != nil {
			t.Errorf("snapshots directory not created: %v", err)
		}
		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		size    int64
		wantErr bool
	}{
		{name: "store snapshot successfully", data: "hello world", size: 11},
		{name: "size mismatch", data: "hello", size: 100, wantErr: true},
		{name: "empty snapshot", data: "", size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(tt.data), tt.size, 7)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}

			p := filepath.Join(v.snapshotsDir, "server-1", "qvcs.db")
			if tt.wantErr {
				if _, err := os.Stat(p); !os.IsNotExist(err) {
					t.Errorf("snapshot file exists after failed put: %v", err)
				}
				version, _ := v.SnapshotVersion(ctx, "server-1", "qvcs.db")
				if version != 0 {
					t.Errorf("SnapshotVersion() after failed put = %d, want 0", version)
				}
				return
			}

			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("failed to read snapshot file: %v", err)
			}
			if string(data) != tt.data {
				t.Errorf("snapshot = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemVault_PutSnapshot_Overwrites(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	for i, data := range []string{"version 1", "version 2"} {
		if err := v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(data), int64(len(data)), int64(i+1)); err != nil {
			t.Fatalf("PutSnapshot(%d) error = %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot(ctx, "server-1", "qvcs.db", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != "version 2" {
		t.Errorf("snapshot = %q, want %q", buf.String(), "version 2")
	}
	version, err := v.SnapshotVersion(ctx, "server-1", "qvcs.db")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("SnapshotVersion() = %d, want 2", version)
	}
}

func TestFileSystemVault_GetSnapshot(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	t.Run("snapshot not found", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetSnapshot(ctx, "server-1", "missing.db", &buf)
		if !errors.Is(err, qvcs.ErrSnapshotNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		var buf bytes.Buffer
		if err := v.GetSnapshot(ctx, "..", "qvcs.db", &buf); err == nil {
			t.Error("GetSnapshot() expected error for '..' server id")
		}
		if err := v.PutSnapshot(ctx, "server-1", "a/b", strings.NewReader(""), 0, 1); err == nil {
			t.Error("PutSnapshot() expected error for nested name")
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := v.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:         "test",
			root:         "/nonexistent/path",
			snapshotsDir: "/nonexistent/path/snapshots",
		}
		if err := v.ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := "hello world"
	if err := v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(data), int64(len(data)), 1); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	// a failed write must not leave its temp file behind either
	_ = v.PutSnapshot(ctx, "server-1", "qvcs.db", strings.NewReader(data), 1, 2)

	entries, err := os.ReadDir(filepath.Join(v.snapshotsDir, "server-1"))
	if err != nil {
		t.Fatalf("failed to read server dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
