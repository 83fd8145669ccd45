package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"qvcs-go/internal/qvcs"
)

// FileSystemVault stores snapshots as files in a directory tree:
//
//	<root>/
//	  snapshots/
//	    <serverID>/
//	      <name>           (snapshot bytes)
//	      <name>.version   (decimal version)
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

// snapshotPath returns the file holding serverID/name. Both must be single
// path elements.
func (v *FileSystemVault) snapshotPath(serverID, name string) (string, error) {
	for _, part := range []string{serverID, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("invalid snapshot path element %q", part)
		}
	}
	return filepath.Join(v.snapshotsDir, serverID, name), nil
}

// PutSnapshot atomically replaces the snapshot and then its version file.
func (v *FileSystemVault) PutSnapshot(_ context.Context, serverID, name string, r io.Reader, size int64, version int64) error {
	p, err := v.snapshotPath(serverID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create server directory: %w", err)
	}
	if err := writeFileAtomic(p, r, size); err != nil {
		return err
	}
	versionData := strconv.FormatInt(version, 10)
	return writeFileAtomic(p+".version", strings.NewReader(versionData), int64(len(versionData)))
}

// GetSnapshot writes the stored snapshot to w.
func (v *FileSystemVault) GetSnapshot(_ context.Context, serverID, name string, w io.Writer) error {
	p, err := v.snapshotPath(serverID, name)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s/%s: %w", serverID, name, qvcs.ErrSnapshotNotFound)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns the stored version, or 0 if no version file exists.
func (v *FileSystemVault) SnapshotVersion(_ context.Context, serverID, name string) (int64, error) {
	p, err := v.snapshotPath(serverID, name)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(p + ".version")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}
	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the snapshots directory exists and is writable.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe := filepath.Join(v.snapshotsDir, ".probe-"+uuid.NewString())
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("vault directory not writable: %w", err)
	}
	return os.Remove(probe)
}

// writeFileAtomic writes exactly size bytes from r to destPath via a temp
// file in the same directory and a rename.
func writeFileAtomic(destPath string, r io.Reader, size int64) error {
	tmpPath := filepath.Join(filepath.Dir(destPath), ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

var _ qvcs.Vault = (*FileSystemVault)(nil)
