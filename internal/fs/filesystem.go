package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// IgnoreFileName is read from the root of every walked tree.
const IgnoreFileName = ".qvcsignore"

// OSFilesystemManager reads local work trees for import.
type OSFilesystemManager struct {
	ignore []string
}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
// ignore patterns apply to every walk in addition to the tree's own ignore file.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignore}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// ReadFile reads the file at rel under root.
func (m *OSFilesystemManager) ReadFile(root *Path, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root.String(), filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// Walk lists the directories and regular files under root, parents before
// children. Ignored directories are not descended into. Symlinks and
// special files are skipped.
func (m *OSFilesystemManager) Walk(root *Path) ([]*Entry, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	fromFile, err := ParseIgnoreFile(filepath.Join(root.String(), IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, m.ignore...), fromFile...))

	var entries []*Entry
	err = filepath.WalkDir(root.String(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root.String() {
			return nil
		}
		rel, err := filepath.Rel(root.String(), p)
		if err != nil {
			return err
		}
		if matcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			entries = append(entries, &Entry{RelPath: filepath.ToSlash(rel), IsDir: true})
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		entries = append(entries, &Entry{RelPath: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	// WalkDir is lexical per directory; keep that but guarantee parents first
	sort.SliceStable(entries, func(i, j int) bool {
		return depth(entries[i].RelPath) < depth(entries[j].RelPath)
	})
	return entries, nil
}

func depth(rel string) int {
	n := 0
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			n++
		}
	}
	return n
}

var _ FilesystemManager = (*OSFilesystemManager)(nil)
