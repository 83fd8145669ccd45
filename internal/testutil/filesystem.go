package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	qfs "qvcs-go/internal/fs"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// absolute and use '/' separators.
type MockFilesystemManager struct {
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem, creating missing parents.
func (m *MockFilesystemManager) AddFile(p string, content []byte) {
	m.addParents(p)
	m.files[path.Clean(p)] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem, creating missing parents.
func (m *MockFilesystemManager) AddDirectory(p string) {
	m.addParents(p)
	m.files[path.Clean(p)] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

func (m *MockFilesystemManager) addParents(p string) {
	for dir := path.Dir(path.Clean(p)); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := m.files[dir]; ok {
			return
		}
		m.files[dir] = &MockFile{Permissions: 0755, ModTime: time.Now(), IsDirectory: true}
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*qfs.Path, error) {
	absPath := path.Clean(filepath.ToSlash(rawPath))
	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	info := &mockFileInfo{
		name:    path.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
	return qfs.NewPath(absPath, file.IsDirectory, info), nil
}

func (m *MockFilesystemManager) Open(p *qfs.Path) (io.ReadCloser, error) {
	file, ok := m.files[p.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", p.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", p.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) ReadFile(root *qfs.Path, rel string) ([]byte, error) {
	file, ok := m.files[path.Join(root.String(), rel)]
	if !ok || file.IsDirectory {
		return nil, fmt.Errorf("reading %s: file not found", rel)
	}
	return bytes.Clone(file.Content), nil
}

// Walk lists every entry under root, parents before children. Ignore
// rules are not applied.
func (m *MockFilesystemManager) Walk(root *qfs.Path) ([]*qfs.Entry, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}
	prefix := root.String() + "/"

	var entries []*qfs.Entry
	for p, file := range m.files {
		rel, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		entries = append(entries, &qfs.Entry{RelPath: rel, IsDir: file.IsDirectory, Size: int64(len(file.Content))})
	}
	sort.Slice(entries, func(i, j int) bool {
		di, dj := strings.Count(entries[i].RelPath, "/"), strings.Count(entries[j].RelPath, "/")
		if di != dj {
			return di < dj
		}
		return entries[i].RelPath < entries[j].RelPath
	})
	return entries, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ qfs.FilesystemManager = (*MockFilesystemManager)(nil)
