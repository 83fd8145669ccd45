package fs

import (
	"io"
	"io/fs"
)

// Path represents a validated filesystem path with cached metadata.
// Path objects are created by Resolve, which checks the path exists,
// makes it absolute and caches its stat info.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		isDir:   isDir,
		info:    info,
	}
}

// String returns the absolute path as a string.
func (p *Path) String() string {
	return p.absPath
}

// IsDir returns true if this path points to a directory.
func (p *Path) IsDir() bool {
	return p.isDir
}

// Info returns the cached file info from when the path was resolved.
func (p *Path) Info() fs.FileInfo {
	return p.info
}

// Entry is one item found under a walked directory. RelPath uses '/'
// separators and is relative to the walk root.
type Entry struct {
	RelPath string
	IsDir   bool
	Size    int64
}

// FilesystemManager reads work trees from disk.
type FilesystemManager interface {
	// Resolve validates a raw path and returns it with cached stat info.
	Resolve(rawPath string) (*Path, error)
	// Open opens a resolved regular file for reading.
	Open(path *Path) (io.ReadCloser, error)
	// Walk lists the directories and files under root, parents first.
	Walk(root *Path) ([]*Entry, error)
	// ReadFile reads the file at rel (slash separated) under root.
	ReadFile(root *Path, rel string) ([]byte, error)
}
