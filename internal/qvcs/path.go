package qvcs

import (
	"fmt"
	"strings"
)

// SplitPath breaks a project-relative logical path into segments. Leading,
// trailing and repeated slashes are ignored; "." segments are dropped.
// The empty path (or "/") names the project root.
func SplitPath(p string) ([]string, error) {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: path %q escapes its directory", ErrInvalidRequest, p)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

// SplitFilePath separates a file path into its directory segments and
// short name.
func SplitFilePath(p string) ([]string, string, error) {
	segs, err := SplitPath(p)
	if err != nil {
		return nil, "", err
	}
	if len(segs) == 0 {
		return nil, "", fmt.Errorf("%w: %q does not name a file", ErrInvalidRequest, p)
	}
	return segs[:len(segs)-1], segs[len(segs)-1], nil
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segs ...string) string {
	return "/" + strings.Join(segs, "/")
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidRequest, name)
	}
	return nil
}
