package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// defaultIgnorePatterns are always applied regardless of config or the ignore file.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignorePattern is a compiled ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	glob      glob.Glob
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path from the directory root;
// '*' stops at '/', '**' does not.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines, lines starting with '#' and patterns that do not compile are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range append(append([]string{}, defaultIgnorePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{pattern: raw, matchPath: strings.Contains(raw, "/")}
		var err error
		if p.matchPath {
			p.glob, err = glob.Compile(strings.TrimPrefix(raw, "/"), '/')
		} else {
			p.glob, err = glob.Compile(raw)
		}
		if err != nil {
			continue
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// relativePath may use either separator and is relative to the directory root.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := path.Base(normalized)

	for _, p := range m.patterns {
		target := basename
		if p.matchPath {
			target = normalized
		}
		if p.glob.Match(target) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
