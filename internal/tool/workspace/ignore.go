package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreMatcher applies the root .gitignore. A nil matcher ignores nothing.
type ignoreMatcher struct {
	matcher gitignore.Matcher
}

// loadIgnore reads .gitignore from root. A missing file is not an error.
func loadIgnore(root string) (*ignoreMatcher, error) {
	path := filepath.Join(root, ".gitignore")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ignoreMatcher{}, nil
	}
	if err != nil {
		return nil, &IgnoreReadError{Path: path, Cause: err}
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &ignoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore reports whether the slash-separated relative path is ignored.
func (m *ignoreMatcher) ShouldIgnore(rel string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.Match(splitPath(rel), isDir)
}

// splitPath splits a path into segments for gitignore matching,
// dropping empty and "." segments.
func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
