package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolver maps tool paths onto the workspace root and rejects escapes.
type resolver struct {
	root string
}

// canonicaliseRoot makes root absolute and resolves symlinks.
// It fails if the path doesn't exist or isn't a directory.
func canonicaliseRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Root: root, Cause: err}
	}

	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", &RootError{Root: absRoot, Cause: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", &RootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &RootError{Root: resolved, Cause: fmt.Errorf("%w: %s", ErrNotADirectory, resolved)}
	}
	return resolved, nil
}

// Abs resolves path to an absolute path inside the root.
// Relative paths are joined to the root; absolute paths must already be inside it.
func (r *resolver) Abs(path string) (string, error) {
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(r.root, path))
	}

	if abs != r.root && !strings.HasPrefix(abs, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, path)
	}

	// A symlink inside the root may still point outside of it. Paths that
	// don't exist yet are checked through their deepest existing ancestor.
	if resolved, ok := r.resolveExisting(abs); ok {
		if resolved != r.root && !strings.HasPrefix(resolved, r.root+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, path)
		}
	}

	return abs, nil
}

// resolveExisting evaluates symlinks on abs or its deepest existing
// ancestor below the root. The root itself is already canonical.
func (r *resolver) resolveExisting(abs string) (string, bool) {
	prefix := r.root + string(filepath.Separator)
	for p := abs; strings.HasPrefix(p, prefix); p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return resolved, true
		}
	}
	return "", false
}

// Rel returns abs relative to the root with forward slashes. The root is ".".
func (r *resolver) Rel(abs string) string {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
