package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

// normalizePath resolves a path to an absolute, symlink-free form. Relative
// paths are resolved against baseDir. For paths that do not exist yet (a
// file about to be written), the deepest existing ancestor is resolved and
// the remainder is re-joined, so a symlinked parent cannot smuggle the
// target outside the sandbox.
func normalizePath(path, baseDir string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	// Walk up to the deepest ancestor that exists.
	ancestor := path
	var tail []string
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return path, nil // hit the root without finding anything real
		}
		tail = append(tail, filepath.Base(ancestor))
		ancestor = parent

		resolved, err = filepath.EvalSymlinks(ancestor)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}

	for i := len(tail) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, tail[i])
	}
	return resolved, nil
}

// withinDir reports whether path sits inside dir (or is dir itself), using
// a separator-aware prefix check so /tmp/workspace2 does not pass for
// /tmp/workspace.
func withinDir(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
