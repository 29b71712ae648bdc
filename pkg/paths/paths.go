// Package paths implements the working-directory containment check that
// every filesystem-touching operation must pass before following a
// caller-supplied path.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve canonicalizes candidate relative to root and returns its
// absolute form. It fails if the canonical result is not root itself or
// a path nested beneath it. root must already be canonical (see
// Canonicalize).
func Resolve(root, candidate string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("no root directory configured")
	}
	if candidate == "" {
		return "", fmt.Errorf("empty path")
	}

	target := filepath.Clean(candidate)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}

	resolved, err := Canonicalize(target)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", candidate, err)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", fmt.Errorf("cannot determine relative path for %s: %w", candidate, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the working directory", candidate)
	}

	return resolved, nil
}

// Canonicalize returns the absolute, symlink-free form of path. The path
// itself does not have to exist: symlinks are evaluated on the deepest
// existing ancestor and the nonexistent remainder is rejoined, so a file
// about to be created still resolves.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var remainder []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, remainder...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			// Walked all the way up without finding anything.
			return abs, nil
		}
		remainder = append([]string{filepath.Base(existing)}, remainder...)
		existing = parent
	}
}
