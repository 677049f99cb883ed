package workspace

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Resolve maps a workspace-relative path to an absolute one, refusing
// anything that would land outside the root. Absolute inputs and ".."
// traversal are both rejected rather than silently re-rooted.
func (s *State) Resolve(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return s.root, nil
	}
	if filepath.IsAbs(relPath) {
		return "", errors.Errorf("path %q must be relative to the workspace", relPath)
	}

	abs := filepath.Join(s.root, filepath.Clean(relPath))
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %q", relPath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes the workspace", relPath)
	}

	return abs, nil
}

// Rel converts an absolute path under the root back to its
// workspace-relative form, with forward slashes for wire use.
func (s *State) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
