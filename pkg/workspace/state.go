package workspace

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// State is the per-workspace mutable state shared by all tools: the
// root directory everything is resolved against and the file currently
// shown in the preview pane. Tools run concurrently across sessions,
// so access is guarded.
type State struct {
	root string

	mu          sync.RWMutex
	previewFile string
}

// NewState creates the workspace state, creating the root directory if
// it does not exist yet.
func NewState(root string) (*State, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating workspace root %s", root)
	}
	return &State{root: root}, nil
}

// Root returns the workspace root directory.
func (s *State) Root() string {
	return s.root
}

// SetPreview records the workspace-relative path shown in the preview
// pane.
func (s *State) SetPreview(relPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewFile = relPath
}

// Preview returns the workspace-relative path of the current preview
// file, or "" when nothing has been set.
func (s *State) Preview() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewFile
}
