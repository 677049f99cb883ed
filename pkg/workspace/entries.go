package workspace

import (
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Entry is one item in a directory listing, for the HTTP file browser.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Entries lists a workspace directory non-recursively, directories
// first, with the same ignore rules as the list_files tool.
func (s *State) Entries(relPath string) ([]Entry, error) {
	abs, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", relPath)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		if ignored(e.Name()) {
			continue
		}
		entryType := "file"
		if e.IsDir() {
			entryType = "directory"
		}
		entries = append(entries, Entry{Name: e.Name(), Type: entryType})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == "directory"
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
