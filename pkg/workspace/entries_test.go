package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries(t *testing.T) {
	state := newTestState(t)
	writeWorkspaceFile(t, state, "sketches/wave.html", "x")
	writeWorkspaceFile(t, state, "notes.md", "x")
	writeWorkspaceFile(t, state, ".hidden", "x")

	entries, err := state.Entries("")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "sketches", Type: "directory"},
		{Name: "notes.md", Type: "file"},
	}, entries)

	nested, err := state.Entries("sketches")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "wave.html", Type: "file"}}, nested)

	_, err = state.Entries("../outside")
	assert.Error(t, err)
}
