package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
}

func TestJSON(t *testing.T) {
	out, err := Get().JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"gitCommit"`)
}
