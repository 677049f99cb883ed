package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, dir, content string) {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))
}

func fixtureSkillsDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeSkill(t, root, "particles", `---
name: particles
description: Generate swirling particle systems and trails
---
Use additive blending and cap the particle count at 10k.
`)

	writeSkill(t, root, "three-js", `---
name: threejs-meshes
description: Creates rotating 3D icosahedron meshes and wireframes with Three.js
---
Prefer BufferGeometry. Reuse materials across meshes.
`)
	refDir := filepath.Join(root, "three-js", "references")
	require.NoError(t, os.MkdirAll(refDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(refDir, "camera.md"), []byte("OrbitControls setup notes."), 0o644))

	// No frontmatter: loads with placeholder name and zero keywords.
	writeSkill(t, root, "zz-notes", "Freeform notes with no metadata.\n")

	// Stray file at the root is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("not a skill"), 0o644))

	return root
}

func TestLoadIndexMissingDir(t *testing.T) {
	idx := LoadIndex(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, idx.Skills())
	assert.Empty(t, idx.Match("anything at all"))
	assert.Empty(t, idx.PromptIndex())
}

func TestLoadIndexOutcomes(t *testing.T) {
	root := fixtureSkillsDir(t)
	idx := LoadIndex(context.Background(), root)

	require.Len(t, idx.Skills(), 3)
	// Sorted directory order is the load order.
	assert.Equal(t, "particles", idx.Skills()[0].Name)
	assert.Equal(t, "threejs-meshes", idx.Skills()[1].Name)
	assert.Equal(t, "zz-notes", idx.Skills()[2].Name)

	particles, ok := idx.Get("particles")
	require.True(t, ok)
	assert.Equal(t, ParsedOK, particles.Outcome)
	assert.Contains(t, particles.Keywords, "particle")
	assert.Contains(t, particles.Keywords, "swirl")

	notes, ok := idx.Get("zz-notes")
	require.True(t, ok)
	assert.Equal(t, ParsedWithDefaults, notes.Outcome)
	assert.Empty(t, notes.Keywords)
	assert.Equal(t, "Freeform notes with no metadata.\n", notes.Body)

	threejs, ok := idx.Get("threejs-meshes")
	require.True(t, ok)
	require.Len(t, threejs.References, 1)
	assert.Equal(t, "camera.md", threejs.References[0].Name)
}

func TestLoadIndexUnreadableSkillIsSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty-dir"), 0o755))

	idx := LoadIndex(context.Background(), root)
	assert.Empty(t, idx.Skills())
	require.Len(t, idx.Reports(), 1)
	assert.Equal(t, Skipped, idx.Reports()[0].Outcome)
	assert.Error(t, idx.Warnings())
}

func TestMatch(t *testing.T) {
	idx := LoadIndex(context.Background(), fixtureSkillsDir(t))

	t.Run("substring match on raw message", func(t *testing.T) {
		matched := idx.Match("Make me a spinning icosahedron with Three.js")
		require.Len(t, matched, 1)
		assert.Equal(t, "threejs-meshes", matched[0].Name)
	})

	t.Run("stemmed word-set match", func(t *testing.T) {
		matched := idx.Match("add more particles please")
		require.Len(t, matched, 1)
		assert.Equal(t, "particles", matched[0].Name)
	})

	t.Run("no relevant skill", func(t *testing.T) {
		assert.Empty(t, idx.Match("fix the resize bug"))
	})

	t.Run("load order preserved, no ranking", func(t *testing.T) {
		matched := idx.Match("particle wireframes everywhere")
		require.Len(t, matched, 2)
		assert.Equal(t, "particles", matched[0].Name)
		assert.Equal(t, "threejs-meshes", matched[1].Name)
	})

	t.Run("metadata-less skill never matches", func(t *testing.T) {
		assert.Empty(t, idx.Match("freeform notes metadata"))
	})
}

func TestMatchNameAloneIsNotEnough(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "aurora", `---
name: aurora
description: Gradient ribbons drifting slowly across a dark canvas
---
Layer translucent sine-driven ribbons with additive blending.
`)

	idx := LoadIndex(context.Background(), root)
	aurora, ok := idx.Get("aurora")
	require.True(t, ok)
	assert.NotContains(t, aurora.Keywords, "aurora")

	// The skill name appears verbatim in the message, but matching runs
	// on description keywords only.
	assert.Empty(t, idx.Match("draw an aurora over the city"))

	// Description keywords still match as usual.
	matched := idx.Match("ribbons of color please")
	require.Len(t, matched, 1)
	assert.Equal(t, "aurora", matched[0].Name)
}

func TestMatchIsDeterministic(t *testing.T) {
	idx := LoadIndex(context.Background(), fixtureSkillsDir(t))
	first := MatchedNames(idx.Match("rotating particle wireframes"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, MatchedNames(idx.Match("rotating particle wireframes")))
	}
}

func TestLoadIndexRoundTrip(t *testing.T) {
	root := fixtureSkillsDir(t)
	a := LoadIndex(context.Background(), root)
	b := LoadIndex(context.Background(), root)

	require.Equal(t, len(a.Skills()), len(b.Skills()))
	for i := range a.Skills() {
		assert.Equal(t, a.Skills()[i].Name, b.Skills()[i].Name)
		assert.Equal(t, a.Skills()[i].Keywords, b.Skills()[i].Keywords)
		assert.Equal(t, a.Skills()[i].Body, b.Skills()[i].Body)
	}
}

func TestPromptIndex(t *testing.T) {
	idx := LoadIndex(context.Background(), fixtureSkillsDir(t))
	out := idx.PromptIndex()

	assert.Contains(t, out, "- particles: Generate swirling particle systems and trails")
	assert.Contains(t, out, "- threejs-meshes: Creates rotating 3D icosahedron meshes and wireframes with Three.js")
	assert.Contains(t, out, "- zz-notes: (no description)")
}

func TestContextFor(t *testing.T) {
	idx := LoadIndex(context.Background(), fixtureSkillsDir(t))

	t.Run("bodies and references under separators", func(t *testing.T) {
		matched := idx.Match("particle wireframes")
		out := idx.ContextFor(matched, 4000)

		assert.Contains(t, out, "## Skill: particles")
		assert.Contains(t, out, "additive blending")
		assert.Contains(t, out, "## Skill: threejs-meshes")
		assert.Contains(t, out, "### Reference: camera.md")
		assert.Contains(t, out, "OrbitControls setup notes.")
		assert.Contains(t, out, "\n\n---\n\n")
	})

	t.Run("truncated to the budget", func(t *testing.T) {
		matched := idx.Match("particle wireframes")
		out := idx.ContextFor(matched, 5)

		assert.Contains(t, out, "...(truncated)")
		assert.NotContains(t, out, "## Skill: threejs-meshes")
	})

	t.Run("no matches yields empty context", func(t *testing.T) {
		assert.Empty(t, idx.ContextFor(nil, 4000))
	})
}
