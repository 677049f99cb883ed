package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeBlocks(t *testing.T) {
	t.Run("single block with language", func(t *testing.T) {
		text := "Here you go:\n```html\n<canvas></canvas>\n```\nDone."
		blocks := CodeBlocks(text)
		require.Len(t, blocks, 1)
		assert.Equal(t, "html", blocks[0].Language)
		assert.Equal(t, "<canvas></canvas>", blocks[0].Code)
	})

	t.Run("bare fence defaults the language", func(t *testing.T) {
		blocks := CodeBlocks("```\nprint('hi')\n```")
		require.Len(t, blocks, 1)
		assert.Equal(t, DefaultLanguage, blocks[0].Language)
	})

	t.Run("multiple blocks in order", func(t *testing.T) {
		text := "```js\nlet a = 1;\n```\nprose\n```glsl\nvoid main() {}\n```"
		blocks := CodeBlocks(text)
		require.Len(t, blocks, 2)
		assert.Equal(t, "js", blocks[0].Language)
		assert.Equal(t, "glsl", blocks[1].Language)
	})

	t.Run("unclosed fence keeps the tail", func(t *testing.T) {
		blocks := CodeBlocks("```html\n<div>cut off mid-stream")
		require.Len(t, blocks, 1)
		assert.Equal(t, "html", blocks[0].Language)
		assert.Equal(t, "<div>cut off mid-stream", blocks[0].Code)
	})

	t.Run("no fences", func(t *testing.T) {
		assert.Empty(t, CodeBlocks("just prose, no code"))
	})

	t.Run("indented fence is still a fence", func(t *testing.T) {
		blocks := CodeBlocks("  ```js\nx\n  ```")
		require.Len(t, blocks, 1)
		assert.Equal(t, "js", blocks[0].Language)
	})
}
