// Package extract pulls fenced code blocks out of model output so the
// server can persist generated sketches and the UI can render them
// separately from prose.
package extract

import "strings"

// DefaultLanguage is assumed when a fence carries no info string.
const DefaultLanguage = "python"

// CodeBlock is a single fenced block from a model response.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// CodeBlocks scans text for triple-backtick fences and returns the
// blocks in document order. A fence left unclosed at the end of the
// text still yields a block with everything after the opening fence;
// streaming responses get cut off often enough that dropping the tail
// would lose whole sketches.
func CodeBlocks(text string) []CodeBlock {
	var blocks []CodeBlock

	lines := strings.Split(text, "\n")
	inBlock := false
	language := ""
	var buf []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				blocks = append(blocks, CodeBlock{
					Language: language,
					Code:     strings.Join(buf, "\n"),
				})
				inBlock = false
				buf = nil
				continue
			}
			inBlock = true
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			if language == "" {
				language = DefaultLanguage
			}
			continue
		}
		if inBlock {
			buf = append(buf, line)
		}
	}

	if inBlock {
		blocks = append(blocks, CodeBlock{
			Language: language,
			Code:     strings.Join(buf, "\n"),
		})
	}

	return blocks
}
