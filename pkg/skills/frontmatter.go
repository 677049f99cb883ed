package skills

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter splits raw SKILL.md content into metadata and body.
//
// A well-formed file starts with a "---" line, carries YAML key lines,
// and closes with a matching "---" before the body. A file without the
// delimiter pair degrades to "the entire content is body" with empty
// metadata and outcome ParsedWithDefaults; it can then never be matched,
// only injected when explicitly forced. This is a deliberate best-effort
// parse, not a strict schema validator.
func ParseFrontmatter(raw string) (Metadata, string, ParseOutcome) {
	lines := strings.Split(raw, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == frontmatterDelimiter {
			start = i
		}
		break
	}
	if start == -1 {
		return Metadata{}, raw, ParsedWithDefaults
	}

	end := -1
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return Metadata{}, raw, ParsedWithDefaults
	}

	block := strings.Join(lines[start+1:end], "\n")
	body := strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")

	var meta Metadata
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		meta = parseLooseMetadata(lines[start+1 : end])
	}
	meta.Description = strings.TrimSpace(meta.Description)

	if meta.Name == "" || meta.Description == "" {
		return meta, body, ParsedWithDefaults
	}
	return meta, body, ParsedOK
}

// parseLooseMetadata recovers name and description from frontmatter that
// is not valid YAML. It understands "key: value" lines plus the folded
// block-scalar form for description: a ">" marker followed by
// continuation lines indented by at least two spaces, joined with single
// spaces, blank lines suppressed.
func parseLooseMetadata(lines []string) Metadata {
	var meta Metadata

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		key, value, found := strings.Cut(line, ":")
		if !found || strings.HasPrefix(line, " ") {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `'"`)

		switch key {
		case "name":
			meta.Name = value
		case "description":
			if value == ">" || value == ">-" {
				var parts []string
				for i+1 < len(lines) && (strings.HasPrefix(lines[i+1], "  ") || strings.TrimSpace(lines[i+1]) == "") {
					i++
					if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
						parts = append(parts, trimmed)
					}
				}
				meta.Description = strings.Join(parts, " ")
			} else {
				meta.Description = value
			}
		}
	}

	return meta
}
