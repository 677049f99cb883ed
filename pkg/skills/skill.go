// Package skills implements Chatooli's progressive-disclosure skill
// system. Skills are packaged as directories containing a SKILL.md file
// with YAML frontmatter; the short description of every skill is always
// visible to the model, while the full instructional body is injected
// only when keyword matching decides the skill is relevant to the
// current user message.
package skills

// Skill is a loaded capability bundle: metadata from the SKILL.md
// frontmatter, the instructional body, optional reference documents, and
// the keyword set derived once from the description at load time.
type Skill struct {
	Name        string
	Description string
	Body        string
	Path        string // skill directory, relative to the skills root
	References  []Reference
	Keywords    []string
	Outcome     ParseOutcome
}

// Reference is a supporting document loaded from the skill's
// references/ subdirectory and injected alongside the body.
type Reference struct {
	Name    string
	Content string
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseOutcome classifies how a skill file was loaded, so degradation
// paths can be asserted on directly instead of inferred from empty fields.
type ParseOutcome int

const (
	// ParsedOK means frontmatter was present and both name and description parsed.
	ParsedOK ParseOutcome = iota
	// ParsedWithDefaults means the file loaded but metadata was missing or
	// malformed; the skill carries placeholder metadata and an empty
	// keyword set, so it can never be matched.
	ParsedWithDefaults
	// Skipped means the file could not be read at all.
	Skipped
)

func (o ParseOutcome) String() string {
	switch o {
	case ParsedOK:
		return "parsed"
	case ParsedWithDefaults:
		return "parsed-with-defaults"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// FileReport records the load outcome for a single skill file.
type FileReport struct {
	Path    string
	Outcome ParseOutcome
	Err     error
}
