package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/chatooli/chatooli/pkg/logger"
)

const skillFileName = "SKILL.md"
const referencesDirName = "references"

// Index is an immutable collection of skills loaded from a directory.
// It is built once at startup and passed by reference through request
// handlers; matching only reads the index, so it is safe for concurrent
// use without locking.
type Index struct {
	skills   []*Skill
	byName   map[string]*Skill
	reports  []FileReport
	warnings error
}

// LoadIndex scans dir for skill directories, each containing a SKILL.md
// file and an optional references/ subdirectory. A missing directory
// yields an empty index; an unreadable or malformed skill degrades to
// "contributes nothing" rather than failing the load. Load order (and
// therefore match result order) is the sorted directory entry order.
func LoadIndex(ctx context.Context, dir string) *Index {
	idx := &Index{byName: make(map[string]*Skill)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Debug("skills directory unavailable, loading zero skills")
		return idx
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		skillDir := filepath.Join(dir, entry.Name())
		skillPath := filepath.Join(skillDir, skillFileName)

		content, err := os.ReadFile(skillPath)
		if err != nil {
			idx.reports = append(idx.reports, FileReport{Path: skillPath, Outcome: Skipped, Err: err})
			idx.warnings = multierror.Append(idx.warnings, errors.Wrapf(err, "skipping skill %s", entry.Name()))
			continue
		}

		meta, body, outcome := ParseFrontmatter(string(content))
		name := meta.Name
		if name == "" {
			name = entry.Name()
		}

		skill := &Skill{
			Name:        name,
			Description: meta.Description,
			Body:        body,
			Path:        entry.Name(),
			References:  loadReferences(skillDir),
			Keywords:    ExtractKeywords(meta.Description),
			Outcome:     outcome,
		}

		idx.reports = append(idx.reports, FileReport{Path: skillPath, Outcome: outcome})
		idx.skills = append(idx.skills, skill)
		if _, exists := idx.byName[skill.Name]; !exists {
			idx.byName[skill.Name] = skill
		}
	}

	if idx.warnings != nil {
		logger.G(ctx).WithError(idx.warnings).Warn("some skills failed to load")
	}
	logger.G(ctx).WithFields(map[string]any{
		"dir":    dir,
		"skills": len(idx.skills),
	}).Info("skill index loaded")

	return idx
}

// loadReferences loads the text documents in the skill's references/
// subdirectory. An unreadable directory means no references.
func loadReferences(skillDir string) []Reference {
	refDir := filepath.Join(skillDir, referencesDirName)
	entries, err := os.ReadDir(refDir)
	if err != nil {
		return nil
	}

	var refs []Reference
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(refDir, entry.Name()))
		if err != nil {
			continue
		}
		refs = append(refs, Reference{Name: entry.Name(), Content: string(content)})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// Skills returns the skills in load order.
func (x *Index) Skills() []*Skill {
	return x.skills
}

// Get returns a skill by name.
func (x *Index) Get(name string) (*Skill, bool) {
	s, ok := x.byName[name]
	return s, ok
}

// Reports returns the per-file load outcomes.
func (x *Index) Reports() []FileReport {
	return x.reports
}

// Warnings returns the aggregated non-fatal load errors, or nil.
func (x *Index) Warnings() error {
	return x.warnings
}

// Match returns the skills relevant to a user message, preserving load
// order. A skill is included on its first keyword that either appears as
// a substring of the lowercased message or is a member of the message's
// stemmed word set; there is no scoring or ranking beyond that.
func (x *Index) Match(message string) []*Skill {
	lowered := strings.ToLower(message)
	words := messageWords(lowered)

	var matched []*Skill
	for _, skill := range x.skills {
		for _, kw := range skill.Keywords {
			_, inWords := words[kw]
			if inWords || strings.Contains(lowered, kw) {
				matched = append(matched, skill)
				break
			}
		}
	}
	return matched
}

// PromptIndex renders the always-visible level-1 view: one line of name
// and description per skill, for permanent inclusion in the system prompt.
func (x *Index) PromptIndex() string {
	if len(x.skills) == 0 {
		return ""
	}

	var b strings.Builder
	for _, skill := range x.skills {
		desc := skill.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", skill.Name, desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ContextFor renders the level-2 expansion for matched skills: each full
// body plus reference documents, truncated to an approximate token
// budget (roughly 4 characters per token).
func (x *Index) ContextFor(matched []*Skill, maxTokensApprox int) string {
	budget := maxTokensApprox * 4
	var parts []string

	for _, skill := range matched {
		var b strings.Builder
		fmt.Fprintf(&b, "## Skill: %s\n%s", skill.Name, skill.Body)
		for _, ref := range skill.References {
			fmt.Fprintf(&b, "\n\n### Reference: %s\n%s", ref.Name, ref.Content)
		}

		block := b.String()
		if len(block) > budget {
			block = block[:budget] + "\n...(truncated)"
		}
		parts = append(parts, block)
		budget -= len(block)
		if budget <= 0 {
			break
		}
	}

	return strings.Join(parts, "\n\n---\n\n")
}

// MatchedNames returns just the names of matched skills, for UI display.
func MatchedNames(matched []*Skill) []string {
	names := make([]string, 0, len(matched))
	for _, s := range matched {
		names = append(names, s.Name)
	}
	return names
}
