package skills

import (
	"strings"
	"unicode"
)

// stopWords are never useful as matching keywords: articles,
// prepositions, auxiliaries, and the generic verbs that appear in nearly
// every creative-coding skill description.
var stopWords = map[string]struct{}{
	// articles and determiners
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"onto": {}, "over": {}, "under": {}, "about": {}, "after": {},
	"before": {}, "between": {}, "through": {}, "during": {},
	"without": {}, "within": {}, "upon": {}, "not": {}, "nor": {},
	"but": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"all": {}, "any": {}, "each": {}, "other": {}, "such": {},
	"you": {}, "your": {}, "its": {}, "are": {}, "was": {}, "were": {},
	"been": {}, "being": {}, "can": {}, "could": {}, "will": {},
	"would": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"does": {}, "did": {}, "done": {}, "has": {}, "have": {}, "had": {},
	"when": {}, "where": {}, "what": {}, "which": {}, "who": {},
	"how": {}, "why": {}, "also": {}, "etc": {},
	// generic creative-coding verbs
	"generate": {}, "create": {}, "make": {}, "build": {}, "use": {},
	"using": {}, "used": {}, "add": {}, "get": {}, "set": {}, "run": {},
	"write": {}, "help": {}, "helps": {}, "want": {}, "need": {},
	"new": {}, "like": {},
}

// stemRules is the ordered suffix-stripping table; the most specific
// suffix is checked first and at most one rule applies per word.
var stemRules = []struct {
	suffix  string
	replace string
}{
	{"ations", "at"},
	{"tion", "t"},
	{"sions", "s"},
	{"ings", ""},
	{"ing", ""},
	{"ies", "y"},
	{"ves", "f"},
	{"es", ""},
	{"s", ""},
}

// Stem normalizes a word by stripping one known suffix; first matching
// rule wins, and a word with no matching suffix is returned unchanged.
func Stem(word string) string {
	for _, rule := range stemRules {
		if strings.HasSuffix(word, rule.suffix) {
			return strings.TrimSuffix(word, rule.suffix) + rule.replace
		}
	}
	return word
}

// ExtractKeywords derives a deduplicated keyword list from a skill
// description: lowercase, strip punctuation (hyphens survive), split on
// whitespace, drop short tokens and stop-words, then union in the
// stemmed form of each survivor. The result is deterministic: survivors
// in first-seen order followed by their stems in first-seen order.
func ExtractKeywords(description string) []string {
	var cleaned strings.Builder
	for _, r := range strings.ToLower(description) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || unicode.IsSpace(r) {
			cleaned.WriteRune(r)
		} else {
			cleaned.WriteByte(' ')
		}
	}

	seen := make(map[string]struct{})
	var keywords []string
	add := func(word string) {
		if len(word) < 3 {
			return
		}
		if _, dup := seen[word]; dup {
			return
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	tokens := strings.Fields(cleaned.String())
	var survivors []string
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		survivors = append(survivors, tok)
		add(tok)
	}

	for _, tok := range survivors {
		if stem := Stem(tok); stem != tok {
			add(stem)
		}
	}

	return keywords
}

// messageWords builds the word set for an incoming message: lowercase,
// replace every non-alphanumeric character with a space, split, drop
// words of length <= 2, and add each word's stemmed form into the same set.
func messageWords(lowered string) map[string]struct{} {
	var cleaned strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		} else {
			cleaned.WriteByte(' ')
		}
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned.String()) {
		if len(w) <= 2 {
			continue
		}
		words[w] = struct{}{}
		words[Stem(w)] = struct{}{}
	}
	return words
}
