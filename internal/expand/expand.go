// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand turns a raw natural-language need into an expanded query
// plus extracted keywords and entities. Implements: prd013-query-expansion
// (R1-R3); docs/ARCHITECTURE § Query Expansion.
//
// Expansion is a pure function of its input. It never fails: any input it
// cannot improve is passed through unexpanded, and the orchestrator can
// disable it entirely.
package expand

import (
	"regexp"
	"strings"
	"unicode"
)

// EntityKind categorizes a detected entity.
type EntityKind string

const (
	// EntityQuoted is a phrase the caller quoted explicitly.
	EntityQuoted EntityKind = "quoted"

	// EntityProper is a capitalized run that looks like a proper name.
	EntityProper EntityKind = "proper"
)

// Entity is a named thing detected in the request text.
type Entity struct {
	Text string     `json:"text"`
	Kind EntityKind `json:"kind"`
}

// Result holds the expansion output.
type Result struct {
	// ExpandedQuery is the original text with salient keywords appended.
	ExpandedQuery string `json:"expanded_query"`

	// Keywords are the salient terms in order of first appearance.
	Keywords []string `json:"keywords"`

	// Entities are quoted phrases and proper-name runs.
	Entities []Entity `json:"entities,omitempty"`
}

var quotedPattern = regexp.MustCompile(`["“”']([^"“”']{2,80})["“”']`)

// properPattern matches runs of capitalized words past the sentence start,
// e.g. "Acme Corp" inside a sentence.
var properPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)

// Expand extracts keywords and entities from text and appends the
// keywords to the original query. Empty or unusable input is returned
// unchanged.
func Expand(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{ExpandedQuery: text}
	}

	keywords := extractKeywords(trimmed)
	entities := extractEntities(trimmed)

	expanded := trimmed
	if len(keywords) > 0 {
		lower := strings.ToLower(trimmed)
		var extra []string
		for _, kw := range keywords {
			// Only append terms not already present verbatim; the original
			// text stays the head of the query.
			if !strings.Contains(lower, kw) {
				extra = append(extra, kw)
			}
		}
		if len(extra) > 0 {
			expanded = trimmed + " " + strings.Join(extra, " ")
		}
	}

	return Result{
		ExpandedQuery: expanded,
		Keywords:      keywords,
		Entities:      entities,
	}
}

// extractKeywords tokenizes the text and keeps terms that survive the
// stopword filter, in order of first appearance.
func extractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range Tokenize(text) {
		if isStopword(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

func extractEntities(text string) []Entity {
	var entities []Entity
	seen := make(map[string]bool)

	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		phrase := strings.TrimSpace(m[1])
		if phrase == "" || seen[phrase] {
			continue
		}
		seen[phrase] = true
		entities = append(entities, Entity{Text: phrase, Kind: EntityQuoted})
	}

	for _, m := range properPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		entities = append(entities, Entity{Text: name, Kind: EntityProper})
	}

	return entities
}

// Tokenize lowercases the text, strips non-letter/non-digit runes, and
// drops 1-character tokens. Shared with the lexical scorer so both sides
// of a match see the same terms.
func Tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// isStopword reports whether the token is too common to be a useful
// search term.
func isStopword(word string) bool {
	return stopwords[word]
}

var stopwords = map[string]bool{
	"the": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"and": true, "but": true, "or": true, "nor": true, "so": true,
	"if": true, "then": true, "else": true, "when": true, "where": true,
	"why": true, "how": true, "all": true, "each": true, "every": true,
	"both": true, "few": true, "more": true, "most": true, "other": true,
	"some": true, "such": true, "no": true, "not": true, "only": true,
	"own": true, "same": true, "than": true, "too": true, "very": true,
	"can": true, "just": true, "now": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "you": true,
	"we": true, "they": true, "my": true, "your": true, "our": true,
	"their": true, "me": true, "us": true, "them": true, "about": true,
	"please": true, "need": true, "want": true, "make": true, "help": true,
	"write": true, "draft": true, "create": true, "using": true, "use": true,
}
