// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"strings"

	"github.com/pdiddy/assembly-engine/internal/expand"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

// idf is the fixed per-term inverse document frequency (ln 2). Corpus
// statistics are unavailable at this layer, so every query term carries
// the same weight.
const idf = 0.6931471805599453

// maxDocChars caps how much candidate text feeds the scorer.
const maxDocChars = 1000

// lexicalScore computes a deterministic BM25-style relevance for one
// candidate in [0,1]. The title is weighted double by repetition; excerpt,
// tags, and label contribute once.
func lexicalScore(cfg types.RankConfig, query string, queryTokens []string, c types.Candidate) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	docText := candidateText(c)
	docTokens := expand.Tokenize(docText)
	docLen := float64(len(docTokens))

	tf := make(map[string]int, len(docTokens))
	for _, tok := range docTokens {
		tf[tok]++
	}

	var score float64
	for _, term := range queryTokens {
		n := float64(tf[term])
		if n == 0 {
			continue
		}
		score += idf * (n * (cfg.K1 + 1)) / (n + cfg.K1*(1-cfg.B+cfg.B*docLen/cfg.AvgDocLen))
	}

	// Normalize to [0,1] by the best plausible per-term contribution.
	score /= float64(len(queryTokens)) * 2.0
	if score > 1.0 {
		score = 1.0
	}

	// Verbatim phrase bonuses stack: candidate text, then title.
	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase != "" {
		if strings.Contains(strings.ToLower(docText), phrase) {
			score += cfg.PhraseBonus
		}
		if strings.Contains(strings.ToLower(c.Title), phrase) {
			score += cfg.TitleBonus
		}
	}
	if score > 1.0 {
		score = 1.0
	}

	return score
}

// candidateText builds the scoring document: title twice, then excerpt
// (truncated), tags, and label.
func candidateText(c types.Candidate) string {
	excerpt := c.Excerpt
	if len(excerpt) > maxDocChars {
		excerpt = excerpt[:maxDocChars]
	}

	parts := []string{c.Title, c.Title, excerpt}
	parts = append(parts, c.Tags...)
	if c.Label != "" {
		parts = append(parts, c.Label)
	}
	return strings.Join(parts, " ")
}
