// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// SemanticBackend is the single blocking network dependency of the
// ranker: a chat-completion call that reorders candidates. Implementations
// get one attempt per rerank; any failure falls back to lexical scoring.
type SemanticBackend interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// maxExcerptChars caps the per-candidate excerpt sent to the backend.
const maxExcerptChars = 200

// rankedPair is one (index, score) element of the backend's answer.
type rankedPair struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// semanticRerank submits the candidates and query to the backend and
// rebuilds the candidate order from its (index, score) pairs. Candidates
// the backend omitted are appended in retrieval order with the configured
// fallback score and source semantic_fallback.
func (r *Reranker) semanticRerank(ctx context.Context, candidates []types.Candidate, query string) ([]types.Candidate, error) {
	prompt := buildRerankPrompt(candidates, query)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.SemanticTimeout)
	defer cancel()

	answer, err := r.backend.Chat(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("semantic backend: %w", err)
	}

	pairs, err := parseRerankAnswer(answer, len(candidates))
	if err != nil {
		return nil, err
	}

	ranked := make([]types.Candidate, 0, len(candidates))
	taken := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		c := candidates[p.Index]
		c.Score = clamp01(p.Score)
		c.Source = types.SourceSemantic
		ranked = append(ranked, c)
		taken[p.Index] = true
	}

	for i, c := range candidates {
		if taken[i] {
			continue
		}
		c.Score = r.cfg.FallbackScore
		c.Source = types.SourceSemanticFallback
		ranked = append(ranked, c)
	}

	return ranked, nil
}

// buildRerankPrompt lists the candidates (title, truncated excerpt, tags)
// and asks for a JSON array of {index, score} pairs, best first.
func buildRerankPrompt(candidates []types.Candidate, query string) string {
	var b strings.Builder
	b.WriteString("Rank the following components by how well each one serves the request.\n")
	b.WriteString("Request: ")
	b.WriteString(query)
	b.WriteString("\n\nComponents:\n")

	for i, c := range candidates {
		excerpt := c.Excerpt
		if len(excerpt) > maxExcerptChars {
			excerpt = excerpt[:maxExcerptChars]
		}
		fmt.Fprintf(&b, "%d. %s — %s", i, c.Title, excerpt)
		if len(c.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(c.Tags, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAnswer with only a JSON array of {\"index\": n, \"score\": s} objects, ")
	b.WriteString("best match first, scores between 0 and 1. Include every relevant component.\n")
	return b.String()
}

// parseRerankAnswer decodes the backend's answer. Out-of-range and
// duplicate indexes are dropped; an answer with no usable pairs is an
// error so the caller can fall back.
func parseRerankAnswer(answer string, n int) ([]rankedPair, error) {
	text := stripCodeFence(answer)

	// The array may be embedded in surrounding prose.
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in rerank answer")
	}

	var raw []rankedPair
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parsing rerank answer: %w", err)
	}

	seen := make(map[int]bool, len(raw))
	var pairs []rankedPair
	for _, p := range raw {
		if p.Index < 0 || p.Index >= n || seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		pairs = append(pairs, p)
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("rerank answer contained no valid indexes")
	}
	return pairs, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
