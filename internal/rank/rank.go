// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank reduces a candidate list to a top-K ordered shortlist.
// Implements: prd009-ranking (R1-R5); docs/ARCHITECTURE § Ranking.
//
// Two interchangeable strategies exist: a deterministic lexical scorer
// and a semantic reranking upgrade that degrades to the lexical scorer on
// any backend failure. Ranked orders are cached by candidate-set identity
// and query.
package rank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/pdiddy/assembly-engine/internal/expand"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Reranker scores and orders retrieval candidates. The cache and backend
// are both optional: without a cache every call recomputes, and without a
// backend (or when semantic reranking is toggled off) scoring is lexical.
type Reranker struct {
	cfg     types.RankConfig
	cache   Cache
	backend SemanticBackend
	logger  *zap.Logger
}

// New creates a Reranker. cache, backend, and logger may be nil.
func New(cfg types.RankConfig, cache Cache, backend SemanticBackend, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{cfg: cfg, cache: cache, backend: backend, logger: logger}
}

// Rerank orders candidates by relevance to query and returns the top K
// with Score and Source attached to every item. Sets of size zero or one
// are returned unchanged. The full ranked order is cached before slicing
// so a later call with a different K hits the same entry.
func (r *Reranker) Rerank(ctx context.Context, candidates []types.Candidate, query string, topK int, useSemantic bool) []types.Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	key := CacheKey(candidates, query)
	if r.cache != nil {
		if e, ok := r.cache.Get(ctx, key); ok {
			if ranked, ok := applyCached(candidates, e); ok {
				r.logger.Debug("rank cache hit", zap.String("key", key))
				return topSlice(ranked, topK)
			}
		}
	}

	var ranked []types.Candidate
	if useSemantic && r.backend != nil {
		var err error
		ranked, err = r.semanticRerank(ctx, candidates, query)
		if err != nil {
			r.logger.Warn("semantic rerank failed, using lexical scoring", zap.Error(err))
			ranked = nil
		}
	}

	if ranked == nil {
		ranked = r.lexicalRank(candidates, query)
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, toEntry(ranked), r.cfg.CacheTTL)
	}

	return topSlice(ranked, topK)
}

// lexicalRank scores every candidate deterministically and sorts
// descending. Ties keep retrieval order.
func (r *Reranker) lexicalRank(candidates []types.Candidate, query string) []types.Candidate {
	queryTokens := expand.Tokenize(query)

	ranked := make([]types.Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = lexicalScore(r.cfg, query, queryTokens, c)
		c.Source = types.SourceLexical
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// applyCached rebuilds the ranked order from a cache entry. The entry
// must cover exactly the given candidate set; otherwise it is unusable
// and the caller recomputes.
func applyCached(candidates []types.Candidate, e *Entry) ([]types.Candidate, bool) {
	if len(e.IDs) != len(candidates) || len(e.Scores) != len(e.IDs) || len(e.Sources) != len(e.IDs) {
		return nil, false
	}

	byID := make(map[int64]types.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ranked := make([]types.Candidate, 0, len(e.IDs))
	for i, id := range e.IDs {
		c, ok := byID[id]
		if !ok {
			return nil, false
		}
		c.Score = e.Scores[i]
		c.Source = e.Sources[i]
		ranked = append(ranked, c)
	}
	return ranked, true
}

func toEntry(ranked []types.Candidate) *Entry {
	e := &Entry{
		IDs:     make([]int64, len(ranked)),
		Scores:  make([]float64, len(ranked)),
		Sources: make([]types.RankSource, len(ranked)),
	}
	for i, c := range ranked {
		e.IDs[i] = c.ID
		e.Scores[i] = c.Score
		e.Sources[i] = c.Source
	}
	return e
}

func topSlice(ranked []types.Candidate, topK int) []types.Candidate {
	if topK > 0 && len(ranked) > topK {
		return ranked[:topK]
	}
	return ranked
}
