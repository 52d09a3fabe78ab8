// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	answer string
	err    error
	calls  int
}

func (m *mockBackend) Chat(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.answer, m.err
}

func testCandidates() []types.Candidate {
	return []types.Candidate{
		{ID: 10, Title: "Meeting notes summarizer", Excerpt: "Summarizes meeting notes"},
		{ID: 20, Title: "Follow-up email drafter", Excerpt: "Drafts follow-up emails after meetings"},
		{ID: 30, Title: "Recipe generator", Excerpt: "Generates recipes"},
	}
}

// --- passthrough ---

func TestRerankPassthroughSmallSets(t *testing.T) {
	backend := &mockBackend{}
	r := New(testRankCfg(), nil, backend, nil)

	if got := r.Rerank(context.Background(), nil, "query", 5, true); len(got) != 0 {
		t.Errorf("empty set: got %d candidates, want 0", len(got))
	}

	one := []types.Candidate{{ID: 1, Title: "Only"}}
	got := r.Rerank(context.Background(), one, "query", 5, true)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("single candidate should pass through unchanged, got %v", got)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for trivial sets, want 0", backend.calls)
	}
}

// --- semantic path ---

func TestRerankSemanticOrdering(t *testing.T) {
	backend := &mockBackend{answer: `[{"index":1,"score":0.95},{"index":0,"score":0.4},{"index":2,"score":0.1}]`}
	r := New(testRankCfg(), nil, backend, nil)

	got := r.Rerank(context.Background(), testCandidates(), "follow-up email", 5, true)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	wantOrder := []int64{20, 10, 30}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: id = %d, want %d", i, got[i].ID, id)
		}
		if got[i].Source != types.SourceSemantic {
			t.Errorf("position %d: source = %q, want semantic", i, got[i].Source)
		}
	}
	if got[0].Score != 0.95 {
		t.Errorf("top score = %f, want 0.95", got[0].Score)
	}
}

func TestRerankSemanticOmissionsGetFallbackScore(t *testing.T) {
	// The backend only mentions candidate index 1.
	backend := &mockBackend{answer: `[{"index":1,"score":0.9}]`}
	cfg := testRankCfg()
	r := New(cfg, nil, backend, nil)

	got := r.Rerank(context.Background(), testCandidates(), "follow-up email", 5, true)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: omitted candidates must be appended, not dropped", len(got))
	}

	if got[0].ID != 20 || got[0].Source != types.SourceSemantic {
		t.Errorf("ranked head = (%d, %s), want (20, semantic)", got[0].ID, got[0].Source)
	}
	for _, c := range got[1:] {
		if c.Score != cfg.FallbackScore {
			t.Errorf("omitted candidate %d score = %f, want %f", c.ID, c.Score, cfg.FallbackScore)
		}
		if c.Source != types.SourceSemanticFallback {
			t.Errorf("omitted candidate %d source = %q, want semantic_fallback", c.ID, c.Source)
		}
	}
	// Omissions keep retrieval order.
	if got[1].ID != 10 || got[2].ID != 30 {
		t.Errorf("omitted order = [%d, %d], want [10, 30]", got[1].ID, got[2].ID)
	}
}

func TestRerankSemanticClampsScores(t *testing.T) {
	backend := &mockBackend{answer: `[{"index":0,"score":1.7},{"index":1,"score":-0.3}]`}
	r := New(testRankCfg(), nil, backend, nil)

	got := r.Rerank(context.Background(), testCandidates(), "query terms", 5, true)
	if got[0].Score != 1.0 {
		t.Errorf("over-range score = %f, want clamped to 1", got[0].Score)
	}
	if got[1].Score != 0.0 {
		t.Errorf("under-range score = %f, want clamped to 0", got[1].Score)
	}
}

// --- lexical fallback ---

func TestRerankFallsBackOnBackendError(t *testing.T) {
	backend := &mockBackend{err: fmt.Errorf("backend down")}
	r := New(testRankCfg(), nil, backend, nil)

	got := r.Rerank(context.Background(), testCandidates(), "meeting notes summarizer", 5, true)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, c := range got {
		if c.Source != types.SourceLexical {
			t.Errorf("candidate %d source = %q, want lexical", c.ID, c.Source)
		}
	}
	if got[0].ID != 10 {
		t.Errorf("top candidate = %d, want 10 (strongest lexical match)", got[0].ID)
	}
}

func TestRerankFallsBackOnGarbageAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"prose only", "I cannot rank these."},
		{"invalid json", `[{"index": one}]`},
		{"all indexes out of range", `[{"index":7,"score":0.9},{"index":-1,"score":0.5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{answer: tt.answer}
			r := New(testRankCfg(), nil, backend, nil)

			got := r.Rerank(context.Background(), testCandidates(), "meeting notes", 5, true)
			if len(got) != 3 {
				t.Fatalf("len = %d, want 3", len(got))
			}
			for _, c := range got {
				if c.Source != types.SourceLexical {
					t.Errorf("candidate %d source = %q, want lexical fallback", c.ID, c.Source)
				}
			}
		})
	}
}

func TestRerankSemanticDisabled(t *testing.T) {
	backend := &mockBackend{answer: `[{"index":0,"score":0.9}]`}
	r := New(testRankCfg(), nil, backend, nil)

	r.Rerank(context.Background(), testCandidates(), "meeting notes", 5, false)
	if backend.calls != 0 {
		t.Errorf("backend called %d times with semantic reranking off, want 0", backend.calls)
	}
}

func TestRerankCodeFencedAnswer(t *testing.T) {
	backend := &mockBackend{answer: "```json\n[{\"index\":2,\"score\":0.8}]\n```"}
	r := New(testRankCfg(), nil, backend, nil)

	got := r.Rerank(context.Background(), testCandidates(), "recipes", 5, true)
	if got[0].ID != 30 || got[0].Source != types.SourceSemantic {
		t.Errorf("fenced answer head = (%d, %s), want (30, semantic)", got[0].ID, got[0].Source)
	}
}

// --- caching ---

func TestRerankCachesFullOrder(t *testing.T) {
	backend := &mockBackend{answer: `[{"index":1,"score":0.9},{"index":0,"score":0.5},{"index":2,"score":0.2}]`}
	cache := NewMemoryCache(10)
	r := New(testRankCfg(), cache, backend, nil)

	first := r.Rerank(context.Background(), testCandidates(), "follow-up email", 2, true)
	if backend.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.calls)
	}
	if len(first) != 2 {
		t.Fatalf("topK slice len = %d, want 2", len(first))
	}

	// Same set and query, different retrieval order and a larger K: the
	// cached full order is reused without another backend call.
	shuffled := []types.Candidate{testCandidates()[2], testCandidates()[0], testCandidates()[1]}
	second := r.Rerank(context.Background(), shuffled, "follow-up email", 3, true)
	if backend.calls != 1 {
		t.Errorf("backend calls = %d after cache hit, want 1", backend.calls)
	}
	if len(second) != 3 {
		t.Fatalf("len = %d, want 3", len(second))
	}
	wantOrder := []int64{20, 10, 30}
	for i, id := range wantOrder {
		if second[i].ID != id {
			t.Errorf("cached position %d: id = %d, want %d", i, second[i].ID, id)
		}
	}
}

func TestRerankCacheMissOnDifferentSet(t *testing.T) {
	backend := &mockBackend{answer: `[{"index":0,"score":0.9},{"index":1,"score":0.5},{"index":2,"score":0.2}]`}
	cache := NewMemoryCache(10)
	r := New(testRankCfg(), cache, backend, nil)

	r.Rerank(context.Background(), testCandidates(), "query", 3, true)

	different := testCandidates()
	different[2].ID = 99
	r.Rerank(context.Background(), different, "query", 3, true)

	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2: a different set must not hit the cache", backend.calls)
	}
}

// --- timeout ---

func TestRerankSemanticTimeout(t *testing.T) {
	cfg := testRankCfg()
	cfg.SemanticTimeout = 10 * time.Millisecond

	slow := &slowBackend{delay: 200 * time.Millisecond}
	r := New(cfg, nil, slow, nil)

	start := time.Now()
	got := r.Rerank(context.Background(), testCandidates(), "meeting notes", 5, true)
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("rerank took %v, should abandon the backend at the timeout", elapsed)
	}
	for _, c := range got {
		if c.Source != types.SourceLexical {
			t.Errorf("candidate %d source = %q, want lexical after timeout", c.ID, c.Source)
		}
	}
}

type slowBackend struct {
	delay time.Duration
}

func (s *slowBackend) Chat(ctx context.Context, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.delay):
		return `[{"index":0,"score":0.9}]`, nil
	}
}
