// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "assembly-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for the semantic backend.
// Per prd009-ranking R4.1-R4.3.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the chat model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the backend API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of HTTP 429 retry attempts. A negative
	// value disables retries; the rerank path runs single-attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RankConfig holds the ranking stage tunables. The scoring constants are
// configuration rather than hard-coded values; the defaults reproduce the
// original behavior.
type RankConfig struct {
	// MaxCandidates is the default retrieval breadth per role (default 20).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// TopK is the default shortlist size after ranking (default 5).
	TopK int `json:"top_k" yaml:"top_k"`

	// CacheTTL bounds how long a ranked order is served from cache
	// (default 30m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// BM25 parameters for the lexical scorer.
	K1        float64 `json:"k1" yaml:"k1"`                 // default 1.2
	B         float64 `json:"b" yaml:"b"`                   // default 0.75
	AvgDocLen float64 `json:"avg_doc_len" yaml:"avg_doc_len"` // default 100

	// PhraseBonus is added when the full query phrase appears verbatim in
	// the candidate text (default 0.2); TitleBonus stacks on top when it
	// appears in the title (default 0.1).
	PhraseBonus float64 `json:"phrase_bonus" yaml:"phrase_bonus"`
	TitleBonus  float64 `json:"title_bonus" yaml:"title_bonus"`

	// FallbackScore is assigned to candidates the semantic backend omitted
	// from its response (default 0.1).
	FallbackScore float64 `json:"fallback_score" yaml:"fallback_score"`

	// SemanticTimeout bounds the single semantic rerank call (default 10s).
	SemanticTimeout time.Duration `json:"semantic_timeout" yaml:"semantic_timeout"`
}

// CompatConfig holds the compatibility scorer settings, including the
// fixed execution parameters supplied to the scorer.
type CompatConfig struct {
	// LowThreshold marks a score as "low compatibility" (default 0.4).
	LowThreshold float64 `json:"low_threshold" yaml:"low_threshold"`

	// NeutralScore is returned when the scorer is unavailable (default 0.75).
	NeutralScore float64 `json:"neutral_score" yaml:"neutral_score"`

	// Execution parameters described to the scorer. These come from
	// configuration, not discovery.
	ModelClass   string `json:"model_class" yaml:"model_class"`
	TaskType     string `json:"task_type" yaml:"task_type"`
	ContentType  string `json:"content_type" yaml:"content_type"`
	OutputFormat string `json:"output_format" yaml:"output_format"`
}

// CacheBackend selects the ranked-result cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds settings for the ranked-result cache.
type CacheConfig struct {
	// Backend selects memory or redis. An unavailable cache degrades to
	// recompute, never to an error.
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// RedisURL is the redis connection URL when Backend is redis.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// MaxEntries caps the in-memory cache size (default 1000).
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// LibraryConfig holds settings for the bundled SQLite component library.
type LibraryConfig struct {
	// Path is the SQLite database file (default "library.db").
	Path string `json:"path" yaml:"path"`

	// MaxResults is the default search result cap (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all stage configurations for the assembly engine.
type EngineConfig struct {
	Rank    RankConfig    `json:"rank" yaml:"rank"`
	Compat  CompatConfig  `json:"compat" yaml:"compat"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Library LibraryConfig `json:"library" yaml:"library"`
}

// DefaultEngineConfig returns the engine defaults. Callers overlay loaded
// configuration on top of this.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Rank: RankConfig{
			MaxCandidates:   20,
			TopK:            5,
			CacheTTL:        30 * time.Minute,
			K1:              1.2,
			B:               0.75,
			AvgDocLen:       100,
			PhraseBonus:     0.2,
			TitleBonus:      0.1,
			FallbackScore:   0.1,
			SemanticTimeout: 10 * time.Second,
		},
		Compat: CompatConfig{
			LowThreshold: 0.4,
			NeutralScore: 0.75,
			ModelClass:   "general",
			TaskType:     "generation",
			ContentType:  "text",
			OutputFormat: "markdown",
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			MaxEntries: 1000,
		},
		AI: AIConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "assembly-engine/0.1",
			},
			Model:      "gemini-2.0-flash",
			MaxRetries: -1,
		},
		Library: LibraryConfig{
			Path:       "library.db",
			MaxResults: 20,
		},
	}
}
