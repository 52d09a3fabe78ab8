// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the assembly engine.
// Implements: prd008-assembly (Candidate, Component, Blueprint);
//
//	prd009-ranking (RankSource);
//	prd011-compatibility (CompatibilityResult).
//
// See docs/ARCHITECTURE § Data Structures.
package types

import "fmt"

// Role identifies which assembly slot a component fills. Unknown role
// strings are rejected at parse time; there is no default branch.
type Role string

const (
	RolePrompt  Role = "prompt"
	RoleContent Role = "content"
	RoleStyle   Role = "style"
)

// Roles lists all component roles in pipeline order.
var Roles = []Role{RolePrompt, RoleContent, RoleStyle}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePrompt, RoleContent, RoleStyle:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown component role %q (want prompt, content, or style)", s)
}

// RankSource identifies which ranking strategy produced a candidate's score.
type RankSource string

const (
	// SourceLexical marks a score computed by the deterministic lexical scorer.
	SourceLexical RankSource = "lexical"

	// SourceSemantic marks a score returned by the semantic reranking backend.
	SourceSemantic RankSource = "semantic"

	// SourceSemanticFallback marks a candidate the semantic backend omitted
	// from its response; it is appended with a fixed low score.
	SourceSemanticFallback RankSource = "semantic_fallback"
)

// Candidate is a permission-filtered retrieval result for one component
// role. Candidates are produced fresh per request and never persisted.
// Score and Source are assigned by the ranker, not the retriever.
type Candidate struct {
	// ID is the opaque identifier of the underlying content record.
	ID int64 `json:"id"`

	// Title is the record title.
	Title string `json:"title"`

	// Excerpt is a short snippet of the record body.
	Excerpt string `json:"excerpt"`

	// Tags are the record's labels, used by the lexical scorer.
	Tags []string `json:"tags,omitempty"`

	// Label is the record's role label as stored (e.g. "prompt").
	Label string `json:"label,omitempty"`

	// Role is the assembly slot this candidate was retrieved for.
	Role Role `json:"role"`

	// Score is the ranker-assigned relevance in [0,1].
	Score float64 `json:"score"`

	// Source identifies the strategy that produced Score.
	Source RankSource `json:"source,omitempty"`
}

// Component is a Candidate promoted to "chosen": it carries the full
// record text and authorship needed to build and persist an assembly.
type Component struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt,omitempty"`
	FullText string   `json:"full_text,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Label    string   `json:"label,omitempty"`
	Role     Role     `json:"role"`
	AuthorID int64    `json:"author_id,omitempty"`

	// AutoCreated is true when the engine synthesized this component from
	// the request text because no candidate was found. Responses must
	// disclose this.
	AutoCreated bool `json:"auto_created,omitempty"`
}

// CompatibilityResult is the derived confidence that the chosen components
// will work well together at generation time. It is never stored
// independently of the Blueprint.
type CompatibilityResult struct {
	// Score is in [0,1].
	Score float64 `json:"score"`

	// Issues lists human-readable concerns. Empty for a clean result.
	Issues []string `json:"issues,omitempty"`
}

// Requester identifies the caller for permission filtering and scope
// resolution.
type Requester struct {
	// UserID identifies the calling user.
	UserID int64 `json:"user_id"`

	// HomeSpaceID is the caller's default collection scope, used when a
	// request does not name a target space.
	HomeSpaceID int64 `json:"home_space_id"`
}
