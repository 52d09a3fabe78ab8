// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Mode selects what the engine does with an assembled blueprint. Unknown
// mode strings are rejected at parse time; there is no default branch.
type Mode string

const (
	// ModePropose computes a blueprint and a deferred next-action payload
	// without side effects.
	ModePropose Mode = "propose"

	// ModeSimulate runs the same computation as propose; the response is
	// distinguished only by the mode field and the absence of a created id.
	ModeSimulate Mode = "simulate"

	// ModeCreate persists a tool record through the Write collaborator.
	ModeCreate Mode = "create"
)

// ParseMode converts a string into a Mode, rejecting unknown values.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePropose, ModeSimulate, ModeCreate:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown assembly mode %q (want propose, simulate, or create)", s)
}

// AssemblyRequest is the caller-supplied input to one assembly run.
//
// Mode defaults to create when AutoCreate is set and propose otherwise.
// Explicit component ids bypass retrieval for their role.
type AssemblyRequest struct {
	// Context is the natural-language need. Required.
	Context string `json:"context"`

	// Mode is propose, simulate, or create. Empty selects the default.
	Mode Mode `json:"mode,omitempty"`

	// Explicit component selections. When set, retrieval is skipped for
	// that role and the id is validated instead.
	PromptID   *int64  `json:"prompt_id,omitempty"`
	ContentIDs []int64 `json:"content_ids,omitempty"`
	StyleID    *int64  `json:"style_id,omitempty"`

	// SpaceID is the target collection scope. Zero falls back to the
	// caller's home scope.
	SpaceID int64 `json:"space_id,omitempty"`

	// AutoCreate permits synthesizing a minimal default prompt when no
	// prompt candidate is found and mode is create.
	AutoCreate bool `json:"auto_create,omitempty"`

	// MaxCandidates caps retrieval breadth per role. Zero uses the
	// configured default.
	MaxCandidates int `json:"max_candidates,omitempty"`

	// TopK is the shortlist size after ranking. Zero uses the default.
	TopK int `json:"top_k,omitempty"`

	// UseSemanticRerank and UseQueryExpansion toggle pipeline stages.
	// Both default to true; NewAssemblyRequest sets them.
	UseSemanticRerank bool `json:"use_semantic_rerank"`
	UseQueryExpansion bool `json:"use_query_expansion"`

	// PinComponents snapshots component text into the created record body
	// instead of referencing components by id only.
	PinComponents bool `json:"pin_components,omitempty"`

	// Strict turns soft warnings into hard failures where noted.
	Strict bool `json:"strict,omitempty"`
}

// NewAssemblyRequest returns a request for the given context text with the
// pipeline toggles at their defaults.
func NewAssemblyRequest(context string) AssemblyRequest {
	return AssemblyRequest{
		Context:           context,
		UseSemanticRerank: true,
		UseQueryExpansion: true,
	}
}

// EffectiveMode resolves the mode default: create if auto_create else propose.
func (r AssemblyRequest) EffectiveMode() Mode {
	if r.Mode != "" {
		return r.Mode
	}
	if r.AutoCreate {
		return ModeCreate
	}
	return ModePropose
}

// Warning is a recoverable problem surfaced in the response body.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes attached by the orchestrator.
const (
	WarnInsufficientWritePermission = "insufficient_write_permission"
	WarnAutoCreatedPrompt           = "auto_created_prompt"
	WarnContentInvalid              = "content_component_invalid"
	WarnNoContentSelected           = "no_content_selected"
	WarnStyleInvalid                = "style_component_invalid"
	WarnNoStyleSelected             = "no_style_selected"
	WarnLowCompatibility            = "low_compatibility"
)

// ComponentStatus reports how one assembly slot was filled.
type ComponentStatus struct {
	ID          int64 `json:"id,omitempty"`
	Selected    bool  `json:"selected"`
	Explicit    bool  `json:"explicit,omitempty"`
	AutoCreated bool  `json:"auto_created,omitempty"`
}

// CreatedStatus reports per-component selection outcomes.
type CreatedStatus struct {
	Prompt   ComponentStatus   `json:"prompt"`
	Contents []ComponentStatus `json:"contents,omitempty"`
	Style    *ComponentStatus  `json:"style,omitempty"`
}

// ToolRef points at a created tool record. ID is nil unless mode create
// actually persisted one.
type ToolRef struct {
	ID    *int64 `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// NextAction is the deferred creation payload returned by propose and
// simulate. Submitting Payload to the creation endpoint reproduces the
// proposed assembly.
type NextAction struct {
	Endpoint string          `json:"endpoint"`
	Payload  AssemblyRequest `json:"payload"`
}

// RoleCandidates holds the ranked candidate shortlists per role, returned
// on every response so a caller can always retry with an explicit id.
type RoleCandidates struct {
	Prompt   []Candidate `json:"prompt"`
	Contents []Candidate `json:"contents"`
	Style    []Candidate `json:"style"`
}

// AssemblyResponse is the engine's answer to one assembly request.
type AssemblyResponse struct {
	// AssemblyID correlates logs and audit entries for this run.
	AssemblyID string `json:"assembly_id"`

	// Mode is the mode actually executed, which may have been downgraded
	// from the requested one.
	Mode Mode `json:"mode"`

	Tool       *ToolRef       `json:"tool,omitempty"`
	Blueprint  *Blueprint     `json:"blueprint"`
	Created    CreatedStatus  `json:"created"`
	Candidates RoleCandidates `json:"candidates"`
	Warnings   []Warning      `json:"warnings,omitempty"`
	NextAction *NextAction    `json:"next_action,omitempty"`
	LatencyMS  int64          `json:"latency_ms"`
}
