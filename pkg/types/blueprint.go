// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// BlueprintVersion is the current blueprint schema version. It is written
// into serialized blueprints and into the assembly metadata of created
// records; bump it when the serialized shape changes.
const BlueprintVersion = 2

// BlueprintMetadata carries bookkeeping for one blueprint instance.
type BlueprintMetadata struct {
	// Version is the blueprint schema version at build time.
	Version int `json:"version"`

	// CreatedAt is when the builder constructed this blueprint.
	CreatedAt time.Time `json:"created_at"`

	// ComponentCount is 1 (prompt) + len(content_ids) + 1 if a style is set.
	ComponentCount int `json:"component_count"`

	// MergedAt is set when this blueprint is the result of a merge.
	MergedAt *time.Time `json:"merged_at,omitempty"`

	// DeserializedAt is stamped when this blueprint was decoded from its
	// persisted form. A deserialized compat_score is "last known" only and
	// must be revalidated before being trusted.
	DeserializedAt *time.Time `json:"deserialized_at,omitempty"`
}

// BlueprintComponents holds denormalized display copies of the selected
// components. They are dropped from the persisted form.
type BlueprintComponents struct {
	Prompt   *Component  `json:"prompt,omitempty"`
	Contents []Component `json:"contents,omitempty"`
	Style    *Component  `json:"style,omitempty"`
}

// Blueprint is the versioned assembly artifact recording which prompt,
// content, and style components were chosen for one assembly.
//
// Invariants: PromptID is required for a valid blueprint; CompatScore is
// nil after any mutating merge and must be recomputed; ComponentCount in
// the metadata matches the id fields.
type Blueprint struct {
	// SpaceID is the target collection scope.
	SpaceID int64 `json:"space_id"`

	// PromptID is the chosen prompt component. Required.
	PromptID int64 `json:"prompt_id"`

	// ContentIDs is the ordered sequence of chosen content components.
	// May be empty.
	ContentIDs []int64 `json:"content_ids"`

	// StyleID is the chosen style component, if any.
	StyleID *int64 `json:"style_id,omitempty"`

	// CompatScore is the compatibility score for this exact combination,
	// rounded to 3 decimals. Nil when unknown or invalidated.
	CompatScore *float64 `json:"compat_score,omitempty"`

	// Components holds display copies of the selections. Not persisted.
	Components *BlueprintComponents `json:"components,omitempty"`

	Metadata BlueprintMetadata `json:"metadata"`
}

// ToolRecord is the payload handed to the Write collaborator when mode
// "create" persists an assembled tool.
type ToolRecord struct {
	SpaceID  int64    `json:"space_id"`
	AuthorID int64    `json:"author_id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Label    string   `json:"label"`
	Tags     []string `json:"tags,omitempty"`

	Assembly AssemblyMeta `json:"assembly"`
}

// AssemblyMeta is the assembly bookkeeping written onto a created record.
// All fields travel in a single CreateRecord call; atomicity across them
// is the collaborator's concern.
type AssemblyMeta struct {
	// SchemaVersion tags the metadata layout (BlueprintVersion).
	SchemaVersion int `json:"schema_version"`

	// Source component references.
	PromptID   int64   `json:"prompt_id"`
	ContentIDs []int64 `json:"content_ids"`
	StyleID    *int64  `json:"style_id,omitempty"`

	// CompatScore is the compatibility score at creation time.
	CompatScore *float64 `json:"compat_score,omitempty"`

	// Context is the natural-language need the assembly was built from.
	Context string `json:"context"`

	// Pinned is true when component text was snapshotted into the record
	// body instead of referenced by id only.
	Pinned bool `json:"pinned"`

	// Blueprint is the serialized minimal blueprint (ids + score + version).
	Blueprint json.RawMessage `json:"blueprint,omitempty"`
}
