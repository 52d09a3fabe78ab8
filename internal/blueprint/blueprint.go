// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blueprint constructs, validates, serializes, merges, and diffs
// the assembly artifact. Implements: prd010-blueprint (R1-R6);
//
//	docs/ARCHITECTURE § Blueprint.
package blueprint

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Build constructs a blueprint from the selected components. The
// compatibility score is rounded to 3 decimals; the component count is
// computed from the selections. Build is pure construction and does not
// validate — a prompt-less blueprint can be built, then rejected by
// Validate.
func Build(prompt *types.Component, contents []types.Component, style *types.Component, spaceID int64, compat *types.CompatibilityResult) *types.Blueprint {
	bp := &types.Blueprint{
		SpaceID:    spaceID,
		ContentIDs: make([]int64, 0, len(contents)),
		Components: &types.BlueprintComponents{
			Contents: contents,
		},
		Metadata: types.BlueprintMetadata{
			Version:   types.BlueprintVersion,
			CreatedAt: time.Now().UTC(),
		},
	}

	if prompt != nil {
		bp.PromptID = prompt.ID
		bp.Components.Prompt = prompt
	}
	for _, c := range contents {
		bp.ContentIDs = append(bp.ContentIDs, c.ID)
	}
	if style != nil {
		id := style.ID
		bp.StyleID = &id
		bp.Components.Style = style
	}
	if compat != nil {
		score := round3(compat.Score)
		bp.CompatScore = &score
	}

	bp.Metadata.ComponentCount = componentCount(bp)
	return bp
}

// ValidationResult reports whether a blueprint is usable and why not.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks the blueprint invariants: a prompt is required, the
// target space must be set, and a present compat score must be in [0,1].
func Validate(bp *types.Blueprint) ValidationResult {
	var errs []string

	if bp == nil {
		return ValidationResult{Errors: []string{"blueprint is nil"}}
	}
	if bp.PromptID == 0 {
		errs = append(errs, "prompt_id is required")
	}
	if bp.SpaceID == 0 {
		errs = append(errs, "space_id is required")
	}
	if bp.CompatScore != nil && (*bp.CompatScore < 0 || *bp.CompatScore > 1) {
		errs = append(errs, fmt.Sprintf("compat_score %g outside [0,1]", *bp.CompatScore))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// persistedBlueprint is the minimal serialized form stored alongside a
// created tool: ids, score, and version. Display components are dropped.
type persistedBlueprint struct {
	SpaceID     int64    `json:"space_id"`
	PromptID    int64    `json:"prompt_id"`
	ContentIDs  []int64  `json:"content_ids"`
	StyleID     *int64   `json:"style_id,omitempty"`
	CompatScore *float64 `json:"compat_score,omitempty"`
	Version     int      `json:"version"`
}

// Serialize encodes the blueprint's persisted form.
func Serialize(bp *types.Blueprint) ([]byte, error) {
	if bp == nil {
		return nil, fmt.Errorf("cannot serialize nil blueprint")
	}

	contentIDs := bp.ContentIDs
	if contentIDs == nil {
		contentIDs = []int64{}
	}

	return json.Marshal(persistedBlueprint{
		SpaceID:     bp.SpaceID,
		PromptID:    bp.PromptID,
		ContentIDs:  contentIDs,
		StyleID:     bp.StyleID,
		CompatScore: bp.CompatScore,
		Version:     bp.Metadata.Version,
	})
}

// Deserialize decodes a persisted blueprint. It returns nil on malformed
// input or a missing prompt id. Ids are coerced to integers from numbers
// or numeric strings. The result carries a deserialized_at stamp and its
// compat score must not be trusted without revalidation.
func Deserialize(data []byte) *types.Blueprint {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	promptID, ok := asID(raw["prompt_id"])
	if !ok || promptID == 0 {
		return nil
	}

	now := time.Now().UTC()
	bp := &types.Blueprint{
		PromptID:   promptID,
		ContentIDs: []int64{},
		Metadata: types.BlueprintMetadata{
			Version:        types.BlueprintVersion,
			CreatedAt:      now,
			DeserializedAt: &now,
		},
	}

	if v, ok := asID(raw["space_id"]); ok {
		bp.SpaceID = v
	}
	if list, ok := raw["content_ids"].([]any); ok {
		for _, item := range list {
			if v, ok := asID(item); ok {
				bp.ContentIDs = append(bp.ContentIDs, v)
			}
		}
	}
	if v, ok := asID(raw["style_id"]); ok && v != 0 {
		bp.StyleID = &v
	}
	if f, ok := raw["compat_score"].(float64); ok {
		score := round3(f)
		bp.CompatScore = &score
	}
	if f, ok := raw["version"].(float64); ok && int(f) > 0 {
		bp.Metadata.Version = int(f)
	}

	bp.Metadata.ComponentCount = componentCount(bp)
	return bp
}

// Merge overlays one blueprint onto another: the overlay's prompt, style,
// and space replace the base's when present; content ids are unioned with
// base order first, then overlay-only ids. The merged compat score is
// always nil — a merge invalidates compatibility and the caller must
// recompute it.
func Merge(base, overlay *types.Blueprint) *types.Blueprint {
	now := time.Now().UTC()
	merged := &types.Blueprint{
		ContentIDs: []int64{},
		Metadata: types.BlueprintMetadata{
			Version:   types.BlueprintVersion,
			CreatedAt: now,
			MergedAt:  &now,
		},
	}

	if base != nil {
		merged.SpaceID = base.SpaceID
		merged.PromptID = base.PromptID
		merged.StyleID = base.StyleID
		merged.ContentIDs = append(merged.ContentIDs, base.ContentIDs...)
	}

	if overlay != nil {
		if overlay.PromptID != 0 {
			merged.PromptID = overlay.PromptID
		}
		if overlay.StyleID != nil {
			merged.StyleID = overlay.StyleID
		}
		if overlay.SpaceID != 0 {
			merged.SpaceID = overlay.SpaceID
		}

		seen := make(map[int64]bool, len(merged.ContentIDs))
		for _, id := range merged.ContentIDs {
			seen[id] = true
		}
		for _, id := range overlay.ContentIDs {
			if !seen[id] {
				seen[id] = true
				merged.ContentIDs = append(merged.ContentIDs, id)
			}
		}
	}

	merged.Metadata.ComponentCount = componentCount(merged)
	return merged
}

// componentCount is 1 for the prompt plus content ids plus 1 if a style
// is set. A prompt-less blueprint (invalid, but constructible) counts 0
// for the prompt slot.
func componentCount(bp *types.Blueprint) int {
	count := len(bp.ContentIDs)
	if bp.PromptID != 0 {
		count++
	}
	if bp.StyleID != nil {
		count++
	}
	return count
}

// asID coerces a decoded JSON value to an int64 id.
func asID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		var id int64
		if _, err := fmt.Sscanf(n, "%d", &id); err == nil {
			return id, true
		}
	case json.Number:
		if id, err := n.Int64(); err == nil {
			return id, true
		}
	}
	return 0, false
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
