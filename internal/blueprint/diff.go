// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blueprint

import "github.com/pdiddy/assembly-engine/pkg/types"

// IDChange records a scalar id field changing value. From or To may be
// nil for an optional field appearing or disappearing.
type IDChange struct {
	From *int64 `json:"from"`
	To   *int64 `json:"to"`
}

// ContentChange records the set difference of content ids. Order changes
// without membership changes are not reported.
type ContentChange struct {
	Added   []int64 `json:"added,omitempty"`
	Removed []int64 `json:"removed,omitempty"`
}

// Diff reports what changed between two blueprints. Unchanged fields
// produce no entry.
type Diff struct {
	HasChanges bool           `json:"has_changes"`
	PromptID   *IDChange      `json:"prompt_id,omitempty"`
	ContentIDs *ContentChange `json:"content_ids,omitempty"`
	StyleID    *IDChange      `json:"style_id,omitempty"`
	SpaceID    *IDChange      `json:"space_id,omitempty"`
}

// Compare diffs two blueprints field by field. Content ids are compared
// as sets, not positionally.
func Compare(oldBP, newBP *types.Blueprint) Diff {
	var d Diff
	if oldBP == nil {
		oldBP = &types.Blueprint{}
	}
	if newBP == nil {
		newBP = &types.Blueprint{}
	}

	if oldBP.PromptID != newBP.PromptID {
		d.PromptID = &IDChange{From: idPtr(oldBP.PromptID), To: idPtr(newBP.PromptID)}
	}

	added, removed := setDiff(oldBP.ContentIDs, newBP.ContentIDs)
	if len(added) > 0 || len(removed) > 0 {
		d.ContentIDs = &ContentChange{Added: added, Removed: removed}
	}

	if !idPtrEqual(oldBP.StyleID, newBP.StyleID) {
		d.StyleID = &IDChange{From: oldBP.StyleID, To: newBP.StyleID}
	}

	if oldBP.SpaceID != newBP.SpaceID {
		d.SpaceID = &IDChange{From: idPtr(oldBP.SpaceID), To: idPtr(newBP.SpaceID)}
	}

	d.HasChanges = d.PromptID != nil || d.ContentIDs != nil || d.StyleID != nil || d.SpaceID != nil
	return d
}

// setDiff returns ids present only in b (added) and only in a (removed),
// each in first-appearance order.
func setDiff(a, b []int64) (added, removed []int64) {
	inA := make(map[int64]bool, len(a))
	for _, id := range a {
		inA[id] = true
	}
	inB := make(map[int64]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}

	for _, id := range b {
		if !inA[id] {
			added = append(added, id)
			inA[id] = true // dedup repeated ids
		}
	}
	for _, id := range a {
		if !inB[id] {
			removed = append(removed, id)
			inB[id] = true
		}
	}
	return added, removed
}

func idPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func idPtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
