// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"
	"strings"

	"github.com/pdiddy/assembly-engine/internal/blueprint"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

const maxTitleLen = 80

// buildToolRecord assembles the persisted record for mode create: the
// prompt configuration copied onto the body, the serialized minimal
// blueprint, and the assembly metadata. When pinning is requested the
// component texts are snapshotted into the body; otherwise they are
// referenced by id only.
func buildToolRecord(req types.AssemblyRequest, caller types.Requester, bp *types.Blueprint, prompt *types.Component, contents []types.Component, style *types.Component, title string) (*types.ToolRecord, error) {
	serialized, err := blueprint.Serialize(bp)
	if err != nil {
		return nil, err
	}

	rec := &types.ToolRecord{
		SpaceID:  bp.SpaceID,
		AuthorID: caller.UserID,
		Title:    title,
		Body:     recordBody(req.PinComponents, prompt, contents, style),
		Label:    "tool",
		Tags:     prompt.Tags,
		Assembly: types.AssemblyMeta{
			SchemaVersion: types.BlueprintVersion,
			PromptID:      bp.PromptID,
			ContentIDs:    append([]int64(nil), bp.ContentIDs...),
			StyleID:       bp.StyleID,
			CompatScore:   bp.CompatScore,
			Context:       req.Context,
			Pinned:        req.PinComponents,
			Blueprint:     serialized,
		},
	}
	return rec, nil
}

// recordBody copies the prompt text onto the record. Pinning additionally
// snapshots the content and style texts so the tool survives later edits
// to its source components.
func recordBody(pinned bool, prompt *types.Component, contents []types.Component, style *types.Component) string {
	var b strings.Builder
	b.WriteString(prompt.FullText)

	if !pinned {
		return b.String()
	}

	for _, c := range contents {
		fmt.Fprintf(&b, "\n\n## %s\n\n%s", c.Title, firstNonEmpty(c.FullText, c.Excerpt))
	}
	if style != nil {
		fmt.Fprintf(&b, "\n\n## Style: %s\n\n%s", style.Title, firstNonEmpty(style.FullText, style.Excerpt))
	}
	return b.String()
}

// recordTitle derives a record title from the request text: the first
// sentence fragment, capped and cleaned.
func recordTitle(context string) string {
	title := strings.TrimSpace(context)
	if i := strings.IndexAny(title, ".\n"); i > 0 {
		title = title[:i]
	}
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > maxTitleLen {
		title = strings.TrimSpace(title[:maxTitleLen-3]) + "..."
	}
	return title
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
