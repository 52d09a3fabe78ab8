// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// importComponent is one entry in a YAML component bundle.
type importComponent struct {
	Title    string   `yaml:"title"`
	Label    string   `yaml:"label"`
	Excerpt  string   `yaml:"excerpt"`
	FullText string   `yaml:"full_text"`
	Tags     []string `yaml:"tags"`
	AuthorID int64    `yaml:"author_id"`
	Space    string   `yaml:"space"`
}

// ImportYAML reads a YAML list of components and inserts them, creating
// named spaces on demand. Entries that fail validation are skipped with a
// note on w; the import continues.
func (s *Store) ImportYAML(ctx context.Context, r io.Reader, w io.Writer) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading import: %w", err)
	}

	var entries []importComponent
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parsing import: %w", err)
	}

	imported := 0
	for i, entry := range entries {
		if entry.Title == "" || entry.Label == "" {
			fmt.Fprintf(w, "skipped entry %d: title and label are required\n", i)
			continue
		}
		if _, err := types.ParseRole(entry.Label); err != nil {
			fmt.Fprintf(w, "skipped entry %d (%s): %v\n", i, entry.Title, err)
			continue
		}

		spaceName := entry.Space
		if spaceName == "" {
			spaceName = "default"
		}
		spaceID, err := s.AddSpace(ctx, spaceName)
		if err != nil {
			return imported, err
		}

		comp := &types.Component{
			Title:    entry.Title,
			Excerpt:  entry.Excerpt,
			FullText: entry.FullText,
			Tags:     entry.Tags,
			Label:    entry.Label,
			AuthorID: entry.AuthorID,
		}
		id, err := s.AddComponent(ctx, comp, spaceID)
		if err != nil {
			fmt.Fprintf(w, "failed entry %d (%s): %v\n", i, entry.Title, err)
			continue
		}

		fmt.Fprintf(w, "imported %s (id %d, %s)\n", entry.Title, id, entry.Label)
		imported++
	}

	return imported, nil
}
