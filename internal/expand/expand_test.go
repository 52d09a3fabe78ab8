// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"reflect"
	"strings"
	"testing"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantKeywords []string
		wantQuery    string
	}{
		{
			name:         "empty input passes through",
			text:         "",
			wantKeywords: nil,
			wantQuery:    "",
		},
		{
			name:         "whitespace only passes through",
			text:         "   \t  ",
			wantKeywords: nil,
			wantQuery:    "   \t  ",
		},
		{
			name:         "stopwords are filtered",
			text:         "please write a summary of the quarterly report",
			wantKeywords: []string{"summary", "quarterly", "report"},
			wantQuery:    "please write a summary of the quarterly report",
		},
		{
			name:         "keywords already present are not appended",
			text:         "follow-up assistant",
			wantKeywords: []string{"follow", "up", "assistant"},
			wantQuery:    "follow-up assistant",
		},
		{
			name:         "duplicate keywords kept once",
			text:         "report report report",
			wantKeywords: []string{"report"},
			wantQuery:    "report report report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.text)
			if !reflect.DeepEqual(got.Keywords, tt.wantKeywords) {
				t.Errorf("Keywords = %v, want %v", got.Keywords, tt.wantKeywords)
			}
			if got.ExpandedQuery != tt.wantQuery {
				t.Errorf("ExpandedQuery = %q, want %q", got.ExpandedQuery, tt.wantQuery)
			}
		})
	}
}

func TestExpandQueryKeepsOriginalHead(t *testing.T) {
	text := "draft an email to customers"
	got := Expand(text)
	if !strings.HasPrefix(got.ExpandedQuery, text) {
		t.Errorf("ExpandedQuery = %q, should start with the original text", got.ExpandedQuery)
	}
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Entity
	}{
		{
			name: "quoted phrase",
			text: `summarize the "launch checklist" for me`,
			want: []Entity{{Text: "launch checklist", Kind: EntityQuoted}},
		},
		{
			name: "proper name run",
			text: "write a welcome note for Acme Corp employees",
			want: []Entity{{Text: "Acme Corp", Kind: EntityProper}},
		},
		{
			name: "no entities",
			text: "summarize this text",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.text).Entities
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Entities = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Hello World", []string{"hello", "world"}},
		{"strips punctuation", "follow-up, assistant!", []string{"follow", "up", "assistant"}},
		{"drops single characters", "a b cd", []string{"cd"}},
		{"keeps digits", "gpt 4 turbo2", []string{"gpt", "turbo2"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
