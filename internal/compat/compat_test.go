// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compat

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

type mockChat struct {
	answer string
	err    error
	prompt string
}

func (m *mockChat) Chat(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.answer, m.err
}

func testCompatCfg() types.CompatConfig {
	return types.DefaultEngineConfig().Compat
}

func promptComponent() *types.Component {
	return &types.Component{
		ID:       1,
		Title:    "Meeting summarizer",
		FullText: "Summarize the following meeting notes.",
		Role:     types.RolePrompt,
	}
}

func TestScoreParsesBackendAnswer(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		wantScore  float64
		wantIssues int
	}{
		{
			name:      "plain json",
			answer:    `{"score": 0.85, "issues": []}`,
			wantScore: 0.85,
		},
		{
			name:       "json with issues",
			answer:     `{"score": 0.3, "issues": ["style conflicts with prompt register"]}`,
			wantScore:  0.3,
			wantIssues: 1,
		},
		{
			name:      "code fenced",
			answer:    "```json\n{\"score\": 0.7, \"issues\": []}\n```",
			wantScore: 0.7,
		},
		{
			name:      "embedded in prose",
			answer:    "Here is my assessment: {\"score\": 0.6, \"issues\": []} — hope that helps.",
			wantScore: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testCompatCfg(), &mockChat{answer: tt.answer}, nil)
			got := s.Score(context.Background(), Inputs{Prompt: promptComponent()})
			if got.Score != tt.wantScore {
				t.Errorf("Score = %f, want %f", got.Score, tt.wantScore)
			}
			if len(got.Issues) != tt.wantIssues {
				t.Errorf("Issues = %v, want %d issue(s)", got.Issues, tt.wantIssues)
			}
		})
	}
}

func TestScoreNeutralFallbacks(t *testing.T) {
	cfg := testCompatCfg()

	tests := []struct {
		name    string
		backend ChatBackend
		inputs  Inputs
	}{
		{"nil backend", nil, Inputs{Prompt: promptComponent()}},
		{"nil prompt", &mockChat{answer: `{"score": 0.9}`}, Inputs{}},
		{"backend error", &mockChat{err: fmt.Errorf("unavailable")}, Inputs{Prompt: promptComponent()}},
		{"garbage answer", &mockChat{answer: "no json here"}, Inputs{Prompt: promptComponent()}},
		{"out of range score", &mockChat{answer: `{"score": 3.2}`}, Inputs{Prompt: promptComponent()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(cfg, tt.backend, nil)
			got := s.Score(context.Background(), tt.inputs)
			if got.Score != cfg.NeutralScore {
				t.Errorf("Score = %f, want neutral %f", got.Score, cfg.NeutralScore)
			}
			if len(got.Issues) != 0 {
				t.Errorf("neutral result carries issues: %v", got.Issues)
			}
		})
	}
}

func TestBuildPromptIncludesExecutionParameters(t *testing.T) {
	backend := &mockChat{answer: `{"score": 0.8}`}
	s := New(testCompatCfg(), backend, nil)

	s.Score(context.Background(), Inputs{
		Prompt:   promptComponent(),
		Contents: []types.Component{{Title: "Q3 notes", Excerpt: "Raw notes from the Q3 review"}},
	})

	for _, want := range []string{"model class general", "task type generation", "Q3 notes", "Meeting summarizer"} {
		if !strings.Contains(backend.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// No style selected: the neutral formal placeholder stands in.
	if !strings.Contains(backend.prompt, "Formal") {
		t.Error("prompt should describe the neutral style placeholder")
	}
}

func TestBuildPromptWithoutContent(t *testing.T) {
	backend := &mockChat{answer: `{"score": 0.8}`}
	s := New(testCompatCfg(), backend, nil)

	s.Score(context.Background(), Inputs{Prompt: promptComponent()})
	if !strings.Contains(backend.prompt, "Supporting content: none") {
		t.Error("prompt should state that no supporting content was selected")
	}
}

func TestLowThreshold(t *testing.T) {
	cfg := testCompatCfg()
	s := New(cfg, nil, nil)
	if s.LowThreshold() != cfg.LowThreshold {
		t.Errorf("LowThreshold = %f, want %f", s.LowThreshold(), cfg.LowThreshold)
	}
}
