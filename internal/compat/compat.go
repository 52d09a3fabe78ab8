// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compat scores how well a chosen prompt, content set, and style
// will work together at generation time. Implements: prd011-compatibility
// (R1-R3); docs/ARCHITECTURE § Compatibility.
//
// The scorer is best-effort: when the backend is absent, times out, or
// answers garbage, it returns a neutral default instead of failing the
// pipeline.
package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// ChatBackend abstracts the chat-completion API so tests can supply a
// mock. The same client that serves semantic reranking satisfies it.
type ChatBackend interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Inputs are the selected components for one assembly. Style may be nil;
// a neutral formal placeholder stands in for it.
type Inputs struct {
	Prompt   *types.Component
	Contents []types.Component
	Style    *types.Component
}

// Scorer computes a compatibility score in [0,1] with optional issues.
type Scorer struct {
	cfg     types.CompatConfig
	backend ChatBackend
	logger  *zap.Logger
}

// New creates a Scorer. backend and logger may be nil; without a backend
// every call returns the neutral default.
func New(cfg types.CompatConfig, backend ChatBackend, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{cfg: cfg, backend: backend, logger: logger}
}

// LowThreshold returns the score below which the orchestrator treats the
// combination as low compatibility.
func (s *Scorer) LowThreshold() float64 {
	return s.cfg.LowThreshold
}

// Score evaluates the component combination. Any backend failure yields
// the neutral default with no issues.
func (s *Scorer) Score(ctx context.Context, in Inputs) types.CompatibilityResult {
	if s.backend == nil || in.Prompt == nil {
		return s.neutral()
	}

	answer, err := s.backend.Chat(ctx, s.buildPrompt(in))
	if err != nil {
		s.logger.Warn("compatibility backend unavailable, using neutral score", zap.Error(err))
		return s.neutral()
	}

	result, err := parseAnswer(answer)
	if err != nil {
		s.logger.Warn("unparseable compatibility answer, using neutral score", zap.Error(err))
		return s.neutral()
	}

	return result
}

func (s *Scorer) neutral() types.CompatibilityResult {
	return types.CompatibilityResult{Score: s.cfg.NeutralScore}
}

// neutralStyle stands in when the assembly has no style component.
var neutralStyle = types.Component{
	Title: "Formal",
	Label: "style",
	Role:  types.RoleStyle,
	Excerpt: "Neutral formal register: clear, professional, no strong " +
		"stylistic constraints.",
}

func (s *Scorer) buildPrompt(in Inputs) string {
	style := in.Style
	if style == nil {
		style = &neutralStyle
	}

	var b strings.Builder
	b.WriteString("Judge how well these components will work together when executed as one generation task.\n\n")
	fmt.Fprintf(&b, "Execution parameters: model class %s, task type %s, content type %s, output format %s.\n\n",
		s.cfg.ModelClass, s.cfg.TaskType, s.cfg.ContentType, s.cfg.OutputFormat)

	fmt.Fprintf(&b, "Prompt: %s\n%s\n\n", in.Prompt.Title, truncate(in.Prompt.FullText, 800))

	if len(in.Contents) == 0 {
		b.WriteString("Supporting content: none\n\n")
	} else {
		b.WriteString("Supporting content:\n")
		for _, c := range in.Contents {
			fmt.Fprintf(&b, "- %s: %s\n", c.Title, truncate(firstNonEmpty(c.Excerpt, c.FullText), 300))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Style: %s — %s\n\n", style.Title, truncate(firstNonEmpty(style.Excerpt, style.FullText), 300))

	b.WriteString("Answer with only a JSON object {\"score\": s, \"issues\": [\"...\"]} ")
	b.WriteString("where score is between 0 and 1 and issues lists concrete conflicts, empty if none.\n")
	return b.String()
}

// parseAnswer decodes {"score": s, "issues": [...]} from the backend
// answer, tolerating code fences and surrounding prose.
func parseAnswer(answer string) (types.CompatibilityResult, error) {
	text := strings.TrimSpace(answer)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return types.CompatibilityResult{}, fmt.Errorf("no JSON object in compatibility answer")
	}

	var result types.CompatibilityResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return types.CompatibilityResult{}, fmt.Errorf("parsing compatibility answer: %w", err)
	}

	if result.Score < 0 || result.Score > 1 {
		return types.CompatibilityResult{}, fmt.Errorf("compatibility score %f out of range", result.Score)
	}
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
