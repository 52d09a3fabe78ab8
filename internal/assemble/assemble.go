// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble drives the Expander → Retriever → Ranker pipeline once
// per component role, scores compatibility, builds the blueprint, and
// executes the requested mode. Implements: prd008-assembly (R1-R7);
//
//	docs/ARCHITECTURE § Orchestration.
package assemble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/assembly-engine/internal/blueprint"
	"github.com/pdiddy/assembly-engine/internal/compat"
	"github.com/pdiddy/assembly-engine/internal/expand"
	"github.com/pdiddy/assembly-engine/internal/rank"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Retriever returns capped, permission-filtered candidate lists for one
// role, and resolves a single record to its full component form.
type Retriever interface {
	Search(ctx context.Context, query string, role types.Role, limit int, caller types.Requester) ([]types.Candidate, error)
	Fetch(ctx context.Context, id int64, caller types.Requester) (*types.Component, error)
}

// PermissionGate answers read and write permission questions for the
// caller. The engine never attempts creation without a verified write.
type PermissionGate interface {
	CanRead(ctx context.Context, id int64, caller types.Requester) (bool, error)
	CanWrite(ctx context.Context, spaceID int64, caller types.Requester) (bool, error)
}

// Writer persists a created tool record and returns its id. All assembly
// metadata travels in the single CreateRecord call; the engine performs
// no retries and no rollback.
type Writer interface {
	CreateRecord(ctx context.Context, rec *types.ToolRecord) (int64, error)
}

// Deps are the collaborators injected into the engine at construction.
// There is no process-wide registry; everything the pipeline touches
// arrives here.
type Deps struct {
	Retriever Retriever
	Gate      PermissionGate
	Writer    Writer // may be nil when create mode is never used
	Ranker    *rank.Reranker
	Scorer    *compat.Scorer
	Logger    *zap.Logger
}

// Engine is the assembly orchestrator. It is stateless between requests
// except for the ranker's shared result cache.
type Engine struct {
	cfg       types.EngineConfig
	retriever Retriever
	gate      PermissionGate
	writer    Writer
	ranker    *rank.Reranker
	scorer    *compat.Scorer
	logger    *zap.Logger
}

// New constructs an engine. Retriever, Gate, Ranker, and Scorer are
// required; Writer and Logger may be nil.
func New(cfg types.EngineConfig, d Deps) (*Engine, error) {
	if d.Retriever == nil {
		return nil, fmt.Errorf("assemble: retriever is required")
	}
	if d.Gate == nil {
		return nil, fmt.Errorf("assemble: permission gate is required")
	}
	if d.Ranker == nil {
		return nil, fmt.Errorf("assemble: ranker is required")
	}
	if d.Scorer == nil {
		return nil, fmt.Errorf("assemble: compatibility scorer is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:       cfg,
		retriever: d.Retriever,
		gate:      d.Gate,
		writer:    d.Writer,
		ranker:    d.Ranker,
		scorer:    d.Scorer,
		logger:    logger,
	}, nil
}

// roleOutcome is the result of resolving one component role.
type roleOutcome struct {
	candidates []types.Candidate
	prompt     *types.Component
	contents   []types.Component
	style      *types.Component
	statuses   []types.ComponentStatus
	warnings   []types.Warning
	err        error
}

// Assemble runs one request end to end and returns the response, or an
// error when the assembly's core guarantee cannot be met (no prompt, or
// low compatibility under strict create). Recoverable problems surface as
// warnings in the response.
func (e *Engine) Assemble(ctx context.Context, req types.AssemblyRequest, caller types.Requester) (*types.AssemblyResponse, error) {
	start := time.Now()
	assemblyID := uuid.NewString()
	logger := e.logger.With(zap.String("assembly_id", assemblyID))

	if strings.TrimSpace(req.Context) == "" {
		return nil, &ValidationError{Field: "context", Reason: "is required"}
	}
	if req.Mode != "" {
		if _, err := types.ParseMode(string(req.Mode)); err != nil {
			return nil, &ValidationError{Field: "mode", Reason: err.Error()}
		}
	}

	mode := req.EffectiveMode()
	var warnings []types.Warning

	// Resolve target scope; fall back to the caller's home scope.
	spaceID := req.SpaceID
	if spaceID == 0 {
		spaceID = caller.HomeSpaceID
	}

	// Creation is never attempted without a verified write permission. A
	// denied create downgrades silently to propose; the request as a
	// whole still succeeds with a suggestion.
	if mode == types.ModeCreate || req.AutoCreate {
		ok, err := e.gate.CanWrite(ctx, spaceID, caller)
		if err != nil {
			logger.Warn("write permission check failed", zap.Error(err))
			ok = false
		}
		if !ok && mode == types.ModeCreate {
			mode = types.ModePropose
			warnings = append(warnings, types.Warning{
				Code:    types.WarnInsufficientWritePermission,
				Message: fmt.Sprintf("no write permission on space %d; returning a proposal instead", spaceID),
			})
		}
	}

	query := req.Context
	if req.UseQueryExpansion {
		query = expand.Expand(req.Context).ExpandedQuery
	}

	maxCandidates := req.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = e.cfg.Rank.MaxCandidates
	}
	topK := req.TopK
	if topK <= 0 {
		topK = e.cfg.Rank.TopK
	}

	// The per-role steps share no mutable state; fan out and wait for all
	// three before computing compatibility.
	var promptOut, contentOut, styleOut roleOutcome
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		promptOut = e.resolvePrompt(ctx, req, caller, query, maxCandidates, topK)
	}()
	go func() {
		defer wg.Done()
		contentOut = e.resolveContents(ctx, req, caller, query, maxCandidates, topK)
	}()
	go func() {
		defer wg.Done()
		styleOut = e.resolveStyle(ctx, req, caller, query, maxCandidates, topK)
	}()
	wg.Wait()

	warnings = append(warnings, promptOut.warnings...)
	warnings = append(warnings, contentOut.warnings...)
	warnings = append(warnings, styleOut.warnings...)

	if promptOut.err != nil {
		return nil, promptOut.err
	}
	if contentOut.err != nil {
		return nil, contentOut.err
	}

	// A prompt is always mandatory. Auto-create only applies when the
	// effective mode is still create.
	if promptOut.prompt == nil {
		if req.AutoCreate && mode == types.ModeCreate {
			p, err := e.autoCreatePrompt(ctx, req, caller, spaceID)
			if err != nil {
				return nil, err
			}
			promptOut.prompt = p
			promptOut.statuses = []types.ComponentStatus{{ID: p.ID, Selected: true, AutoCreated: true}}
			warnings = append(warnings, types.Warning{
				Code:    types.WarnAutoCreatedPrompt,
				Message: "no prompt candidate found; a minimal default prompt was created from the request text",
			})
		} else {
			return nil, &PromptMissingError{Candidates: promptOut.candidates}
		}
	}

	result := e.scorer.Score(ctx, compat.Inputs{
		Prompt:   promptOut.prompt,
		Contents: contentOut.contents,
		Style:    styleOut.style,
	})
	if result.Score < e.scorer.LowThreshold() {
		if req.Strict && mode == types.ModeCreate {
			return nil, &LowCompatibilityError{
				Score:     result.Score,
				Threshold: e.scorer.LowThreshold(),
				Issues:    result.Issues,
			}
		}
		warnings = append(warnings, types.Warning{
			Code:    types.WarnLowCompatibility,
			Message: fmt.Sprintf("compatibility %.3f below threshold %.3f", result.Score, e.scorer.LowThreshold()),
		})
	}

	bp := blueprint.Build(promptOut.prompt, contentOut.contents, styleOut.style, spaceID, &result)

	resp := &types.AssemblyResponse{
		AssemblyID: assemblyID,
		Mode:       mode,
		Blueprint:  bp,
		Created: types.CreatedStatus{
			Prompt:   firstStatus(promptOut.statuses),
			Contents: contentOut.statuses,
		},
		Candidates: types.RoleCandidates{
			Prompt:   promptOut.candidates,
			Contents: contentOut.candidates,
			Style:    styleOut.candidates,
		},
		Warnings: warnings,
	}
	if len(styleOut.statuses) > 0 {
		s := styleOut.statuses[0]
		resp.Created.Style = &s
	}

	title := recordTitle(req.Context)
	switch mode {
	case types.ModeCreate:
		rec, err := buildToolRecord(req, caller, bp, promptOut.prompt, contentOut.contents, styleOut.style, title)
		if err != nil {
			return nil, fmt.Errorf("building tool record: %w", err)
		}
		id, err := e.writeRecord(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("persisting tool record: %w", err)
		}
		resp.Tool = &types.ToolRef{ID: &id, Title: title}
		logger.Info("tool created",
			zap.Int64("tool_id", id),
			zap.Int64("prompt_id", bp.PromptID),
			zap.Float64("compat_score", result.Score))
	default:
		resp.Tool = &types.ToolRef{Title: title}
		resp.NextAction = nextAction(req, bp, spaceID)
	}

	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp, nil
}

// resolvePrompt fills the mandatory prompt slot. An explicit id is
// fetched and validated directly with no ranking; otherwise candidates
// are retrieved, ranked, and the top selection promoted.
func (e *Engine) resolvePrompt(ctx context.Context, req types.AssemblyRequest, caller types.Requester, query string, maxCandidates, topK int) roleOutcome {
	var out roleOutcome

	if req.PromptID != nil {
		comp, err := e.fetchValidated(ctx, *req.PromptID, types.RolePrompt, caller)
		if err != nil {
			out.err = &NotFoundError{Role: types.RolePrompt, ID: *req.PromptID}
			return out
		}
		out.prompt = comp
		out.statuses = []types.ComponentStatus{{ID: comp.ID, Selected: true, Explicit: true}}
		return out
	}

	candidates, err := e.retriever.Search(ctx, query, types.RolePrompt, maxCandidates, caller)
	if err != nil {
		e.logger.Warn("prompt retrieval failed", zap.Error(err))
		candidates = nil
	}

	out.candidates = e.ranker.Rerank(ctx, candidates, query, topK, req.UseSemanticRerank)

	for _, c := range out.candidates {
		comp, err := e.retriever.Fetch(ctx, c.ID, caller)
		if err != nil {
			e.logger.Warn("prompt candidate fetch failed", zap.Int64("id", c.ID), zap.Error(err))
			continue
		}
		out.prompt = comp
		out.statuses = []types.ComponentStatus{{ID: comp.ID, Selected: true}}
		break
	}
	return out
}

// resolveContents fills the content slots. Explicit ids are validated
// independently; an invalid id is dropped with a warning unless zero
// survive under strict. Absence of content is never fatal.
func (e *Engine) resolveContents(ctx context.Context, req types.AssemblyRequest, caller types.Requester, query string, maxCandidates, topK int) roleOutcome {
	var out roleOutcome

	if len(req.ContentIDs) > 0 {
		for _, id := range req.ContentIDs {
			comp, err := e.fetchValidated(ctx, id, types.RoleContent, caller)
			if err != nil {
				out.warnings = append(out.warnings, types.Warning{
					Code:    types.WarnContentInvalid,
					Message: fmt.Sprintf("content component %d dropped: not found or not accessible", id),
				})
				continue
			}
			out.contents = append(out.contents, *comp)
			out.statuses = append(out.statuses, types.ComponentStatus{ID: comp.ID, Selected: true, Explicit: true})
		}
		if len(out.contents) == 0 && req.Strict {
			out.err = fmt.Errorf("all explicit content components invalid: %w", ErrNotFound)
		}
		return out
	}

	candidates, err := e.retriever.Search(ctx, query, types.RoleContent, maxCandidates, caller)
	if err != nil {
		e.logger.Warn("content retrieval failed", zap.Error(err))
		candidates = nil
	}

	out.candidates = e.ranker.Rerank(ctx, candidates, query, topK, req.UseSemanticRerank)

	for _, c := range out.candidates {
		if len(out.contents) >= topK {
			break
		}
		comp, err := e.retriever.Fetch(ctx, c.ID, caller)
		if err != nil {
			e.logger.Warn("content candidate fetch failed", zap.Int64("id", c.ID), zap.Error(err))
			continue
		}
		out.contents = append(out.contents, *comp)
		out.statuses = append(out.statuses, types.ComponentStatus{ID: comp.ID, Selected: true})
	}

	if len(out.contents) == 0 {
		out.warnings = append(out.warnings, types.Warning{
			Code:    types.WarnNoContentSelected,
			Message: "no supporting content selected; the assembly proceeds with the prompt alone",
		})
	}
	return out
}

// resolveStyle fills the optional style slot. Style is purely additive:
// no failure here is ever fatal.
func (e *Engine) resolveStyle(ctx context.Context, req types.AssemblyRequest, caller types.Requester, query string, maxCandidates, topK int) roleOutcome {
	var out roleOutcome

	if req.StyleID != nil {
		comp, err := e.fetchValidated(ctx, *req.StyleID, types.RoleStyle, caller)
		if err != nil {
			out.warnings = append(out.warnings, types.Warning{
				Code:    types.WarnStyleInvalid,
				Message: fmt.Sprintf("style component %d dropped: not found or not accessible", *req.StyleID),
			})
			return out
		}
		out.style = comp
		out.statuses = []types.ComponentStatus{{ID: comp.ID, Selected: true, Explicit: true}}
		return out
	}

	candidates, err := e.retriever.Search(ctx, query, types.RoleStyle, maxCandidates, caller)
	if err != nil {
		e.logger.Warn("style retrieval failed", zap.Error(err))
		candidates = nil
	}

	out.candidates = e.ranker.Rerank(ctx, candidates, query, topK, req.UseSemanticRerank)

	for _, c := range out.candidates {
		comp, err := e.retriever.Fetch(ctx, c.ID, caller)
		if err != nil {
			continue
		}
		out.style = comp
		out.statuses = []types.ComponentStatus{{ID: comp.ID, Selected: true}}
		break
	}

	if out.style == nil {
		out.warnings = append(out.warnings, types.Warning{
			Code:    types.WarnNoStyleSelected,
			Message: "no style component selected; a neutral formal style applies",
		})
	}
	return out
}

// fetchValidated resolves an explicit id: the record must exist, carry
// the expected role label, and be readable by the caller.
func (e *Engine) fetchValidated(ctx context.Context, id int64, role types.Role, caller types.Requester) (*types.Component, error) {
	comp, err := e.retriever.Fetch(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if comp.Role != role {
		return nil, fmt.Errorf("component %d has role %q, want %q", id, comp.Role, role)
	}
	ok, err := e.gate.CanRead(ctx, id, caller)
	if err != nil || !ok {
		return nil, &NotFoundError{Role: role, ID: id}
	}
	return comp, nil
}

// autoCreatePrompt persists a minimal default prompt synthesized from the
// request's raw context text and returns it marked auto-created.
func (e *Engine) autoCreatePrompt(ctx context.Context, req types.AssemblyRequest, caller types.Requester, spaceID int64) (*types.Component, error) {
	rec := &types.ToolRecord{
		SpaceID:  spaceID,
		AuthorID: caller.UserID,
		Title:    recordTitle(req.Context),
		Body:     req.Context,
		Label:    string(types.RolePrompt),
	}
	id, err := e.writeRecord(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("creating default prompt: %w", err)
	}

	return &types.Component{
		ID:          id,
		Title:       rec.Title,
		FullText:    req.Context,
		Label:       string(types.RolePrompt),
		Role:        types.RolePrompt,
		AuthorID:    caller.UserID,
		AutoCreated: true,
	}, nil
}

func (e *Engine) writeRecord(ctx context.Context, rec *types.ToolRecord) (int64, error) {
	if e.writer == nil {
		return 0, fmt.Errorf("no write collaborator configured")
	}
	return e.writer.CreateRecord(ctx, rec)
}

// nextAction computes the deferred creation payload propose and simulate
// return instead of persisting anything: the exact request a subsequent
// create call needs, with the chosen components made explicit.
func nextAction(req types.AssemblyRequest, bp *types.Blueprint, spaceID int64) *types.NextAction {
	payload := req
	payload.Mode = types.ModeCreate
	payload.SpaceID = spaceID
	payload.PromptID = &bp.PromptID
	payload.ContentIDs = append([]int64(nil), bp.ContentIDs...)
	payload.StyleID = bp.StyleID

	return &types.NextAction{
		Endpoint: "assembly.create",
		Payload:  payload,
	}
}

func firstStatus(statuses []types.ComponentStatus) types.ComponentStatus {
	if len(statuses) > 0 {
		return statuses[0]
	}
	return types.ComponentStatus{}
}
