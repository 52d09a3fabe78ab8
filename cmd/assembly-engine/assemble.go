// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/assembly-engine/internal/assemble"
	"github.com/pdiddy/assembly-engine/internal/compat"
	"github.com/pdiddy/assembly-engine/internal/gemini"
	"github.com/pdiddy/assembly-engine/internal/library"
	"github.com/pdiddy/assembly-engine/internal/rank"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [context]",
	Short: "Assemble a tool from library components",
	Long: `Assemble runs the full pipeline for a natural-language context: query
expansion, per-role candidate retrieval, ranking, compatibility scoring,
and blueprint construction. The mode decides what happens with the
result: propose and simulate return the blueprint plus a deferred
creation payload; create persists a new tool record.

Explicit --prompt-id, --content-ids, or --style-id selections bypass
retrieval for that role.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAssemble,
}

func runAssemble(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := engineConfig()

	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	// The semantic backend is optional; without an API key the pipeline
	// runs fully lexical with a neutral compatibility score.
	var backend *gemini.Client
	if cfg.AI.APIKey != "" {
		backend, err = gemini.NewClient(cfg.AI)
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintln(os.Stderr, "No gemini-api-key configured; semantic reranking and compatibility scoring disabled")
	}

	cache := buildCache(cfg)

	var chat rank.SemanticBackend
	if backend != nil {
		chat = backend
	}
	ranker := rank.New(cfg.Rank, cache, chat, logger)

	var scorerBackend compat.ChatBackend
	if backend != nil {
		scorerBackend = backend
	}
	scorer := compat.New(cfg.Compat, scorerBackend, logger)

	engine, err := assemble.New(cfg, assemble.Deps{
		Retriever: store,
		Gate:      store,
		Writer:    store,
		Ranker:    ranker,
		Scorer:    scorer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	req, caller, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	resp, err := engine.Assemble(context.Background(), req, caller)
	if err != nil {
		return formatAssembleError(err)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatAssembleOutput(resp, jsonOutput)
}

// buildCache selects the ranked-result cache. A failing redis connection
// degrades to the in-memory cache with a note on stderr.
func buildCache(cfg types.EngineConfig) rank.Cache {
	if cfg.Cache.Backend == types.CacheRedis && cfg.Cache.RedisURL != "" {
		c, err := rank.NewRedisCacheFromURL(cfg.Cache.RedisURL)
		if err == nil {
			return c
		}
		fmt.Fprintf(os.Stderr, "warning: redis cache unavailable (%v), using in-memory cache\n", err)
	}
	return rank.NewMemoryCache(cfg.Cache.MaxEntries)
}

func requestFromFlags(cmd *cobra.Command, args []string) (types.AssemblyRequest, types.Requester, error) {
	req := types.NewAssemblyRequest(strings.Join(args, " "))

	modeStr, _ := cmd.Flags().GetString("mode")
	if modeStr != "" {
		mode, err := types.ParseMode(modeStr)
		if err != nil {
			return req, types.Requester{}, err
		}
		req.Mode = mode
	}

	if cmd.Flags().Changed("prompt-id") {
		id, _ := cmd.Flags().GetInt64("prompt-id")
		req.PromptID = &id
	}
	if cmd.Flags().Changed("style-id") {
		id, _ := cmd.Flags().GetInt64("style-id")
		req.StyleID = &id
	}
	req.ContentIDs, _ = cmd.Flags().GetInt64Slice("content-ids")
	req.SpaceID, _ = cmd.Flags().GetInt64("space-id")
	req.AutoCreate, _ = cmd.Flags().GetBool("auto-create")
	req.MaxCandidates, _ = cmd.Flags().GetInt("max-candidates")
	req.TopK, _ = cmd.Flags().GetInt("top-k")
	req.PinComponents, _ = cmd.Flags().GetBool("pin")
	req.Strict, _ = cmd.Flags().GetBool("strict")

	noSemantic, _ := cmd.Flags().GetBool("no-semantic-rerank")
	req.UseSemanticRerank = !noSemantic
	noExpansion, _ := cmd.Flags().GetBool("no-query-expansion")
	req.UseQueryExpansion = !noExpansion

	userID, _ := cmd.Flags().GetInt64("user")
	homeSpace, _ := cmd.Flags().GetInt64("home-space")
	caller := types.Requester{UserID: userID, HomeSpaceID: homeSpace}

	return req, caller, nil
}

// formatAssembleError unwraps the engine's typed errors into actionable
// CLI messages. A missing prompt still lists the candidates that were
// considered so the user can retry with an explicit id.
func formatAssembleError(err error) error {
	var pm *assemble.PromptMissingError
	if errors.As(err, &pm) {
		if len(pm.Candidates) > 0 {
			fmt.Fprintln(os.Stderr, "No prompt component matched. Closest candidates:")
			for _, c := range pm.Candidates {
				fmt.Fprintf(os.Stderr, "  %d  %s\n", c.ID, c.Title)
			}
			fmt.Fprintln(os.Stderr, "Retry with --prompt-id, or --auto-create --mode create.")
		}
		return fmt.Errorf("no prompt component available")
	}

	var lc *assemble.LowCompatibilityError
	if errors.As(err, &lc) {
		for _, issue := range lc.Issues {
			fmt.Fprintf(os.Stderr, "  issue: %s\n", issue)
		}
		return fmt.Errorf("compatibility %.3f below threshold %.3f (strict create)", lc.Score, lc.Threshold)
	}

	return err
}

func formatAssembleOutput(resp *types.AssemblyResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(os.Stdout, "Assembly %s (%s mode, %d ms)\n", resp.AssemblyID, resp.Mode, resp.LatencyMS)
	if resp.Tool != nil {
		if resp.Tool.ID != nil {
			fmt.Fprintf(os.Stdout, "Created tool %d: %s\n", *resp.Tool.ID, resp.Tool.Title)
		} else {
			fmt.Fprintf(os.Stdout, "Proposed tool: %s\n", resp.Tool.Title)
		}
	}

	if bp := resp.Blueprint; bp != nil {
		fmt.Fprintf(os.Stdout, "\nBlueprint (v%d)\n", bp.Metadata.Version)
		fmt.Fprintf(os.Stdout, "  prompt:  %d\n", bp.PromptID)
		if len(bp.ContentIDs) > 0 {
			fmt.Fprintf(os.Stdout, "  content: %v\n", bp.ContentIDs)
		}
		if bp.StyleID != nil {
			fmt.Fprintf(os.Stdout, "  style:   %d\n", *bp.StyleID)
		}
		if bp.CompatScore != nil {
			fmt.Fprintf(os.Stdout, "  compat:  %.3f\n", *bp.CompatScore)
		}
	}

	printCandidates := func(role string, cands []types.Candidate) {
		if len(cands) == 0 {
			return
		}
		fmt.Fprintf(os.Stdout, "\n%s candidates\n", role)
		fmt.Fprintf(os.Stdout, "%-6s  %-40s  %-8s  %s\n", "ID", "Title", "Score", "Source")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
		for _, c := range cands {
			title := c.Title
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-6d  %-40s  %-8.3f  %s\n", c.ID, title, c.Score, c.Source)
		}
	}
	printCandidates("Prompt", resp.Candidates.Prompt)
	printCandidates("Content", resp.Candidates.Contents)
	printCandidates("Style", resp.Candidates.Style)

	for _, w := range resp.Warnings {
		fmt.Fprintf(os.Stdout, "\nwarning [%s]: %s\n", w.Code, w.Message)
	}

	if resp.NextAction != nil {
		fmt.Fprintf(os.Stdout, "\nNext: submit the returned payload to %s to create this tool.\n", resp.NextAction.Endpoint)
	}
	return nil
}

func init() {
	assembleCmd.Flags().String("mode", "", "assembly mode: propose, simulate, or create (default: propose, or create with --auto-create)")
	assembleCmd.Flags().Int64("prompt-id", 0, "explicit prompt component id (skips prompt retrieval)")
	assembleCmd.Flags().Int64Slice("content-ids", nil, "explicit content component ids (comma-separated)")
	assembleCmd.Flags().Int64("style-id", 0, "explicit style component id")
	assembleCmd.Flags().Int64("space-id", 0, "target space (default: the caller's home space)")
	assembleCmd.Flags().Bool("auto-create", false, "create a minimal default prompt when none is found (create mode)")
	assembleCmd.Flags().Int("max-candidates", 0, "retrieval breadth per role (0 = configured default)")
	assembleCmd.Flags().Int("top-k", 0, "shortlist size after ranking (0 = configured default)")
	assembleCmd.Flags().Bool("no-semantic-rerank", false, "skip the semantic reranking stage")
	assembleCmd.Flags().Bool("no-query-expansion", false, "rank against the raw context text")
	assembleCmd.Flags().Bool("pin", false, "snapshot component text into the created record")
	assembleCmd.Flags().Bool("strict", false, "turn recoverable warnings into hard failures")
	assembleCmd.Flags().Int64("user", 1, "requesting user id")
	assembleCmd.Flags().Int64("home-space", 1, "requesting user's home space id")
	assembleCmd.Flags().Bool("json", false, "output the full response as JSON")

	rootCmd.AddCommand(assembleCmd)
}
