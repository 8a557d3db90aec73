package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/reposcout/core"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// rankResponse is the payload of rank_repositories.
type rankResponse struct {
	RunID      string                    `json:"run_id"`
	Algorithm  schema.RankAlgorithm      `json:"algorithm"`
	Shortlist  []schema.SelectionEntry   `json:"shortlist"`
	Manifest   []schema.ManifestEntry    `json:"manifest"`
	Summary    schema.DataQualitySummary `json:"summary"`
	Incomplete []string                  `json:"incomplete,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// scoreResponse is the payload of score_repository.
type scoreResponse struct {
	RunID      string                 `json:"run_id"`
	Repository string                 `json:"repository"`
	Unified    *schema.UnifiedRecord  `json:"unified,omitempty"`
	Score      *schema.ScoreBreakdown `json:"score,omitempty"`
	Filter     *schema.FilterResult   `json:"filter,omitempty"`
	Rank       int                    `json:"rank,omitempty"`
	Manifest   []schema.ManifestEntry `json:"manifest,omitempty"`
}

// statusResponse is the payload of get_run_status.
type statusResponse struct {
	Records *schema.RecordStoreStatus `json:"records,omitempty"`
	Runs    *schema.RunStoreStatus    `json:"runs,omitempty"`
	Notes   []string                  `json:"notes,omitempty"`
}

func (h *toolHandler) handleRankRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := applyRunArguments(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	result, runErr := core.RunPipelineSilently(ctx, cfg, h.mgr)
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("ranking failed: %v", runErr)), nil
	}

	resp := rankResponse{
		RunID:      result.RunID,
		Algorithm:  result.Algorithm,
		Shortlist:  shortlist(result, cfg.ResultLimit),
		Manifest:   result.Manifest,
		Summary:    result.Summary,
		Incomplete: result.Incomplete,
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	return jsonResult(resp)
}

func (h *toolHandler) handleScoreRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("repository", ""))
	if id == "" {
		return mcp.NewToolResultError("repository is required"), nil
	}
	cfg := h.baseCfg.Clone()
	if err := applyRunArguments(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	// Normalization depends on the whole population, so the full batch is run
	result, runErr := core.RunPipelineSilently(ctx, cfg, h.mgr)
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", runErr)), nil
	}

	resp := scoreResponse{RunID: result.RunID, Repository: id}
	if u, ok := result.UnifiedFor(id); ok {
		resp.Unified = &u
	}
	if s, ok := result.Scores[id]; ok {
		resp.Score = &s
	}
	if f, ok := result.FilterFor(id); ok {
		resp.Filter = &f
	}
	if result.Global != nil {
		for _, e := range result.Global.Entries {
			if e.RepositoryID == id {
				resp.Rank = e.Rank
				break
			}
		}
	}
	for _, m := range result.Manifest {
		if m.RepositoryID == id {
			resp.Manifest = append(resp.Manifest, m)
		}
	}

	if resp.Unified == nil && len(resp.Manifest) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("repository %s is not part of the batch", id)), nil
	}
	return jsonResult(resp)
}

func (h *toolHandler) handleGetRunStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp statusResponse
	if h.mgr == nil {
		resp.Notes = append(resp.Notes, "stores are not initialized")
		return jsonResult(resp)
	}

	if store := h.mgr.GetRecordStore(); store != nil {
		status, err := store.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get record store status: %v", err)), nil
		}
		resp.Records = &status
	} else {
		resp.Notes = append(resp.Notes, "record store is disabled")
	}

	if store := h.mgr.GetRunStore(); store != nil {
		status, err := store.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get run store status: %v", err)), nil
		}
		resp.Runs = &status
	} else {
		resp.Notes = append(resp.Notes, "run store is disabled")
	}

	return jsonResult(resp)
}

// applyRunArguments copies the optional run arguments of a request onto cfg.
func applyRunArguments(cfg *contract.Config, request mcp.CallToolRequest) error {
	if inputs := request.GetStringSlice("input", nil); len(inputs) > 0 {
		cfg.InputFiles = inputs
	}
	if raw := request.GetStringSlice("category", nil); len(raw) > 0 {
		cfg.Categories = nil
		for _, r := range raw {
			category, ok := schema.ParseCategory(r)
			if !ok {
				return fmt.Errorf("category %q: %w", r, schema.ErrUnknownCategory)
			}
			cfg.Categories = append(cfg.Categories, category)
		}
	}
	if a := request.GetString("algorithm", ""); a != "" {
		algorithm := schema.RankAlgorithm(strings.ToLower(a))
		if _, ok := schema.ValidRankAlgorithms[algorithm]; !ok {
			return fmt.Errorf("invalid algorithm '%s'. must be weighted_sum, pareto, topsis", a)
		}
		cfg.Algorithm = algorithm
	}
	if l := request.GetInt("limit", 0); l != 0 {
		if l < 0 || l > contract.MaxResultLimit {
			return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", contract.MaxResultLimit, l)
		}
		cfg.ResultLimit = l
	}
	return nil
}

// shortlist returns the included entries of the selection, or the top of the global ranking.
func shortlist(result *schema.RunResult, limit int) []schema.SelectionEntry {
	var entries []schema.SelectionEntry
	switch {
	case result.Selection != nil:
		entries = result.Selection.Shortlist()
	case result.Global != nil:
		for _, e := range result.Global.Entries {
			entries = append(entries, schema.SelectionEntry{RankedEntry: e, Included: true})
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []schema.SelectionEntry{}
	}
	return entries
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
