// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the reposcout MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Reposcout Ranking Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: rank_repositories ---
	s.AddTool(mcp.NewTool("rank_repositories",
		mcp.WithDescription("Aggregate, score, filter and rank repositories, returning a diversity-balanced shortlist."),
		mcp.WithArray("input", mcp.Description("Batch files (YAML or JSON) with repositories and source records. Defaults to the record store."), mcp.WithStringItems()),
		mcp.WithArray("category", mcp.Description("Only rank these categories."), mcp.WithStringItems()),
		mcp.WithString("algorithm", mcp.Description("Ranking algorithm. Defaults to 'weighted_sum'."), mcp.Enum("weighted_sum", "pareto", "topsis")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of shortlist entries returned.")),
	), h.handleRankRepositories)

	// --- 2. Tool: score_repository ---
	s.AddTool(mcp.NewTool("score_repository",
		mcp.WithDescription("Explain one repository: its unified record with provenance, score breakdown and threshold evidence."),
		mcp.WithString("repository", mcp.Description("Repository id, e.g. 'tokio-rs/tokio'."), mcp.Required()),
		mcp.WithArray("input", mcp.Description("Batch files (YAML or JSON). Defaults to the record store."), mcp.WithStringItems()),
	), h.handleScoreRepository)

	// --- 3. Tool: get_run_status ---
	s.AddTool(mcp.NewTool("get_run_status",
		mcp.WithDescription("Report the status of the record store and the run store, including the last run."),
	), h.handleGetRunStatus)

	return s
}

// StartMCPServer starts the reposcout MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
