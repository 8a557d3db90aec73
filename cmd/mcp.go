package cmd

import (
	"github.com/huangsam/reposcout/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the reposcout MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents rank batches, score a
single repository and inspect the run store through standard tools.

Tools:
  rank_repositories - run the pipeline and return the shortlist
  score_repository  - return the unified record and score of one repository
  get_run_status    - return record and run store statistics`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
