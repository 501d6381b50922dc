package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolRankCandidates is the name of the ranking tool
const ToolRankCandidates = "rank_candidates"

// RegisterTools registers all valknut MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	s.AddTool(mcp.NewTool(ToolRankCandidates,
		mcp.WithDescription("Rank refactoring candidates from pre-extracted code features using complexity, dependency graph centrality and clone detection"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Feature file, directory or glob pattern (JSON or YAML)")),
		mcp.WithString("coverage",
			mcp.Description("Optional coverage file mapping entity IDs to ratios in [0,1]")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of candidates to return, 0 = all (default: 20)")),
		mcp.WithString("min_tier",
			mcp.Enum("critical", "high", "medium", "low"),
			mcp.Description("Minimum priority tier to include (default: low)")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary returns ranked entities with reasons; full returns the whole analysis result (default: summary)")),
	), h.HandleRankCandidates)
}
