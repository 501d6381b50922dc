package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// defaultLimit caps summary responses so they stay readable in a chat
const defaultLimit = 20

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "", nil)
	}
	return &HandlerSet{deps: deps}
}

// HandleRankCandidates handles the rank_candidates tool
func (h *HandlerSet) HandleRankCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := request.Params.Arguments.(map[string]interface{}); !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required and must be a string"), nil
	}
	if !strings.ContainsAny(path, "*?[{") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path)), nil
		}
	}

	req := domain.AnalyzeRequest{
		FeaturePaths: []string{path},
		CoveragePath: request.GetString("coverage", ""),
		Limit:        request.GetInt("limit", defaultLimit),
	}
	if req.Limit < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be >= 0, got %d", req.Limit)), nil
	}
	if raw := request.GetString("min_tier", ""); raw != "" {
		tier, err := domain.ParsePriorityTier(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.MinTier = tier
	}

	uc, err := h.deps.BuildAnalyzeUseCase()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create analyzer: %v", err)), nil
	}
	result, err := uc.Rank(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	var responseData interface{}
	switch request.GetString("output_mode", "summary") {
	case "full":
		responseData = result
	default:
		responseData = summarize(result)
	}

	jsonData, err := json.Marshal(responseData)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func summarize(result *domain.AnalysisResult) map[string]interface{} {
	candidates := make([]map[string]interface{}, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		entry := map[string]interface{}{
			"rank":       c.Rank,
			"entity_id":  c.EntityID,
			"file_path":  c.FilePath,
			"lines":      c.Lines,
			"score":      c.Score,
			"tier":       c.Tier,
			"confidence": c.Confidence,
			"reasons":    c.Reasons,
		}
		if c.Promoted {
			entry["promoted"] = true
		}
		if len(c.ClonePairs) > 0 {
			partners := make([]string, 0, len(c.ClonePairs))
			for i := range c.ClonePairs {
				partners = append(partners, c.ClonePairs[i].Other(c.EntityID))
			}
			entry["clone_partners"] = partners
		}
		candidates = append(candidates, entry)
	}

	return map[string]interface{}{
		"run_id": result.RunID,
		"summary": map[string]interface{}{
			"entities":     result.Summary.Entities,
			"candidates":   result.Summary.Candidates,
			"tier_counts":  result.Summary.TierCounts,
			"clone_pairs":  result.Summary.ClonePairs,
			"clone_groups": result.Summary.CloneGroups,
			"anomalies":    result.Summary.Anomalies,
			"graph_mode":   result.Graph.Mode,
			"cycles":       result.Graph.Cycles,
		},
		"candidates": candidates,
	}
}
