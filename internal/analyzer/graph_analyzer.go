package analyzer

import (
	"context"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// GraphAnalyzerConfig configures centrality and cycle analysis
type GraphAnalyzerConfig struct {
	Policy            CentralityPolicy
	SelfLoopsAsCycles bool
}

// GraphAnalyzer computes per-node centrality and cycle metrics
type GraphAnalyzer struct {
	config GraphAnalyzerConfig
}

// NewGraphAnalyzer creates a graph analyzer
func NewGraphAnalyzer(config GraphAnalyzerConfig) *GraphAnalyzer {
	return &GraphAnalyzer{config: config}
}

// Analyze computes a CentralityResult for every node. An empty graph yields
// an empty result.
func (a *GraphAnalyzer) Analyze(ctx context.Context, g *DependencyGraph) (*domain.GraphResult, error) {
	result := &domain.GraphResult{Centrality: make(map[string]domain.CentralityResult)}
	n := g.NodeCount()
	result.Summary = domain.GraphSummary{
		Nodes:         n,
		Edges:         g.EdgeCount(),
		ExternalNodes: g.ExternalCount(),
		Mode:          domain.CentralityModeExact,
	}
	if n == 0 {
		return result, nil
	}

	strategy := a.config.Policy.Select(n)
	scores, err := strategy.Compute(ctx, g)
	if err != nil {
		return nil, err
	}
	cycles := DetectCycles(g, a.config.SelfLoopsAsCycles)

	result.Summary.Mode = scores.Mode
	result.Summary.Sources = scores.Sources
	result.Summary.Cycles = len(cycles.Components)
	result.Cycles = cycles.Components

	norm := 0.0
	if n > 2 {
		norm = float64((n - 1) * (n - 2))
	}
	for i, id := range g.ids {
		cr := domain.CentralityResult{
			NodeID:      id,
			Betweenness: scores.Betweenness[i],
			Closeness:   scores.Closeness[i],
			InDegree:    g.InDegree(i),
			OutDegree:   g.OutDegree(i),
			InCycle:     cycles.Length[i] > 0,
			CycleLength: cycles.Length[i],
			SelfLoop:    g.selfLoops[i],
			Approximate: scores.Approximate,
		}
		if norm > 0 {
			cr.NormalizedBetweenness = cr.Betweenness / norm
		}
		result.Centrality[id] = cr

		if cr.InCycle {
			result.Summary.NodesInCycles++
			if cr.CycleLength > result.Summary.LargestCycle {
				result.Summary.LargestCycle = cr.CycleLength
			}
		}
		if cr.SelfLoop {
			result.Summary.SelfLoops++
		}
	}
	return result, nil
}
