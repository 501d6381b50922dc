package analyzer

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

func edge(from, to string) domain.DependencyEdge {
	return domain.DependencyEdge{From: from, To: to}
}

func buildGraph(t *testing.T, ids []string, edges ...domain.DependencyEdge) *DependencyGraph {
	t.Helper()
	g, anomalies := NewDependencyGraph(ids, edges)
	require.Empty(t, anomalies)
	return g
}

func star(leaves int) ([]string, []domain.DependencyEdge) {
	ids := []string{"center"}
	var edges []domain.DependencyEdge
	for i := 0; i < leaves; i++ {
		leaf := fmt.Sprintf("leaf%02d", i)
		ids = append(ids, leaf)
		edges = append(edges, edge(leaf, "center"), edge("center", leaf))
	}
	return ids, edges
}

func cycle(n int) ([]string, []domain.DependencyEdge) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%03d", i)
	}
	var edges []domain.DependencyEdge
	for i := range ids {
		edges = append(edges, edge(ids[i], ids[(i+1)%n]))
	}
	return ids, edges
}

func complete(n int) ([]string, []domain.DependencyEdge) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%03d", i)
	}
	var edges []domain.DependencyEdge
	for _, from := range ids {
		for _, to := range ids {
			if from != to {
				edges = append(edges, edge(from, to))
			}
		}
	}
	return ids, edges
}

// assertRankingAgrees checks that sampled scores stay within tol of the exact
// ones, relative to the largest exact score, and that any pair the exact
// scores separate by more than that keeps its order.
func assertRankingAgrees(t *testing.T, metric string, exact, sampled []float64, tol float64) {
	t.Helper()
	require.Len(t, sampled, len(exact))
	scale := 0.0
	for _, v := range exact {
		scale = math.Max(scale, v)
	}
	if scale == 0 {
		scale = 1
	}
	for i := range exact {
		assert.InDelta(t, exact[i], sampled[i], tol*scale, "%s of node %d", metric, i)
		for j := range exact {
			if exact[i]-exact[j] > tol*scale {
				assert.Greater(t, sampled[i], sampled[j], "%s order of nodes %d and %d", metric, i, j)
			}
		}
	}
}

// pseudoRandomGraph builds a deterministic graph with a mix of fan-in and cycles
func pseudoRandomGraph(n int) ([]string, []domain.DependencyEdge) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%03d", i)
	}
	var edges []domain.DependencyEdge
	for i := 0; i < n; i++ {
		for _, step := range []int{1, 7, 13} {
			j := (i*step + 3) % n
			if j != i {
				edges = append(edges, edge(ids[i], ids[j]))
			}
		}
	}
	return ids, edges
}

func TestNewDependencyGraph_BuildsIndexAndExternals(t *testing.T) {
	g, anomalies := NewDependencyGraph([]string{"b", "a"}, []domain.DependencyEdge{
		{From: "a", To: "b", Weight: 3},
		{From: "a", To: "b", Weight: 2},
		{From: "b", To: "lib.os"},
		{From: "b", To: "b"},
		{From: "a", To: ""},
		{From: "a", To: "b", Weight: -1},
	})

	assert.Len(t, anomalies, 2)
	for _, a := range anomalies {
		assert.Equal(t, domain.StageGraph, a.Stage)
	}
	assert.Equal(t, []string{"a", "b", "lib.os"}, g.Nodes())
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, 1, g.ExternalCount())
	assert.True(t, g.IsExternal("lib.os"))
	assert.False(t, g.IsExternal("a"))
	assert.True(t, g.HasSelfLoop("b"))
	assert.Equal(t, [][2]string{{"a", "b"}, {"b", "lib.os"}}, g.Edges())

	ai, _ := g.Index("a")
	require.Len(t, g.out[ai], 1)
	assert.Equal(t, 2.0, g.out[ai][0].weight, "duplicate edges keep the minimum weight")

	bi, _ := g.Index("b")
	assert.Equal(t, 1, g.OutDegree(bi))
	assert.Equal(t, 1, g.InDegree(bi))
}

func TestNewDependencyGraph_ZeroWeightMeansOne(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, edge("a", "b"))
	ai, _ := g.Index("a")
	assert.Equal(t, 1.0, g.out[ai][0].weight)
}

func TestExactCentrality_Star(t *testing.T) {
	ids, edges := star(4)
	g := buildGraph(t, ids, edges...)

	scores, err := (&ExactCentrality{}).Compute(context.Background(), g)
	require.NoError(t, err)

	ci, _ := g.Index("center")
	// every ordered pair of distinct leaves routes through the center
	assert.InDelta(t, 12.0, scores.Betweenness[ci], 1e-9)
	for i, b := range scores.Betweenness {
		if i != ci {
			assert.Equal(t, 0.0, b)
		}
	}
	assert.Equal(t, 5, scores.Sources)
	assert.False(t, scores.Approximate)
}

func TestExactCentrality_ChainCloseness(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, edge("a", "b"), edge("b", "c"))

	scores, err := (&ExactCentrality{}).Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 0.0, scores.Closeness[0])
	assert.InDelta(t, 0.5, scores.Closeness[1], 1e-9)
	assert.InDelta(t, 2.0/3.0, scores.Closeness[2], 1e-9)
	assert.InDelta(t, 1.0, scores.Betweenness[1], 1e-9)
}

func TestExactCentrality_MatchesGonumBetweenness(t *testing.T) {
	ids, edges := pseudoRandomGraph(40)
	g := buildGraph(t, ids, edges...)

	scores, err := (&ExactCentrality{Workers: 4}).Compute(context.Background(), g)
	require.NoError(t, err)

	dg := simple.NewDirectedGraph()
	for i := range ids {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		from, _ := g.Index(e[0])
		to, _ := g.Index(e[1])
		dg.SetEdge(dg.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
	}
	reference := network.Betweenness(dg)

	for i := range ids {
		assert.InDelta(t, reference[int64(i)], scores.Betweenness[i], 1e-6, "node %s", ids[i])
	}
}

func TestExactCentrality_WeightedPaths(t *testing.T) {
	edges := []domain.DependencyEdge{
		{From: "a", To: "b", Weight: 1},
		{From: "b", To: "c", Weight: 1},
		{From: "a", To: "c", Weight: 5},
	}
	g, _ := NewDependencyGraph([]string{"a", "b", "c"}, edges)
	bi, _ := g.Index("b")

	unweighted, err := (&ExactCentrality{}).Compute(context.Background(), g)
	require.NoError(t, err)
	weighted, err := (&ExactCentrality{Weighted: true}).Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 0.0, unweighted.Betweenness[bi])
	assert.InDelta(t, 1.0, weighted.Betweenness[bi], 1e-9)
}

func TestExactCentrality_DeterministicAcrossWorkers(t *testing.T) {
	ids, edges := pseudoRandomGraph(150)
	g := buildGraph(t, ids, edges...)

	one, err := (&ExactCentrality{Workers: 1}).Compute(context.Background(), g)
	require.NoError(t, err)
	many, err := (&ExactCentrality{Workers: 8}).Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, one.Betweenness, many.Betweenness)
	assert.Equal(t, one.Closeness, many.Closeness)
}

func TestSampledCentrality_FullSampleMatchesExact(t *testing.T) {
	ids, edges := pseudoRandomGraph(60)
	g := buildGraph(t, ids, edges...)

	exact, err := (&ExactCentrality{}).Compute(context.Background(), g)
	require.NoError(t, err)
	sampled, err := (&SampledCentrality{SampleRate: 1.0, MinSamples: 1, Seed: 7}).Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 60, sampled.Sources)
	assert.False(t, sampled.Approximate)
	assert.InDeltaSlice(t, exact.Betweenness, sampled.Betweenness, 1e-6)
	assert.InDeltaSlice(t, exact.Closeness, sampled.Closeness, 1e-9)
}

func TestSampledCentrality_PreservesStarRanking(t *testing.T) {
	ids, edges := star(30)
	g := buildGraph(t, ids, edges...)
	strategy := &SampledCentrality{SampleRate: 0.25, MinSamples: 4, Seed: 42}

	first, err := strategy.Compute(context.Background(), g)
	require.NoError(t, err)
	second, err := strategy.Compute(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 8, first.Sources)
	assert.True(t, first.Approximate)
	assert.Equal(t, first.Betweenness, second.Betweenness, "same seed must give identical samples")

	ci, _ := g.Index("center")
	for i, b := range first.Betweenness {
		if i != ci {
			assert.Less(t, b, first.Betweenness[ci])
		}
	}
}

func TestSampledCentrality_AgreesWithExactRanking(t *testing.T) {
	type graphFunc func(int) ([]string, []domain.DependencyEdge)
	tests := []struct {
		name           string
		build          graphFunc
		size           int
		rate           float64
		betweennessTol float64
		closenessTol   float64
	}{
		{name: "star", build: star, size: 30, rate: 0.25, betweennessTol: 0.05, closenessTol: 0.02},
		// every node is equivalent, so the error is pure sampling variance
		{name: "cycle", build: cycle, size: 40, rate: 0.5, betweennessTol: 0.25, closenessTol: 0.25},
		{name: "complete", build: complete, size: 40, rate: 0.25, betweennessTol: 1e-9, closenessTol: 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, edges := tt.build(tt.size)
			g := buildGraph(t, ids, edges...)

			exact, err := (&ExactCentrality{}).Compute(context.Background(), g)
			require.NoError(t, err)
			sampled, err := (&SampledCentrality{SampleRate: tt.rate, MinSamples: 4, Seed: 42}).Compute(context.Background(), g)
			require.NoError(t, err)
			require.True(t, sampled.Approximate)

			assertRankingAgrees(t, "betweenness", exact.Betweenness, sampled.Betweenness, tt.betweennessTol)
			assertRankingAgrees(t, "closeness", exact.Closeness, sampled.Closeness, tt.closenessTol)
		})
	}
}

func TestSampledCentrality_CompleteGraphClosenessIsUniform(t *testing.T) {
	ids, edges := complete(40)
	g := buildGraph(t, ids, edges...)

	sampled, err := (&SampledCentrality{SampleRate: 0.25, MinSamples: 4, Seed: 42}).Compute(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, 10, sampled.Sources)

	for i, c := range sampled.Closeness {
		assert.InDelta(t, 1.0, c, 1e-9, "node %d", i)
	}
}

func TestSampledCentrality_SampleSize(t *testing.T) {
	s := &SampledCentrality{SampleRate: 0.1, MinSamples: 32}

	assert.Equal(t, 32, s.SampleSize(100))
	assert.Equal(t, 500, s.SampleSize(5000))
	assert.Equal(t, 10, s.SampleSize(10))
}

func TestCentralityPolicy_Select(t *testing.T) {
	policy := CentralityPolicy{Ceiling: 100, SampleRate: 0.1, MinSamples: 8, Seed: 1}

	assert.Equal(t, domain.CentralityModeExact, policy.Select(100).Name())
	assert.Equal(t, domain.CentralityModeSampled, policy.Select(101).Name())
}

func TestCentrality_Cancelled(t *testing.T) {
	ids, edges := pseudoRandomGraph(80)
	g := buildGraph(t, ids, edges...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&ExactCentrality{}).Compute(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectCycles(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d", "x"},
		edge("a", "b"), edge("b", "c"), edge("c", "a"), edge("d", "a"), edge("x", "x"))

	info := DetectCycles(g, false)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, info.Components)
	for _, id := range []string{"a", "b", "c"} {
		i, _ := g.Index(id)
		assert.Equal(t, 3, info.Length[i])
	}
	di, _ := g.Index("d")
	xi, _ := g.Index("x")
	assert.Equal(t, 0, info.Length[di])
	assert.Equal(t, 0, info.Length[xi], "a self-loop is not a cycle by default")

	info = DetectCycles(g, true)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"x"}}, info.Components)
	assert.Equal(t, 1, info.Length[xi])
}

func TestGraphAnalyzer_Analyze(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"},
		edge("a", "b"), edge("b", "c"), edge("c", "a"), edge("d", "a"), edge("d", "ext.lib"))
	analyzer := NewGraphAnalyzer(GraphAnalyzerConfig{Policy: CentralityPolicy{Ceiling: 100}})

	result, err := analyzer.Analyze(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Summary.Nodes)
	assert.Equal(t, 5, result.Summary.Edges)
	assert.Equal(t, 1, result.Summary.ExternalNodes)
	assert.Equal(t, domain.CentralityModeExact, result.Summary.Mode)
	assert.Equal(t, 1, result.Summary.Cycles)
	assert.Equal(t, 3, result.Summary.NodesInCycles)
	assert.Equal(t, 3, result.Summary.LargestCycle)

	a := result.Centrality["a"]
	assert.True(t, a.InCycle)
	assert.Equal(t, 3, a.CycleLength)
	assert.Equal(t, 2, a.InDegree)
	assert.InDelta(t, a.Betweenness/12.0, a.NormalizedBetweenness, 1e-12)
	assert.False(t, result.Centrality["d"].InCycle)
}

func TestGraphAnalyzer_EmptyGraph(t *testing.T) {
	g := buildGraph(t, nil)
	result, err := NewGraphAnalyzer(GraphAnalyzerConfig{}).Analyze(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, result.Centrality)
	assert.Equal(t, 0, result.Summary.Nodes)
}
