package analyzer

import (
	"fmt"
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// arc is one weighted adjacency entry
type arc struct {
	to     int
	weight float64
}

// DependencyGraph is a directed "depends on" graph over entity IDs.
// Nodes are indexed in sorted ID order; duplicate edges keep the minimum
// weight; self-loops are recorded separately and never used for paths.
type DependencyGraph struct {
	ids       []string
	index     map[string]int
	external  []bool
	out       [][]arc
	in        [][]arc
	selfLoops []bool
	edgeCount int
}

// NewDependencyGraph builds a graph from entity IDs and edges. Invalid
// edges are dropped and reported as anomalies. Edge endpoints that are not
// entities become external nodes. A zero weight means 1.
func NewDependencyGraph(entityIDs []string, edges []domain.DependencyEdge) (*DependencyGraph, []domain.Anomaly) {
	var anomalies []domain.Anomaly

	known := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		known[id] = true
	}

	type key struct{ from, to string }
	weights := make(map[key]float64)
	externals := make(map[string]bool)
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: e.From,
				Stage:    domain.StageGraph,
				Message:  err.Error(),
			})
			continue
		}
		w := e.Weight
		if w == 0 {
			w = 1
		}
		k := key{e.From, e.To}
		if old, ok := weights[k]; !ok || w < old {
			weights[k] = w
		}
		for _, id := range []string{e.From, e.To} {
			if !known[id] {
				externals[id] = true
			}
		}
	}

	ids := make([]string, 0, len(known)+len(externals))
	for id := range known {
		ids = append(ids, id)
	}
	for id := range externals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := &DependencyGraph{
		ids:       ids,
		index:     make(map[string]int, len(ids)),
		external:  make([]bool, len(ids)),
		out:       make([][]arc, len(ids)),
		in:        make([][]arc, len(ids)),
		selfLoops: make([]bool, len(ids)),
	}
	for i, id := range ids {
		g.index[id] = i
		g.external[i] = externals[id]
	}

	for k, w := range weights {
		from, to := g.index[k.from], g.index[k.to]
		g.edgeCount++
		if from == to {
			g.selfLoops[from] = true
			continue
		}
		g.out[from] = append(g.out[from], arc{to: to, weight: w})
		g.in[to] = append(g.in[to], arc{to: from, weight: w})
	}
	for i := range ids {
		sortArcs(g.out[i])
		sortArcs(g.in[i])
	}

	return g, anomalies
}

func sortArcs(arcs []arc) {
	sort.Slice(arcs, func(i, j int) bool { return arcs[i].to < arcs[j].to })
}

// NodeCount returns the number of nodes, external nodes included
func (g *DependencyGraph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of distinct edges, self-loops included
func (g *DependencyGraph) EdgeCount() int { return g.edgeCount }

// ExternalCount returns the number of nodes that are not entities
func (g *DependencyGraph) ExternalCount() int {
	n := 0
	for _, ext := range g.external {
		if ext {
			n++
		}
	}
	return n
}

// Nodes returns all node IDs (sorted)
func (g *DependencyGraph) Nodes() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Index returns the position of a node ID
func (g *DependencyGraph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// IsExternal reports whether the node was only referenced by edges
func (g *DependencyGraph) IsExternal(id string) bool {
	i, ok := g.index[id]
	return ok && g.external[i]
}

// HasSelfLoop reports whether the node depends on itself
func (g *DependencyGraph) HasSelfLoop(id string) bool {
	i, ok := g.index[id]
	return ok && g.selfLoops[i]
}

// OutDegree returns the number of distinct successors, self-loops excluded
func (g *DependencyGraph) OutDegree(i int) int { return len(g.out[i]) }

// InDegree returns the number of distinct predecessors, self-loops excluded
func (g *DependencyGraph) InDegree(i int) int { return len(g.in[i]) }

// Edges returns all non-self-loop edges as pairs (sorted by from,to)
func (g *DependencyGraph) Edges() [][2]string {
	var edges [][2]string
	for from, arcs := range g.out {
		for _, a := range arcs {
			edges = append(edges, [2]string{g.ids[from], g.ids[a.to]})
		}
	}
	return edges
}

// String returns a short description of the graph
func (g *DependencyGraph) String() string {
	return fmt.Sprintf("DependencyGraph{nodes: %d, edges: %d, external: %d}", g.NodeCount(), g.EdgeCount(), g.ExternalCount())
}
