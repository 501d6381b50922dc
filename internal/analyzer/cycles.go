package analyzer

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// CycleInfo describes cycle membership of every node
type CycleInfo struct {
	// Components are strongly connected components with more than one node,
	// plus self-loop nodes when those count as cycles. Each is sorted and the
	// list is ordered by first member.
	Components [][]string

	// Length maps a node index to the size of its cycle (0 when acyclic)
	Length []int
}

// DetectCycles finds cycles with Tarjan's algorithm over the self-loop free
// graph. A self-loop alone forms a cycle of length 1 only when
// selfLoopsAsCycles is set.
func DetectCycles(g *DependencyGraph, selfLoopsAsCycles bool) *CycleInfo {
	n := g.NodeCount()
	info := &CycleInfo{Length: make([]int, n)}
	if n == 0 {
		return info
	}

	dg := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		dg.AddNode(simple.Node(int64(i)))
	}
	for from, arcs := range g.out {
		for _, a := range arcs {
			dg.SetEdge(dg.NewEdge(simple.Node(int64(from)), simple.Node(int64(a.to))))
		}
	}

	for _, component := range topo.TarjanSCC(dg) {
		if len(component) < 2 {
			continue
		}
		members := make([]string, len(component))
		for i, node := range component {
			idx := int(node.ID())
			info.Length[idx] = len(component)
			members[i] = g.ids[idx]
		}
		sort.Strings(members)
		info.Components = append(info.Components, members)
	}

	if selfLoopsAsCycles {
		for i, loop := range g.selfLoops {
			if loop && info.Length[i] == 0 {
				info.Length[i] = 1
				info.Components = append(info.Components, []string{g.ids[i]})
			}
		}
	}

	sort.Slice(info.Components, func(i, j int) bool {
		return info.Components[i][0] < info.Components[j][0]
	})
	return info
}
