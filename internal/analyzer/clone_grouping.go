package analyzer

import (
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// GroupClones links exposed clone pairs into connected components using
// Union-Find. Groups are ordered by decreasing average similarity, then
// size, then first member.
func GroupClones(pairs []domain.ClonePair) []domain.CloneGroup {
	if len(pairs) == 0 {
		return nil
	}

	parent := make(map[string]string)
	rank := make(map[string]int)
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		switch {
		case rank[ra] < rank[rb]:
			parent[ra] = rb
		case rank[ra] > rank[rb]:
			parent[rb] = ra
		default:
			parent[rb] = ra
			rank[ra]++
		}
	}

	for _, p := range pairs {
		for _, id := range []string{p.EntityA, p.EntityB} {
			if _, ok := parent[id]; !ok {
				parent[id] = id
			}
		}
	}
	for _, p := range pairs {
		union(p.EntityA, p.EntityB)
	}

	members := make(map[string][]string)
	for id := range parent {
		root := find(id)
		members[root] = append(members[root], id)
	}
	simSum := make(map[string]float64)
	pairCount := make(map[string]int)
	for _, p := range pairs {
		root := find(p.EntityA)
		simSum[root] += p.Similarity
		pairCount[root]++
	}

	groups := make([]domain.CloneGroup, 0, len(members))
	for root, ids := range members {
		sort.Strings(ids)
		groups = append(groups, domain.CloneGroup{
			Members:           ids,
			AverageSimilarity: simSum[root] / float64(pairCount[root]),
			Pairs:             pairCount[root],
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if !almostEqual(groups[i].AverageSimilarity, groups[j].AverageSimilarity) {
			return groups[i].AverageSimilarity > groups[j].AverageSimilarity
		}
		if len(groups[i].Members) != len(groups[j].Members) {
			return len(groups[i].Members) > len(groups[j].Members)
		}
		return groups[i].Members[0] < groups[j].Members[0]
	})
	for i := range groups {
		groups[i].ID = i + 1
	}
	return groups
}

func almostEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}
