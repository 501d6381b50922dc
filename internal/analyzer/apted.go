package analyzer

import (
	"math"
	"time"
)

// APTEDAnalyzer computes ordered tree edit distance with the Zhang-Shasha
// keyroot decomposition
type APTEDAnalyzer struct {
	costModel CostModel
	now       func() time.Time
}

// NewAPTEDAnalyzer creates a new tree edit distance analyzer with the given cost model
func NewAPTEDAnalyzer(costModel CostModel) *APTEDAnalyzer {
	if costModel == nil {
		costModel = NewDefaultCostModel()
	}
	return &APTEDAnalyzer{costModel: costModel, now: time.Now}
}

// TreeEditResult holds the result of tree edit distance computation
type TreeEditResult struct {
	Distance   float64
	Similarity float64
	Tree1Size  int
	Tree2Size  int

	// Completed is false when the deadline expired before the distance was known
	Completed bool
}

// ComputeDistance computes the tree edit distance between two trees
func (a *APTEDAnalyzer) ComputeDistance(tree1, tree2 *TreeNode) float64 {
	result := a.Compare(PrepareTree(tree1), PrepareTree(tree2), time.Time{})
	return result.Distance
}

// ComputeSimilarity computes similarity score between two trees (0.0 to 1.0)
func (a *APTEDAnalyzer) ComputeSimilarity(tree1, tree2 *TreeNode) float64 {
	result := a.Compare(PrepareTree(tree1), PrepareTree(tree2), time.Time{})
	return result.Similarity
}

// Compare computes distance and similarity of two prepared trees. A zero
// deadline means no deadline; otherwise the deadline is checked between
// keyroot iterations and an expired run returns Completed=false.
func (a *APTEDAnalyzer) Compare(t1, t2 *PreparedTree, deadline time.Time) *TreeEditResult {
	n1, n2 := t1.Size(), t2.Size()
	result := &TreeEditResult{Tree1Size: n1, Tree2Size: n2}

	switch {
	case n1 == 0 && n2 == 0:
		result.Similarity = 1.0
		result.Completed = true
		return result
	case n1 == 0:
		result.Distance = a.sumCost(t2.Nodes, a.costModel.Insert)
		result.Completed = true
		return result
	case n2 == 0:
		result.Distance = a.sumCost(t1.Nodes, a.costModel.Delete)
		result.Completed = true
		return result
	}

	distance, ok := a.zhangShasha(t1, t2, deadline)
	if !ok {
		return result
	}
	result.Distance = distance
	result.Similarity = similarityFromCost(distance, n1, n2)
	result.Completed = true
	return result
}

func (a *APTEDAnalyzer) sumCost(nodes []*TreeNode, cost func(*TreeNode) float64) float64 {
	total := 0.0
	for _, n := range nodes {
		total += cost(n)
	}
	return total
}

// similarityFromCost normalizes an edit cost by the larger tree, clamped to [0,1]
func similarityFromCost(cost float64, n1, n2 int) float64 {
	maxSize := math.Max(float64(n1), float64(n2))
	if maxSize == 0 {
		return 1.0
	}
	s := 1.0 - cost/maxSize
	return math.Max(0, math.Min(1, s))
}

func (a *APTEDAnalyzer) zhangShasha(t1, t2 *PreparedTree, deadline time.Time) (float64, bool) {
	n1, n2 := t1.Size(), t2.Size()

	td := make([][]float64, n1+1)
	for i := range td {
		td[i] = make([]float64, n2+1)
	}
	fd := make([][]float64, n1+1)
	for i := range fd {
		fd[i] = make([]float64, n2+1)
	}

	checkDeadline := !deadline.IsZero()
	for _, i := range t1.KeyRoots {
		for _, j := range t2.KeyRoots {
			if checkDeadline && a.now().After(deadline) {
				return 0, false
			}
			a.forestDistance(t1, t2, i, j, td, fd)
		}
	}
	return td[n1][n2], true
}

// forestDistance fills td for every subtree pair rooted on the left paths of
// keyroots i and j. fd is scratch space indexed relative to the left-most leaves.
func (a *APTEDAnalyzer) forestDistance(t1, t2 *PreparedTree, i, j int, td, fd [][]float64) {
	li, lj := t1.leftMost(i), t2.leftMost(j)
	ioff, joff := li-1, lj-1
	rows, cols := i-ioff, j-joff

	fd[0][0] = 0
	for x := 1; x <= rows; x++ {
		fd[x][0] = fd[x-1][0] + a.costModel.Delete(t1.Nodes[x+ioff-1])
	}
	for y := 1; y <= cols; y++ {
		fd[0][y] = fd[0][y-1] + a.costModel.Insert(t2.Nodes[y+joff-1])
	}

	for x := 1; x <= rows; x++ {
		xi := x + ioff
		nodeX := t1.Nodes[xi-1]
		del := a.costModel.Delete(nodeX)
		for y := 1; y <= cols; y++ {
			yj := y + joff
			nodeY := t2.Nodes[yj-1]
			deleteCost := fd[x-1][y] + del
			insertCost := fd[x][y-1] + a.costModel.Insert(nodeY)

			if nodeX.LeftMostLeaf == li && nodeY.LeftMostLeaf == lj {
				renameCost := fd[x-1][y-1] + a.costModel.Rename(nodeX, nodeY)
				fd[x][y] = math.Min(deleteCost, math.Min(insertCost, renameCost))
				td[xi][yj] = fd[x][y]
				continue
			}

			p := nodeX.LeftMostLeaf - 1 - ioff
			q := nodeY.LeftMostLeaf - 1 - joff
			subtreeCost := fd[p][q] + td[xi][yj]
			fd[x][y] = math.Min(deleteCost, math.Min(insertCost, subtreeCost))
		}
	}
}
