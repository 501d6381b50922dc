package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

func node(label string, children ...*TreeNode) *TreeNode {
	n := NewTreeNode(0, label)
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

func TestPrepareTree_PostOrderAndKeyRoots(t *testing.T) {
	root := node("a", node("b"), node("c"))
	prepared := PrepareTree(root)

	require.Equal(t, 3, prepared.Size())
	assert.Equal(t, "b", prepared.Nodes[0].Label)
	assert.Equal(t, "c", prepared.Nodes[1].Label)
	assert.Equal(t, "a", prepared.Nodes[2].Label)
	assert.Equal(t, 1, prepared.leftMost(3))
	assert.Equal(t, 2, prepared.leftMost(2))
	assert.Equal(t, []int{2, 3}, prepared.KeyRoots)
}

func TestPrepareTree_Nil(t *testing.T) {
	prepared := PrepareTree(nil)
	assert.Equal(t, 0, prepared.Size())
	assert.Equal(t, 0, (*PreparedTree)(nil).Size())
}

func TestTreeFromStructure(t *testing.T) {
	structure := &domain.StructureNode{
		Label: "FunctionDef",
		Children: []*domain.StructureNode{
			{Label: "arguments"},
			{Label: "Return", Children: []*domain.StructureNode{{Label: "Name"}}},
		},
	}

	tree := TreeFromStructure(structure)
	require.NotNil(t, tree)
	assert.Equal(t, structure.Size(), tree.Size())
	assert.Equal(t, 2, tree.Height())
	assert.Nil(t, TreeFromStructure(nil))
}

func TestEntityTree_FallsBackToTokens(t *testing.T) {
	e := &domain.Entity{ID: "e", Tokens: []string{"x", "=", "1"}}
	tree := EntityTree(e)
	require.NotNil(t, tree)
	assert.Equal(t, 4, tree.Size())

	assert.Nil(t, EntityTree(&domain.Entity{ID: "bare"}))
}

func TestComputeDistance_KnownCases(t *testing.T) {
	analyzer := NewAPTEDAnalyzer(nil)

	tests := []struct {
		name     string
		t1, t2   *TreeNode
		distance float64
	}{
		{"identical", node("a", node("b"), node("c")), node("a", node("b"), node("c")), 0},
		{"single rename", node("a"), node("b"), 1},
		{"leaf rename", node("a", node("b"), node("c")), node("a", node("b"), node("d")), 1},
		{"leaf delete", node("a", node("b"), node("c")), node("a", node("b")), 1},
		{"leaf insert", node("a"), node("a", node("b"), node("c")), 2},
		{
			"classic example",
			node("f", node("d", node("a"), node("c", node("b"))), node("e")),
			node("f", node("c", node("d", node("a"), node("b"))), node("e")),
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.distance, analyzer.ComputeDistance(tt.t1, tt.t2))
			assert.Equal(t, tt.distance, analyzer.ComputeDistance(tt.t2, tt.t1), "distance must be symmetric under unit costs")
		})
	}
}

func TestComputeSimilarity(t *testing.T) {
	analyzer := NewAPTEDAnalyzer(nil)

	assert.Equal(t, 1.0, analyzer.ComputeSimilarity(node("a", node("b")), node("a", node("b"))))
	assert.InDelta(t, 2.0/3.0, analyzer.ComputeSimilarity(node("a", node("b"), node("c")), node("a", node("b"), node("d"))), 1e-9)
	assert.Equal(t, 0.0, analyzer.ComputeSimilarity(node("a"), node("b")))
}

func TestCompare_EmptyTrees(t *testing.T) {
	analyzer := NewAPTEDAnalyzer(nil)

	both := analyzer.Compare(PrepareTree(nil), PrepareTree(nil), time.Time{})
	assert.True(t, both.Completed)
	assert.Equal(t, 1.0, both.Similarity)

	one := analyzer.Compare(PrepareTree(nil), PrepareTree(node("a", node("b"), node("c"))), time.Time{})
	assert.True(t, one.Completed)
	assert.Equal(t, 3.0, one.Distance)
	assert.Equal(t, 0.0, one.Similarity)
}

func TestCompare_ExpiredDeadline(t *testing.T) {
	analyzer := NewAPTEDAnalyzer(nil)
	t1 := PrepareTree(node("a", node("b"), node("c")))
	t2 := PrepareTree(node("a", node("b"), node("d")))

	result := analyzer.Compare(t1, t2, time.Now().Add(-time.Second))
	assert.False(t, result.Completed)
	assert.Equal(t, 3, result.Tree1Size)

	result = analyzer.Compare(t1, t2, time.Now().Add(time.Minute))
	assert.True(t, result.Completed)
	assert.Equal(t, 1.0, result.Distance)
}

func TestLeafInsensitiveCostModel(t *testing.T) {
	strict := NewAPTEDAnalyzer(NewCostModel(false))
	lenient := NewAPTEDAnalyzer(NewCostModel(true))

	t1 := node("Call", node("foo"), node("x"))
	t2 := node("Call", node("bar"), node("y"))

	assert.Equal(t, 2.0, strict.ComputeDistance(t1, t2))
	assert.Equal(t, 0.0, lenient.ComputeDistance(t1, t2))

	// inner labels still count
	assert.Equal(t, 1.0, lenient.ComputeDistance(node("Call", node("x")), node("Attr", node("y"))))
}
