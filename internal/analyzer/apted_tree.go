package analyzer

import (
	"fmt"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// TreeNode represents a node in the ordered tree used for tree edit distance
type TreeNode struct {
	// Unique identifier for this node
	ID int

	// Label for the node (typically the node type or value)
	Label string

	// Tree structure
	Children []*TreeNode
	Parent   *TreeNode

	// Zhang-Shasha indices, 1-based in post-order
	PostOrderID  int  // Post-order traversal position
	LeftMostLeaf int  // Post-order ID of the left-most leaf descendant
	KeyRoot      bool // Whether this node is a key root
}

// NewTreeNode creates a new tree node with the given ID and label
func NewTreeNode(id int, label string) *TreeNode {
	return &TreeNode{
		ID:       id,
		Label:    label,
		Children: []*TreeNode{},
	}
}

// AddChild adds a child node to this node
func (t *TreeNode) AddChild(child *TreeNode) {
	if child != nil {
		child.Parent = t
		t.Children = append(t.Children, child)
	}
}

// IsLeaf returns true if this node has no children
func (t *TreeNode) IsLeaf() bool {
	return len(t.Children) == 0
}

// Size returns the size of the subtree rooted at this node
func (t *TreeNode) Size() int {
	if t == nil {
		return 0
	}
	size := 1
	for _, child := range t.Children {
		size += child.Size()
	}
	return size
}

// Height returns the height of the subtree rooted at this node
func (t *TreeNode) Height() int {
	if t == nil || t.IsLeaf() {
		return 0
	}
	maxHeight := 0
	for _, child := range t.Children {
		if h := child.Height(); h > maxHeight {
			maxHeight = h
		}
	}
	return maxHeight + 1
}

// String returns a string representation of the node
func (t *TreeNode) String() string {
	return fmt.Sprintf("Node{ID: %d, Label: %s, Children: %d}", t.ID, t.Label, len(t.Children))
}

// TreeFromStructure converts an entity's structure tree into an edit-distance tree
func TreeFromStructure(root *domain.StructureNode) *TreeNode {
	if root == nil {
		return nil
	}
	nextID := 0
	var convert func(n *domain.StructureNode) *TreeNode
	convert = func(n *domain.StructureNode) *TreeNode {
		node := NewTreeNode(nextID, n.Label)
		nextID++
		for _, child := range n.Children {
			if child != nil {
				node.AddChild(convert(child))
			}
		}
		return node
	}
	return convert(root)
}

// FlatTree builds a two-level tree whose leaves are the tokens in order.
// It stands in for entities that carry no structure.
func FlatTree(tokens []string) *TreeNode {
	if len(tokens) == 0 {
		return nil
	}
	root := NewTreeNode(0, "<entity>")
	for i, token := range tokens {
		root.AddChild(NewTreeNode(i+1, token))
	}
	return root
}

// EntityTree returns the verification tree of an entity
func EntityTree(e *domain.Entity) *TreeNode {
	if e.Structure != nil {
		return TreeFromStructure(e.Structure)
	}
	return FlatTree(e.Tokens)
}

// PreparedTree is a tree with Zhang-Shasha indices computed.
// Nodes[k-1] is the node with PostOrderID k.
type PreparedTree struct {
	Root     *TreeNode
	Nodes    []*TreeNode
	KeyRoots []int // ascending post-order IDs
}

// Size returns the number of nodes in the prepared tree
func (p *PreparedTree) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Nodes)
}

// leftMost returns the left-most leaf of the node with post-order ID k
func (p *PreparedTree) leftMost(k int) int {
	return p.Nodes[k-1].LeftMostLeaf
}

// PrepareTree assigns post-order IDs and left-most leaves and collects key roots
func PrepareTree(root *TreeNode) *PreparedTree {
	prepared := &PreparedTree{Root: root}
	if root == nil {
		return prepared
	}

	var visit func(n *TreeNode) int
	visit = func(n *TreeNode) int {
		leftMost := 0
		for i, child := range n.Children {
			l := visit(child)
			if i == 0 {
				leftMost = l
			}
		}
		prepared.Nodes = append(prepared.Nodes, n)
		n.PostOrderID = len(prepared.Nodes)
		if n.IsLeaf() {
			leftMost = n.PostOrderID
		}
		n.LeftMostLeaf = leftMost
		n.KeyRoot = false
		return leftMost
	}
	visit(root)

	// A key root is the highest node for its left-most leaf
	highest := make(map[int]int, len(prepared.Nodes))
	for _, n := range prepared.Nodes {
		highest[n.LeftMostLeaf] = n.PostOrderID
	}
	for _, n := range prepared.Nodes {
		if highest[n.LeftMostLeaf] == n.PostOrderID {
			n.KeyRoot = true
			prepared.KeyRoots = append(prepared.KeyRoots, n.PostOrderID)
		}
	}
	return prepared
}
