package analyzer

// CostModel defines the interface for calculating edit operation costs
type CostModel interface {
	// Insert returns the cost of inserting a node
	Insert(node *TreeNode) float64

	// Delete returns the cost of deleting a node
	Delete(node *TreeNode) float64

	// Rename returns the cost of renaming node1 to node2
	Rename(node1, node2 *TreeNode) float64
}

// DefaultCostModel implements a uniform cost model where all operations cost 1.0
type DefaultCostModel struct{}

// NewDefaultCostModel creates a new default cost model
func NewDefaultCostModel() *DefaultCostModel {
	return &DefaultCostModel{}
}

// Insert returns the cost of inserting a node (always 1.0)
func (c *DefaultCostModel) Insert(node *TreeNode) float64 {
	return 1.0
}

// Delete returns the cost of deleting a node (always 1.0)
func (c *DefaultCostModel) Delete(node *TreeNode) float64 {
	return 1.0
}

// Rename returns 0 for identical labels and 1 otherwise
func (c *DefaultCostModel) Rename(node1, node2 *TreeNode) float64 {
	if node1 == nil || node2 == nil {
		return 1.0
	}
	if node1.Label == node2.Label {
		return 0.0
	}
	return 1.0
}

// LeafInsensitiveCostModel treats any two leaves as equal, so renamed
// identifiers and changed literals cost nothing
type LeafInsensitiveCostModel struct {
	DefaultCostModel
}

// NewLeafInsensitiveCostModel creates a cost model that ignores leaf labels
func NewLeafInsensitiveCostModel() *LeafInsensitiveCostModel {
	return &LeafInsensitiveCostModel{}
}

// Rename returns 0 when both nodes are leaves, otherwise the unit cost
func (c *LeafInsensitiveCostModel) Rename(node1, node2 *TreeNode) float64 {
	if node1 != nil && node2 != nil && node1.IsLeaf() && node2.IsLeaf() {
		return 0.0
	}
	return c.DefaultCostModel.Rename(node1, node2)
}

// NewCostModel selects the cost model for clone verification
func NewCostModel(ignoreLeafLabels bool) CostModel {
	if ignoreLeafLabels {
		return NewLeafInsensitiveCostModel()
	}
	return NewDefaultCostModel()
}
