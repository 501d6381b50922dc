package domain

import (
	"fmt"
)

// CloneType represents different types of code clones
type CloneType int

const (
	// UnverifiedClone - verification was skipped, only the hashed estimate is known
	UnverifiedClone CloneType = iota
	// Type1Clone - structurally identical
	Type1Clone
	// Type2Clone - same shape with renamed leaves
	Type2Clone
	// Type3Clone - similar with small modifications
	Type3Clone
)

// String returns string representation of CloneType
func (ct CloneType) String() string {
	switch ct {
	case Type1Clone:
		return "Type-1"
	case Type2Clone:
		return "Type-2"
	case Type3Clone:
		return "Type-3"
	default:
		return "Unverified"
	}
}

// MarshalText encodes the clone type by name
func (ct CloneType) MarshalText() ([]byte, error) {
	return []byte(ct.String()), nil
}

// UnmarshalText decodes a clone type name
func (ct *CloneType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Type-1":
		*ct = Type1Clone
	case "Type-2":
		*ct = Type2Clone
	case "Type-3":
		*ct = Type3Clone
	case "Unverified", "":
		*ct = UnverifiedClone
	default:
		return fmt.Errorf("unknown clone type %q", string(text))
	}
	return nil
}

// Truncation reasons
const (
	TruncatedNodeCap     = "node_cap"
	TruncatedTimeout     = "timeout"
	TruncatedNoStructure = "no_structure"
)

// ClonePair is a pair of near-duplicate entities. EntityA always sorts
// before EntityB. Similarity is the exact structural similarity when
// Verified, otherwise it equals EstimatedSimilarity and EditCost and the
// node counts are unset.
type ClonePair struct {
	EntityA             string    `json:"entity_a" yaml:"entity_a"`
	EntityB             string    `json:"entity_b" yaml:"entity_b"`
	EstimatedSimilarity float64   `json:"estimated_similarity" yaml:"estimated_similarity"`
	Similarity          float64   `json:"similarity" yaml:"similarity"`
	EditCost            *float64  `json:"edit_cost,omitempty" yaml:"edit_cost,omitempty"`
	NodesA              int       `json:"nodes_a,omitempty" yaml:"nodes_a,omitempty"`
	NodesB              int       `json:"nodes_b,omitempty" yaml:"nodes_b,omitempty"`
	Verified            bool      `json:"verified" yaml:"verified"`
	Truncated           bool      `json:"truncated" yaml:"truncated"`
	TruncationReason    string    `json:"truncation_reason,omitempty" yaml:"truncation_reason,omitempty"`
	Type                CloneType `json:"type" yaml:"type"`
}

// Key returns a stable identifier for the pair
func (cp *ClonePair) Key() string {
	return cp.EntityA + "\x00" + cp.EntityB
}

// Other returns the partner of id in the pair
func (cp *ClonePair) Other(id string) string {
	if cp.EntityA == id {
		return cp.EntityB
	}
	return cp.EntityA
}

// Involves reports whether id is one side of the pair
func (cp *ClonePair) Involves(id string) bool {
	return cp.EntityA == id || cp.EntityB == id
}

// String returns string representation of ClonePair
func (cp *ClonePair) String() string {
	state := "verified"
	if cp.Truncated {
		state = "truncated"
	}
	return fmt.Sprintf("ClonePair{%s <-> %s, Similarity: %.3f, %s}", cp.EntityA, cp.EntityB, cp.Similarity, state)
}

// CloneGroup is a connected set of entities linked by exposed clone pairs
type CloneGroup struct {
	ID                int      `json:"id" yaml:"id"`
	Members           []string `json:"members" yaml:"members"`
	AverageSimilarity float64  `json:"average_similarity" yaml:"average_similarity"`
	Pairs             int      `json:"pairs" yaml:"pairs"`
}

// CloneStatistics summarizes a clone detection pass
type CloneStatistics struct {
	Entities        int `json:"entities" yaml:"entities"`
	Signed          int `json:"signed" yaml:"signed"`
	Candidates      int `json:"candidates" yaml:"candidates"`
	Filtered        int `json:"filtered" yaml:"filtered"`
	Verified        int `json:"verified" yaml:"verified"`
	Truncated       int `json:"truncated" yaml:"truncated"`
	Accepted        int `json:"accepted" yaml:"accepted"`
	FeedbackChecked int `json:"feedback_checked" yaml:"feedback_checked"`
	FeedbackAdded   int `json:"feedback_added" yaml:"feedback_added"`
}
