package domain

import (
	"fmt"
	"math"
)

// EntityKind is the granularity of an analysed unit
type EntityKind string

const (
	EntityKindFunction EntityKind = "function"
	EntityKindClass    EntityKind = "class"
	EntityKindModule   EntityKind = "module"
	EntityKindFile     EntityKind = "file"
)

// LineRange is an inclusive, 1-based line span
type LineRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// StructureNode is one node of an entity's ordered structural tree
// (typically an AST shape with node types as labels).
type StructureNode struct {
	Label    string           `json:"label" yaml:"label"`
	Children []*StructureNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Size returns the number of nodes in the subtree rooted at n
func (n *StructureNode) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// Entity is a unit of analysis produced by the feature provider.
// Entities are immutable for the duration of a run.
type Entity struct {
	ID        string             `json:"id" yaml:"id"`
	FilePath  string             `json:"file_path" yaml:"file_path"`
	Lines     LineRange          `json:"lines" yaml:"lines"`
	Language  string             `json:"language,omitempty" yaml:"language,omitempty"`
	Kind      EntityKind         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Features  map[string]float64 `json:"features,omitempty" yaml:"features,omitempty"`
	Tokens    []string           `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Shingles  []string           `json:"shingles,omitempty" yaml:"shingles,omitempty"`
	Structure *StructureNode     `json:"structure,omitempty" yaml:"structure,omitempty"`
}

// HasSimilarityInput reports whether the entity can take part in clone detection
func (e *Entity) HasSimilarityInput() bool {
	return len(e.Shingles) > 0 || len(e.Tokens) > 0
}

// Validate checks the identity fields of an entity
func (e *Entity) Validate() error {
	if e.ID == "" {
		return NewValidationError("entity id cannot be empty")
	}
	if e.Lines.Start < 0 || e.Lines.End < 0 {
		return NewValidationError(fmt.Sprintf("entity %s has a negative line range", e.ID))
	}
	if e.Lines.End > 0 && e.Lines.End < e.Lines.Start {
		return NewValidationError(fmt.Sprintf("entity %s has line range end before start", e.ID))
	}
	return nil
}

// DependencyEdge is a directed "depends on" relation
type DependencyEdge struct {
	From   string  `json:"from" yaml:"from"`
	To     string  `json:"to" yaml:"to"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Validate checks that the edge can be placed in a dependency graph
func (e DependencyEdge) Validate() error {
	if e.From == "" || e.To == "" {
		return NewValidationError("dependency edge endpoints cannot be empty")
	}
	if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
		return NewValidationError(fmt.Sprintf("dependency edge %s -> %s has invalid weight %v", e.From, e.To, e.Weight))
	}
	return nil
}

// FeatureSet is everything the feature provider hands to the pipeline
type FeatureSet struct {
	Entities []Entity         `json:"entities" yaml:"entities"`
	Edges    []DependencyEdge `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Coverage maps entity IDs to a test coverage ratio in [0,1].
	Coverage map[string]float64 `json:"coverage,omitempty" yaml:"coverage,omitempty"`
}

// Merge appends other into fs. Coverage entries in other win.
func (fs *FeatureSet) Merge(other *FeatureSet) {
	if other == nil {
		return
	}
	fs.Entities = append(fs.Entities, other.Entities...)
	fs.Edges = append(fs.Edges, other.Edges...)
	if len(other.Coverage) > 0 && fs.Coverage == nil {
		fs.Coverage = make(map[string]float64, len(other.Coverage))
	}
	for id, ratio := range other.Coverage {
		fs.Coverage[id] = ratio
	}
}

// Anomaly is a per-entity problem that was isolated instead of failing the run
type Anomaly struct {
	EntityID string `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Stage    string `json:"stage" yaml:"stage"`
	Message  string `json:"message" yaml:"message"`
}

// Pipeline stage names used in anomalies, logs and metrics
const (
	StageInput     = "input"
	StageNormalize = "normalize"
	StageGraph     = "graph"
	StageClone     = "clone"
	StageAggregate = "aggregate"
	StageCache     = "cache"
)
