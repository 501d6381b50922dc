package domain

import (
	"fmt"
	"math"
)

// DetectorKind groups detectors for weighting purposes
type DetectorKind string

const (
	DetectorKindComplexity DetectorKind = "complexity"
	DetectorKindGraph      DetectorKind = "graph"
	DetectorKindStructure  DetectorKind = "structure"
	DetectorKindStyle      DetectorKind = "style"
	DetectorKindCoverage   DetectorKind = "coverage"
	DetectorKindClone      DetectorKind = "clone"
)

// AllDetectorKinds lists every kind in weighting order
func AllDetectorKinds() []DetectorKind {
	return []DetectorKind{
		DetectorKindComplexity,
		DetectorKindGraph,
		DetectorKindStructure,
		DetectorKindStyle,
		DetectorKindCoverage,
		DetectorKindClone,
	}
}

// ParseDetectorKind converts a string to a DetectorKind
func ParseDetectorKind(s string) (DetectorKind, error) {
	for _, kind := range AllDetectorKinds() {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown detector kind: %s", s))
}

// Detector names produced inside the pipeline rather than by the feature provider
const (
	DetectorCoverage         = "coverage"
	DetectorGraphBetweenness = "graph.betweenness"
	DetectorGraphCloseness   = "graph.closeness"
	DetectorGraphCycle       = "graph.cycle"
	DetectorCloneSimilarity  = "clone.similarity"
)

// DetectorScore is one raw output of one detector for one entity.
// Raw values of different detectors are never compared directly.
type DetectorScore struct {
	EntityID string       `json:"entity_id" yaml:"entity_id"`
	Detector string       `json:"detector" yaml:"detector"`
	Kind     DetectorKind `json:"kind" yaml:"kind"`
	Raw      float64      `json:"raw" yaml:"raw"`
}

// IsMissing reports whether the raw value cannot be used as a signal
func (s DetectorScore) IsMissing() bool {
	return math.IsNaN(s.Raw) || math.IsInf(s.Raw, 0)
}

// NormalizationMode selects how a detector's distribution is normalized
type NormalizationMode string

const (
	NormalizationModeZScore   NormalizationMode = "zscore"
	NormalizationModeBayesian NormalizationMode = "bayesian"
)

// PriorSource records where a Bayesian prior came from
type PriorSource string

const (
	PriorSourceNone       PriorSource = ""
	PriorSourceConfigured PriorSource = "configured"
	PriorSourcePooled     PriorSource = "pooled"
	PriorSourceEmpirical  PriorSource = "empirical"
)

// NormalizedScore is a detector score on a dimensionless, comparable scale.
// Present is the explicit signal-presence flag: a missing signal is never
// represented as an implicit zero.
type NormalizedScore struct {
	EntityID   string            `json:"entity_id" yaml:"entity_id"`
	Detector   string            `json:"detector" yaml:"detector"`
	Kind       DetectorKind      `json:"kind" yaml:"kind"`
	Present    bool              `json:"present" yaml:"present"`
	Raw        float64           `json:"raw" yaml:"raw"`
	Estimate   float64           `json:"estimate" yaml:"estimate"`
	Value      float64           `json:"value" yaml:"value"`
	Confidence float64           `json:"confidence" yaml:"confidence"`
	Weight     float64           `json:"weight" yaml:"weight"`
	Mode       NormalizationMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// DistributionStats are the fitted statistics of one detector's values.
// They are sufficient to normalize the detector's raw scores again without
// refitting, which is what the run cache relies on.
type DistributionStats struct {
	Detector      string            `json:"detector" yaml:"detector"`
	Kind          DetectorKind      `json:"kind" yaml:"kind"`
	Mode          NormalizationMode `json:"mode" yaml:"mode"`
	SampleSize    int               `json:"sample_size" yaml:"sample_size"`
	Mean          float64           `json:"mean" yaml:"mean"`
	StdDev        float64           `json:"stddev" yaml:"stddev"`
	Q1            float64           `json:"q1" yaml:"q1"`
	Q3            float64           `json:"q3" yaml:"q3"`
	OutlierFence  float64           `json:"outlier_fence" yaml:"outlier_fence"`
	Outliers      int               `json:"outliers" yaml:"outliers"`
	PriorMean     float64           `json:"prior_mean" yaml:"prior_mean"`
	PriorStdDev   float64           `json:"prior_stddev" yaml:"prior_stddev"`
	PriorSource   PriorSource       `json:"prior_source,omitempty" yaml:"prior_source,omitempty"`
	Shrinkage     float64           `json:"shrinkage" yaml:"shrinkage"`
	Scale         float64           `json:"scale" yaml:"scale"`
	Degenerate    bool              `json:"degenerate" yaml:"degenerate"`
	SizeFactor    float64           `json:"size_factor" yaml:"size_factor"`
	Inverted      bool              `json:"inverted" yaml:"inverted"`
	MissingValues int               `json:"missing_values" yaml:"missing_values"`
}
