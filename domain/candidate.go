package domain

import (
	"fmt"
	"strings"
	"time"
)

// PriorityTier is the urgency bucket of a refactoring candidate
type PriorityTier string

const (
	PriorityCritical PriorityTier = "critical"
	PriorityHigh     PriorityTier = "high"
	PriorityMedium   PriorityTier = "medium"
	PriorityLow      PriorityTier = "low"
)

// Rank orders tiers; a larger rank is more urgent
func (p PriorityTier) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether p is as urgent as other
func (p PriorityTier) AtLeast(other PriorityTier) bool {
	return p.Rank() >= other.Rank()
}

// ParsePriorityTier converts a case-insensitive name to a tier
func ParsePriorityTier(s string) (PriorityTier, error) {
	tier := PriorityTier(strings.ToLower(strings.TrimSpace(s)))
	if tier.Rank() == 0 {
		return "", NewValidationError(fmt.Sprintf("unknown priority tier: %s", s))
	}
	return tier, nil
}

// KindContribution is the per-kind breakdown of a composite score
type KindContribution struct {
	Kind             DetectorKind `json:"kind" yaml:"kind"`
	Present          bool         `json:"present" yaml:"present"`
	Score            float64      `json:"score" yaml:"score"`
	Confidence       float64      `json:"confidence" yaml:"confidence"`
	ConfiguredWeight float64      `json:"configured_weight" yaml:"configured_weight"`
	EffectiveWeight  float64      `json:"effective_weight" yaml:"effective_weight"`
	Contribution     float64      `json:"contribution" yaml:"contribution"`
}

// RefactoringCandidate is the final output unit of the pipeline
type RefactoringCandidate struct {
	Rank          int                `json:"rank" yaml:"rank"`
	EntityID      string             `json:"entity_id" yaml:"entity_id"`
	FilePath      string             `json:"file_path" yaml:"file_path"`
	Lines         LineRange          `json:"lines" yaml:"lines"`
	Kind          EntityKind         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Language      string             `json:"language,omitempty" yaml:"language,omitempty"`
	Score         float64            `json:"score" yaml:"score"`
	Tier          PriorityTier       `json:"tier" yaml:"tier"`
	Confidence    float64            `json:"confidence" yaml:"confidence"`
	RawComplexity float64            `json:"raw_complexity" yaml:"raw_complexity"`
	Promoted      bool               `json:"promoted" yaml:"promoted"`
	Reasons       []string           `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Contributions []KindContribution `json:"contributions" yaml:"contributions"`
	Scores        []NormalizedScore  `json:"scores" yaml:"scores"`
	Centrality    *CentralityResult  `json:"centrality,omitempty" yaml:"centrality,omitempty"`
	ClonePairs    []ClonePair        `json:"clone_pairs,omitempty" yaml:"clone_pairs,omitempty"`
}

// AnalysisSummary provides headline numbers for a run
type AnalysisSummary struct {
	Entities          int                  `json:"entities" yaml:"entities"`
	Candidates        int                  `json:"candidates" yaml:"candidates"`
	Excluded          int                  `json:"excluded" yaml:"excluded"`
	TierCounts        map[PriorityTier]int `json:"tier_counts" yaml:"tier_counts"`
	Detectors         int                  `json:"detectors" yaml:"detectors"`
	BayesianDetectors int                  `json:"bayesian_detectors" yaml:"bayesian_detectors"`
	ClonePairs        int                  `json:"clone_pairs" yaml:"clone_pairs"`
	CloneGroups       int                  `json:"clone_groups" yaml:"clone_groups"`
	Anomalies         int                  `json:"anomalies" yaml:"anomalies"`
	CacheHits         []string             `json:"cache_hits,omitempty" yaml:"cache_hits,omitempty"`
}

// AnalysisResult is what the pipeline exposes across the system boundary
type AnalysisResult struct {
	RunID             string                 `json:"run_id" yaml:"run_id"`
	Version           string                 `json:"version" yaml:"version"`
	GeneratedAt       time.Time              `json:"generated_at" yaml:"generated_at"`
	DurationMs        int64                  `json:"duration_ms" yaml:"duration_ms"`
	ConfigFingerprint string                 `json:"config_fingerprint" yaml:"config_fingerprint"`
	Summary           AnalysisSummary        `json:"summary" yaml:"summary"`
	Candidates        []RefactoringCandidate `json:"candidates" yaml:"candidates"`
	CloneGroups       []CloneGroup           `json:"clone_groups,omitempty" yaml:"clone_groups,omitempty"`
	CloneStatistics   CloneStatistics        `json:"clone_statistics" yaml:"clone_statistics"`
	Graph             GraphSummary           `json:"graph" yaml:"graph"`
	Normalization     []DistributionStats    `json:"normalization,omitempty" yaml:"normalization,omitempty"`
	Anomalies         []Anomaly              `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}
