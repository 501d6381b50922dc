package domain

import (
	"context"
	"fmt"
	"io"
)

// FeatureProvider yields the entities and dependency edges of a codebase
type FeatureProvider interface {
	Load(ctx context.Context) (*FeatureSet, error)
}

// CoverageProvider yields per-entity coverage ratios in [0,1]
type CoverageProvider interface {
	Load(ctx context.Context) (map[string]float64, error)
}

// PipelineService runs the scoring pipeline over one feature set
type PipelineService interface {
	Analyze(ctx context.Context, features *FeatureSet) (*AnalysisResult, error)
}

// CandidateFormatter renders an analysis result
type CandidateFormatter interface {
	Format(result *AnalysisResult, format OutputFormat, writer io.Writer) error
}

// CacheStore is a durable key/value store for run-scoped intermediate results.
// Get returns an error (typically sql.ErrNoRows) on a miss.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	Close() error
}

// AnalyzeRequest represents a request to rank refactoring candidates
type AnalyzeRequest struct {
	// Input
	FeaturePaths []string
	CoveragePath string
	ConfigPath   string

	// Output
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string

	// Filtering applied after ranking
	Limit   int
	MinTier PriorityTier

	// Pipeline switches
	NoCache bool
}

// Validate validates the analyze request
func (r *AnalyzeRequest) Validate() error {
	if len(r.FeaturePaths) == 0 {
		return NewInvalidInputError("at least one feature file or pattern must be specified", nil)
	}
	if r.OutputFormat == "" {
		r.OutputFormat = OutputFormatText
	}
	if !r.OutputFormat.IsValid() {
		return NewUnsupportedFormatError(string(r.OutputFormat))
	}
	if r.OutputFormat.RequiresFile() && r.OutputPath == "" {
		return NewInvalidInputError(fmt.Sprintf("%s output requires an output path", r.OutputFormat), nil)
	}
	if r.OutputPath == "" && r.OutputWriter == nil {
		return NewInvalidInputError("no output writer or output path specified", nil)
	}
	if r.Limit < 0 {
		return NewInvalidInputError(fmt.Sprintf("limit must be >= 0, got %d", r.Limit), nil)
	}
	if r.MinTier != "" && r.MinTier.Rank() == 0 {
		return NewInvalidInputError(fmt.Sprintf("unknown minimum tier: %s", r.MinTier), nil)
	}
	return nil
}

// FilterCandidates applies a minimum tier and a limit to a ranked list.
// Ranks are preserved.
func FilterCandidates(candidates []RefactoringCandidate, minTier PriorityTier, limit int) []RefactoringCandidate {
	out := make([]RefactoringCandidate, 0, len(candidates))
	for _, c := range candidates {
		if minTier != "" && !c.Tier.AtLeast(minTier) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
