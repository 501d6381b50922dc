package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// FeatureSourceFactory creates the feature provider for a request's inputs
type FeatureSourceFactory func(paths []string) domain.FeatureProvider

// CoverageSourceFactory creates the coverage provider for a coverage file
type CoverageSourceFactory func(path string) domain.CoverageProvider

// AnalyzeUseCase loads features, runs the scoring pipeline and writes the
// ranked candidates
type AnalyzeUseCase struct {
	pipeline  domain.PipelineService
	features  FeatureSourceFactory
	coverage  CoverageSourceFactory
	formatter domain.CandidateFormatter
	output    domain.ReportWriter
	logger    *zap.Logger
}

// Execute runs the analysis and writes the report
func (uc *AnalyzeUseCase) Execute(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if uc.formatter == nil || uc.output == nil {
		return nil, domain.NewOutputError("analyze use case has no formatter or output writer", nil)
	}

	result, err := uc.Rank(ctx, req)
	if err != nil {
		return nil, err
	}

	err = uc.output.Write(req.OutputWriter, req.OutputPath, req.OutputFormat, func(w io.Writer) error {
		return uc.formatter.Format(result, req.OutputFormat, w)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Rank runs the analysis and applies the request filters without writing
// anything. The returned summary still describes the whole run.
func (uc *AnalyzeUseCase) Rank(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	if len(req.FeaturePaths) == 0 {
		return nil, domain.NewInvalidInputError("at least one feature file or pattern must be specified", nil)
	}

	features, err := uc.features(req.FeaturePaths).Load(ctx)
	if err != nil {
		return nil, err
	}

	if req.CoveragePath != "" {
		if uc.coverage == nil {
			return nil, domain.NewInvalidInputError("coverage input is not supported by this configuration", nil)
		}
		ratios, err := uc.coverage(req.CoveragePath).Load(ctx)
		if err != nil {
			return nil, err
		}
		features.Merge(&domain.FeatureSet{Coverage: ratios})
		uc.logger.Debug("coverage loaded", zap.String("path", req.CoveragePath), zap.Int("entries", len(ratios)))
	}

	uc.logger.Debug("features loaded",
		zap.Int("entities", len(features.Entities)),
		zap.Int("edges", len(features.Edges)))

	result, err := uc.pipeline.Analyze(ctx, features)
	if err != nil {
		return nil, err
	}

	filtered := *result
	filtered.Candidates = domain.FilterCandidates(result.Candidates, req.MinTier, req.Limit)
	if len(filtered.Candidates) != len(result.Candidates) {
		uc.logger.Debug("candidates filtered",
			zap.Int("ranked", len(result.Candidates)),
			zap.Int("kept", len(filtered.Candidates)),
			zap.String("min_tier", string(req.MinTier)),
			zap.Int("limit", req.Limit))
	}
	return &filtered, nil
}

// AnalyzeUseCaseBuilder provides a builder pattern for creating AnalyzeUseCase
type AnalyzeUseCaseBuilder struct {
	pipeline  domain.PipelineService
	features  FeatureSourceFactory
	coverage  CoverageSourceFactory
	formatter domain.CandidateFormatter
	output    domain.ReportWriter
	logger    *zap.Logger
}

// NewAnalyzeUseCaseBuilder creates a new builder
func NewAnalyzeUseCaseBuilder() *AnalyzeUseCaseBuilder {
	return &AnalyzeUseCaseBuilder{}
}

// WithPipeline sets the scoring pipeline
func (b *AnalyzeUseCaseBuilder) WithPipeline(pipeline domain.PipelineService) *AnalyzeUseCaseBuilder {
	b.pipeline = pipeline
	return b
}

// WithFeatureSource sets the feature provider factory
func (b *AnalyzeUseCaseBuilder) WithFeatureSource(factory FeatureSourceFactory) *AnalyzeUseCaseBuilder {
	b.features = factory
	return b
}

// WithCoverageSource sets the coverage provider factory
func (b *AnalyzeUseCaseBuilder) WithCoverageSource(factory CoverageSourceFactory) *AnalyzeUseCaseBuilder {
	b.coverage = factory
	return b
}

// WithFormatter sets the output formatter
func (b *AnalyzeUseCaseBuilder) WithFormatter(formatter domain.CandidateFormatter) *AnalyzeUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithOutputWriter sets the report writer
func (b *AnalyzeUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *AnalyzeUseCaseBuilder {
	b.output = output
	return b
}

// WithLogger sets the logger
func (b *AnalyzeUseCaseBuilder) WithLogger(logger *zap.Logger) *AnalyzeUseCaseBuilder {
	b.logger = logger
	return b
}

// Build creates the AnalyzeUseCase. The pipeline and feature source are required.
func (b *AnalyzeUseCaseBuilder) Build() (*AnalyzeUseCase, error) {
	if b.pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if b.features == nil {
		return nil, fmt.Errorf("feature source is required")
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzeUseCase{
		pipeline:  b.pipeline,
		features:  b.features,
		coverage:  b.coverage,
		formatter: b.formatter,
		output:    b.output,
		logger:    logger,
	}, nil
}
