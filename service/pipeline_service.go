package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/analyzer"
	"github.com/sibyllinesoft/valknut-sub001/internal/cache"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
	"github.com/sibyllinesoft/valknut-sub001/internal/observability"
)

// pipelineSteps is the number of progress steps: three analysis stages and aggregation
const pipelineSteps = 4

// PipelineService runs normalization, graph analysis and clone detection
// over one feature set and aggregates them into ranked candidates.
type PipelineService struct {
	config   *config.Config
	logger   *zap.Logger
	cache    *cache.RunCache
	executor domain.ParallelExecutor
	progress domain.ProgressManager
	now      func() time.Time
}

// PipelineOption customizes a PipelineService
type PipelineOption func(*PipelineService)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(s *PipelineService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunCache enables the run cache
func WithRunCache(runCache *cache.RunCache) PipelineOption {
	return func(s *PipelineService) { s.cache = runCache }
}

// WithProgress reports stage progress
func WithProgress(progress domain.ProgressManager) PipelineOption {
	return func(s *PipelineService) { s.progress = progress }
}

// WithExecutor replaces the stage executor
func WithExecutor(executor domain.ParallelExecutor) PipelineOption {
	return func(s *PipelineService) {
		if executor != nil {
			s.executor = executor
		}
	}
}

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) PipelineOption {
	return func(s *PipelineService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPipelineService validates cfg and creates the service. Configuration
// errors are returned before any stage can run.
func NewPipelineService(cfg *config.Config, opts ...PipelineOption) (*PipelineService, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &PipelineService{
		config:   cfg,
		logger:   zap.NewNop(),
		executor: NewParallelExecutor(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// The run deadline is applied once in Analyze
	s.executor.SetTimeout(0)
	s.executor.SetMaxConcurrency(3)
	return s, nil
}

// Analyze implements domain.PipelineService
func (s *PipelineService) Analyze(ctx context.Context, features *domain.FeatureSet) (*domain.AnalysisResult, error) {
	if features == nil {
		return nil, domain.NewInvalidInputError("feature set cannot be nil", nil)
	}

	if s.config.Performance.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Performance.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "valknut.analyze",
		attribute.String("run_id", runID),
		attribute.Int("entities", len(features.Entities)),
		attribute.Int("edges", len(features.Edges)))
	defer span.End()

	run := s.newRun(runID, features)
	result, err := run.execute(ctx)
	if err != nil {
		observability.RunsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.logger.Warn("analysis failed", zap.Error(err))
		if s.progress != nil {
			s.progress.Complete(false)
		}
		return nil, err
	}

	observability.RunsTotal.WithLabelValues("success").Inc()
	if s.progress != nil {
		s.progress.Complete(true)
	}
	run.logger.Info("analysis complete",
		zap.Int("entities", result.Summary.Entities),
		zap.Int("candidates", result.Summary.Candidates),
		zap.Int("clone_pairs", result.Summary.ClonePairs),
		zap.Int("anomalies", result.Summary.Anomalies),
		zap.Strings("cache_hits", result.Summary.CacheHits),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// pipelineRun holds the state of one Analyze call. Each stage task writes
// only its own fields; they are read after the executor returns.
type pipelineRun struct {
	svc     *PipelineService
	logger  *zap.Logger
	runID   string
	started time.Time

	entities  []domain.Entity
	edges     []domain.DependencyEdge
	coverage  map[string]float64
	anomalies []domain.Anomaly

	// normalize stage
	features *analyzer.NormalizationOutput
	normHit  bool

	// graph stage
	graph      *domain.GraphResult
	graphAnoms []domain.Anomaly
	graphHit   bool

	// clone stage
	detector *analyzer.CloneDetector
	clones   *analyzer.CloneDetectionResult

	done int32
}

func (s *PipelineService) newRun(runID string, features *domain.FeatureSet) *pipelineRun {
	run := &pipelineRun{
		svc:     s,
		logger:  s.logger.With(zap.String("run_id", runID)),
		runID:   runID,
		started: s.now(),
		edges:   features.Edges,
	}
	var inputAnoms, coverageAnoms []domain.Anomaly
	run.entities, inputAnoms = sanitizeEntities(features.Entities)
	run.coverage, coverageAnoms = sanitizeCoverage(features.Coverage, run.entities)
	run.anomalies = append(inputAnoms, coverageAnoms...)
	return run
}

func (r *pipelineRun) execute(ctx context.Context) (*domain.AnalysisResult, error) {
	cfg := r.svc.config
	if err := ctx.Err(); err != nil {
		return nil, domain.NewCancelledError("analysis", err)
	}

	if p := r.svc.progress; p != nil {
		p.Initialize(pipelineSteps)
		p.Describe("Analyzing")
		p.Start()
	}
	r.logger.Debug("starting analysis",
		zap.Int("entities", len(r.entities)),
		zap.Int("edges", len(r.edges)),
		zap.Int("input_anomalies", len(r.anomalies)))

	tasks := []domain.ExecutableTask{
		NewStageTask(domain.StageNormalize, true, r.stage(domain.StageNormalize, r.normalize)),
		NewStageTask(domain.StageGraph, cfg.Graph.Enabled, r.stage(domain.StageGraph, r.analyzeGraph)),
		NewStageTask(domain.StageClone, cfg.Clone.Enabled, r.stage(domain.StageClone, r.detectClones)),
	}
	if err := r.svc.executor.Execute(ctx, tasks); err != nil {
		return nil, stageError(ctx, "analysis", err)
	}
	if r.graph == nil {
		r.graph = &domain.GraphResult{Centrality: map[string]domain.CentralityResult{}}
	}

	aggStart := time.Now()
	aggCtx, span := observability.StartSpan(ctx, "valknut."+domain.StageAggregate)
	agg := r.aggregate()
	if err := r.feedback(aggCtx, agg); err != nil {
		span.End()
		return nil, err
	}
	span.End()
	observability.StageDuration.WithLabelValues(domain.StageAggregate).Observe(time.Since(aggStart).Seconds())
	r.advance(domain.StageAggregate)

	return r.result(agg), nil
}

// stage wraps a stage function with a span, timing and progress
func (r *pipelineRun) stage(name string, fn func(context.Context) error) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		start := time.Now()
		ctx, span := observability.StartSpan(ctx, "valknut."+name)
		defer span.End()

		if err := fn(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		elapsed := time.Since(start)
		observability.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		r.logger.Debug("stage complete", zap.String("stage", name), zap.Duration("elapsed", elapsed))
		r.advance(name)
		return nil, nil
	}
}

func (r *pipelineRun) advance(stage string) {
	done := atomic.AddInt32(&r.done, 1)
	if p := r.svc.progress; p != nil {
		p.Describe(stage)
		p.Update(int(done), pipelineSteps)
	}
}

// stageError maps a stage failure to a domain error. When the context has
// ended the error wraps ctx.Err().
func stageError(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.NewCancelledError(stage, fmt.Errorf("%w (%v)", ctxErr, err))
	}
	return domain.NewAnalysisError(fmt.Sprintf("%s failed", stage), err)
}
