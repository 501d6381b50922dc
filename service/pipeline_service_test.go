package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/cache"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
)

type mockProgress struct {
	mock.Mock
}

func (m *mockProgress) Initialize(maxValue int)     { m.Called(maxValue) }
func (m *mockProgress) Start()                      { m.Called() }
func (m *mockProgress) Complete(success bool)       { m.Called(success) }
func (m *mockProgress) Update(processed, total int) { m.Called(processed, total) }
func (m *mockProgress) Describe(description string) { m.Called(description) }
func (m *mockProgress) SetWriter(io.Writer)         {}
func (m *mockProgress) IsInteractive() bool         { return false }
func (m *mockProgress) Close()                      {}

func scenarioFeatures() *domain.FeatureSet {
	return &domain.FeatureSet{
		Entities: []domain.Entity{
			{ID: "a.py::f", FilePath: "a.py", Lines: domain.LineRange{Start: 1, End: 40}, Features: map[string]float64{"cyclomatic": 10}},
			{ID: "b.py::g", FilePath: "b.py", Lines: domain.LineRange{Start: 1, End: 10}, Features: map[string]float64{"cyclomatic": 2, "lines_of_code": 50}},
			{ID: "c.py::h", FilePath: "c.py", Lines: domain.LineRange{Start: 1, End: 10}, Features: map[string]float64{"cyclomatic": 2, "lines_of_code": 50}},
		},
	}
}

func scenarioConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Weights = config.WeightsConfig{Complexity: 0.5, Structure: 0.5}
	cfg.Detectors = []config.DetectorConfig{
		{Feature: "cyclomatic", Kind: string(domain.DetectorKindComplexity)},
		{Feature: "lines_of_code", Kind: string(domain.DetectorKindStructure)},
	}
	return cfg
}

func tokensOf(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

// largeFeatures builds a feature set with a dependency chain, a cycle and
// one pair of copied functions
func largeFeatures() *domain.FeatureSet {
	fs := &domain.FeatureSet{Coverage: map[string]float64{}}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("pkg/m%02d.py::fn", i)
		e := domain.Entity{
			ID:       id,
			FilePath: fmt.Sprintf("pkg/m%02d.py", i),
			Lines:    domain.LineRange{Start: 1, End: 10 + i},
			Features: map[string]float64{
				"cyclomatic":       float64(1 + i%7),
				"cognitive":        float64(i % 11),
				"lines_of_code":    float64(10 + 3*i),
				"style_violations": float64(i % 3),
			},
			Tokens: tokensOf(25, fmt.Sprintf("t%02d_", i)),
		}
		fs.Entities = append(fs.Entities, e)
		fs.Coverage[id] = float64(i%10) / 10
		if i > 0 {
			fs.Edges = append(fs.Edges, domain.DependencyEdge{From: fmt.Sprintf("pkg/m%02d.py::fn", i-1), To: id})
		}
	}
	fs.Entities[5].Tokens = tokensOf(25, "copied_")
	fs.Entities[17].Tokens = tokensOf(25, "copied_")
	fs.Edges = append(fs.Edges, domain.DependencyEdge{From: "pkg/m09.py::fn", To: "pkg/m07.py::fn"})
	return fs
}

func TestNewPipelineService_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clone.Bands = cfg.Clone.Hashes + 1

	svc, err := NewPipelineService(cfg)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeConfigError))
}

func TestPipelineService_NilFeatures(t *testing.T) {
	svc, err := NewPipelineService(nil)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), nil)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeInvalidInput))
}

func TestPipelineService_ScoringScenario(t *testing.T) {
	svc, err := NewPipelineService(scenarioConfig())
	require.NoError(t, err)

	result, err := svc.Analyze(context.Background(), scenarioFeatures())
	require.NoError(t, err)
	require.Len(t, result.Candidates, 3)

	first := result.Candidates[0]
	assert.Equal(t, "a.py::f", first.EntityID)
	assert.Equal(t, 1, first.Rank)
	for _, c := range first.Contributions {
		switch c.Kind {
		case domain.DetectorKindComplexity:
			assert.True(t, c.Present)
			assert.InDelta(t, 1.0, c.EffectiveWeight, 1e-9)
		case domain.DetectorKindStructure:
			assert.False(t, c.Present)
		}
	}
	assert.Greater(t, first.Score, result.Candidates[1].Score)
	assert.InDelta(t, result.Candidates[1].Score, result.Candidates[2].Score, 1e-12)

	assert.Equal(t, 3, result.Summary.Entities)
	assert.Equal(t, 3, result.Summary.Candidates)
	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.ConfigFingerprint)
	// three entities are below min_samples
	assert.Equal(t, result.Summary.Detectors, result.Summary.BayesianDetectors)
}

func TestPipelineService_Deterministic(t *testing.T) {
	svc, err := NewPipelineService(config.DefaultConfig())
	require.NoError(t, err)

	first, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, first.CloneGroups, second.CloneGroups)
	assert.Equal(t, first.Graph, second.Graph)
	assert.Equal(t, first.ConfigFingerprint, second.ConfigFingerprint)

	first.RunID, second.RunID = "", ""
	first.GeneratedAt, second.GeneratedAt = time.Time{}, time.Time{}
	first.DurationMs, second.DurationMs = 0, 0
	a, err := EncodeJSON(first)
	require.NoError(t, err)
	b, err := EncodeJSON(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelineService_DeterministicSampledCentrality(t *testing.T) {
	sampledConfig := func(workers int) *config.Config {
		cfg := config.DefaultConfig()
		cfg.Graph.ExactNodeCeiling = 10
		cfg.Graph.SampleRate = 0.3
		cfg.Graph.MinSamples = 4
		cfg.Graph.Seed = 42
		cfg.Performance.MaxWorkers = workers
		return cfg
	}
	one, err := NewPipelineService(sampledConfig(1))
	require.NoError(t, err)
	many, err := NewPipelineService(sampledConfig(8))
	require.NoError(t, err)

	first, err := one.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)
	second, err := many.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)

	assert.Equal(t, domain.CentralityModeSampled, first.Graph.Mode)
	assert.Equal(t, 9, first.Graph.Sources)
	assert.Equal(t, first.Graph, second.Graph)
	assert.Equal(t, first.Candidates, second.Candidates)

	// the worker count is part of the configuration fingerprint
	first.ConfigFingerprint, second.ConfigFingerprint = "", ""
	first.RunID, second.RunID = "", ""
	first.GeneratedAt, second.GeneratedAt = time.Time{}, time.Time{}
	first.DurationMs, second.DurationMs = 0, 0
	a, err := EncodeJSON(first)
	require.NoError(t, err)
	b, err := EncodeJSON(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelineService_GraphAndClones(t *testing.T) {
	svc, err := NewPipelineService(config.DefaultConfig())
	require.NoError(t, err)

	result, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)

	assert.Equal(t, 30, result.Graph.Nodes)
	assert.Equal(t, 30, result.Graph.Edges)
	assert.Equal(t, 1, result.Graph.Cycles)
	assert.Equal(t, 3, result.Graph.NodesInCycles)

	require.NotEmpty(t, result.CloneGroups)
	assert.Equal(t, []string{"pkg/m05.py::fn", "pkg/m17.py::fn"}, result.CloneGroups[0].Members)

	var sawGraph, sawClone bool
	for _, c := range result.Candidates {
		for _, contrib := range c.Contributions {
			if contrib.Present && contrib.Kind == domain.DetectorKindGraph {
				sawGraph = true
			}
			if contrib.Present && contrib.Kind == domain.DetectorKindClone {
				sawClone = true
			}
		}
		if c.EntityID == "pkg/m08.py::fn" {
			require.NotNil(t, c.Centrality)
			assert.True(t, c.Centrality.InCycle)
		}
	}
	assert.True(t, sawGraph)
	assert.True(t, sawClone)
}

func TestPipelineService_DisabledStages(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Graph.Enabled = false
	cfg.Clone.Enabled = false
	svc, err := NewPipelineService(cfg)
	require.NoError(t, err)

	result, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)

	assert.Zero(t, result.Graph.Nodes)
	assert.Empty(t, result.CloneGroups)
	assert.Zero(t, result.CloneStatistics.Signed)
	assert.NotEmpty(t, result.Candidates)
	for _, c := range result.Candidates {
		assert.Nil(t, c.Centrality)
	}
}

func TestPipelineService_RunCache(t *testing.T) {
	store := cache.NewMemoryStore()
	runCache := cache.NewRunCache(store, zap.NewNop())
	svc, err := NewPipelineService(config.DefaultConfig(), WithRunCache(runCache))
	require.NoError(t, err)

	cold, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)
	assert.Empty(t, cold.Summary.CacheHits)
	assert.Equal(t, 2, store.Len())

	warm, err := svc.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)
	assert.Equal(t, []string{domain.StageNormalize, domain.StageGraph}, warm.Summary.CacheHits)
	assert.Equal(t, cold.Candidates, warm.Candidates)
	assert.Equal(t, cold.Graph, warm.Graph)

	// a different seed is a different graph key
	cfg := config.DefaultConfig()
	cfg.Graph.Seed = 7
	other, err := NewPipelineService(cfg, WithRunCache(runCache))
	require.NoError(t, err)
	result, err := other.Analyze(context.Background(), largeFeatures())
	require.NoError(t, err)
	assert.Equal(t, []string{domain.StageNormalize}, result.Summary.CacheHits)
}

func TestPipelineService_Cancelled(t *testing.T) {
	svc, err := NewPipelineService(config.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Analyze(ctx, largeFeatures())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeCancelled))
}

func TestPipelineService_Anomalies(t *testing.T) {
	fs := scenarioFeatures()
	fs.Entities = append(fs.Entities,
		domain.Entity{ID: "a.py::f", Features: map[string]float64{"cyclomatic": 99}},
		domain.Entity{ID: ""},
		domain.Entity{ID: "d.py::k", Features: map[string]float64{"cyclomatic": math.NaN(), "lines_of_code": 12}},
	)
	fs.Coverage = map[string]float64{"b.py::g": 1.5, "ghost": 0.5, "c.py::h": 0.4}
	fs.Edges = []domain.DependencyEdge{
		{From: "a.py::f", To: "b.py::g"},
		{From: "b.py::g", To: "c.py::h", Weight: math.NaN()},
	}

	svc, err := NewPipelineService(scenarioConfig())
	require.NoError(t, err)
	result, err := svc.Analyze(context.Background(), fs)
	require.NoError(t, err)

	stages := map[string]int{}
	for _, a := range result.Anomalies {
		stages[a.Stage]++
	}
	// duplicate id, empty id, out-of-range and unknown coverage
	assert.Equal(t, 4, stages[domain.StageInput])
	assert.Equal(t, 1, stages[domain.StageGraph])
	assert.GreaterOrEqual(t, stages[domain.StageNormalize], 1)
	assert.Equal(t, len(result.Anomalies), result.Summary.Anomalies)
	assert.Equal(t, 4, result.Summary.Entities)

	for _, c := range result.Candidates {
		if c.EntityID == "a.py::f" {
			assert.Equal(t, 10.0, c.RawComplexity)
		}
	}
}

func TestPipelineService_PriorityFeedback(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clone.PriorityFeedback = true
	cfg.Clone.CandidateThreshold = 0.95
	cfg.Clone.FeedbackRelaxation = 0.6
	svc, err := NewPipelineService(cfg)
	require.NoError(t, err)

	fs := largeFeatures()
	// a near copy of m05 that LSH scores below the candidate threshold
	near := tokensOf(25, "copied_")
	near[20], near[21], near[22] = "x", "y", "z"
	fs.Entities[6].Tokens = near
	fs.Entities[6].Features["cyclomatic"] = 40

	result, err := svc.Analyze(context.Background(), fs)
	require.NoError(t, err)

	stats := result.CloneStatistics
	assert.LessOrEqual(t, stats.FeedbackAdded, stats.FeedbackChecked)
	assert.Equal(t, stats.Accepted, result.Summary.ClonePairs)
}

func TestPipelineService_ReportsProgress(t *testing.T) {
	progress := &mockProgress{}
	progress.On("Initialize", pipelineSteps).Once()
	progress.On("Describe", mock.Anything)
	progress.On("Start").Once()
	progress.On("Update", mock.Anything, pipelineSteps).Times(pipelineSteps)
	progress.On("Complete", true).Once()

	svc, err := NewPipelineService(scenarioConfig(), WithProgress(progress))
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), scenarioFeatures())
	require.NoError(t, err)

	progress.AssertExpectations(t)
	progress.AssertCalled(t, "Update", pipelineSteps, pipelineSteps)
}

func TestPipelineService_Clock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, err := NewPipelineService(scenarioConfig(), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	result, err := svc.Analyze(context.Background(), scenarioFeatures())
	require.NoError(t, err)
	assert.Equal(t, fixed, result.GeneratedAt)
	assert.Zero(t, result.DurationMs)
}
