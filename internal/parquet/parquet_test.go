package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Candidates: []domain.RefactoringCandidate{
			{
				Rank:     1,
				EntityID: "a.py::f",
				FilePath: "a.py",
				Lines:    domain.LineRange{Start: 3, End: 40},
				Kind:     domain.EntityKindFunction,
				Score:    1.2,
				Tier:     domain.PriorityCritical,
				Reasons:  []string{"cyclomatic above baseline (1.20)", "in dependency cycle of 3 nodes"},
				Contributions: []domain.KindContribution{
					{Kind: domain.DetectorKindComplexity, Present: true, Score: 1.2},
					{Kind: domain.DetectorKindGraph, Present: false},
				},
				Centrality: &domain.CentralityResult{NodeID: "a.py::f", Betweenness: 4, InCycle: true},
				ClonePairs: []domain.ClonePair{{EntityA: "a.py::f", EntityB: "b.py::g"}},
			},
			{
				Rank:     2,
				EntityID: "b.py::g",
				FilePath: "b.py",
				Score:    0.1,
				Tier:     domain.PriorityLow,
			},
		},
	}
}

func TestCandidateRowSchema(t *testing.T) {
	schema := parquet.SchemaOf(new(CandidateRow))
	require.NotNil(t, schema)

	for _, col := range []string{"run_id", "rank", "entity_id", "score", "tier", "complexity_score", "clone_score", "betweenness", "reasons"} {
		_, ok := schema.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestConvertCandidates(t *testing.T) {
	rows := ConvertCandidates(sampleResult())
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, int32(1), first.Rank)
	assert.Equal(t, "critical", first.Tier)
	require.NotNil(t, first.ComplexityScore)
	assert.InDelta(t, 1.2, *first.ComplexityScore, 1e-9)
	assert.Nil(t, first.GraphScore, "absent kinds stay null")
	require.NotNil(t, first.Betweenness)
	assert.True(t, first.InCycle)
	assert.Equal(t, int32(1), first.ClonePairs)
	assert.Equal(t, "cyclomatic above baseline (1.20); in dependency cycle of 3 nodes", first.Reasons)

	assert.Nil(t, rows[1].Betweenness)
}

func TestWriteAndReadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.parquet")
	rows := ConvertCandidates(sampleResult())

	require.NoError(t, WriteCandidatesFile(rows, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	got, err := ReadCandidatesFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].EntityID, got[i].EntityID)
		assert.Equal(t, rows[i].Rank, got[i].Rank)
		assert.InDelta(t, rows[i].Score, got[i].Score, 1e-9)
		assert.Equal(t, rows[i].ComplexityScore == nil, got[i].ComplexityScore == nil)
	}
}

func TestWriteCandidates_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteCandidatesFile(nil, path))

	got, err := ReadCandidatesFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
