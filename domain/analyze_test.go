package domain

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalyzeRequest
		wantErr bool
		code    string
	}{
		{
			name: "valid text request",
			req:  AnalyzeRequest{FeaturePaths: []string{"features.json"}, OutputWriter: &bytes.Buffer{}},
		},
		{
			name:    "no feature paths",
			req:     AnalyzeRequest{OutputWriter: &bytes.Buffer{}},
			wantErr: true,
			code:    ErrCodeInvalidInput,
		},
		{
			name:    "unknown format",
			req:     AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputFormat: "html", OutputWriter: &bytes.Buffer{}},
			wantErr: true,
			code:    ErrCodeUnsupportedFormat,
		},
		{
			name:    "parquet without path",
			req:     AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputFormat: OutputFormatParquet, OutputWriter: &bytes.Buffer{}},
			wantErr: true,
			code:    ErrCodeInvalidInput,
		},
		{
			name: "parquet with path",
			req:  AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputFormat: OutputFormatParquet, OutputPath: "out.parquet"},
		},
		{
			name:    "negative limit",
			req:     AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputWriter: &bytes.Buffer{}, Limit: -1},
			wantErr: true,
			code:    ErrCodeInvalidInput,
		},
		{
			name:    "unknown tier",
			req:     AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputWriter: &bytes.Buffer{}, MinTier: "urgent"},
			wantErr: true,
			code:    ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, HasErrorCode(err, tt.code), "expected code %s in %v", tt.code, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAnalyzeRequest_DefaultsToText(t *testing.T) {
	req := AnalyzeRequest{FeaturePaths: []string{"f.json"}, OutputWriter: &bytes.Buffer{}}
	require.NoError(t, req.Validate())
	assert.Equal(t, OutputFormatText, req.OutputFormat)
}

func TestPriorityTier(t *testing.T) {
	assert.True(t, PriorityCritical.AtLeast(PriorityHigh))
	assert.True(t, PriorityHigh.AtLeast(PriorityHigh))
	assert.False(t, PriorityMedium.AtLeast(PriorityHigh))
	assert.Equal(t, 0, PriorityTier("none").Rank())

	tier, err := ParsePriorityTier(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, tier)

	_, err = ParsePriorityTier("urgent")
	assert.Error(t, err)
}

func TestFilterCandidates(t *testing.T) {
	candidates := []RefactoringCandidate{
		{Rank: 1, EntityID: "a", Tier: PriorityCritical},
		{Rank: 2, EntityID: "b", Tier: PriorityHigh},
		{Rank: 3, EntityID: "c", Tier: PriorityMedium},
		{Rank: 4, EntityID: "d", Tier: PriorityLow},
	}

	filtered := FilterCandidates(candidates, PriorityHigh, 0)
	require.Len(t, filtered, 2)
	assert.Equal(t, "b", filtered[1].EntityID)
	assert.Equal(t, 2, filtered[1].Rank)

	limited := FilterCandidates(candidates, "", 3)
	assert.Len(t, limited, 3)
}

func TestEntityValidate(t *testing.T) {
	assert.Error(t, (&Entity{}).Validate())
	assert.Error(t, (&Entity{ID: "x", Lines: LineRange{Start: 10, End: 2}}).Validate())
	assert.NoError(t, (&Entity{ID: "x", Lines: LineRange{Start: 2, End: 10}}).Validate())
}

func TestDependencyEdgeValidate(t *testing.T) {
	assert.NoError(t, DependencyEdge{From: "a", To: "b"}.Validate())
	assert.Error(t, DependencyEdge{From: "a", To: ""}.Validate())
	assert.Error(t, DependencyEdge{From: "a", To: "b", Weight: -1}.Validate())
	assert.Error(t, DependencyEdge{From: "a", To: "b", Weight: math.NaN()}.Validate())
}

func TestFeatureSetMerge(t *testing.T) {
	fs := &FeatureSet{Entities: []Entity{{ID: "a"}}}
	fs.Merge(&FeatureSet{
		Entities: []Entity{{ID: "b"}},
		Edges:    []DependencyEdge{{From: "a", To: "b"}},
		Coverage: map[string]float64{"a": 0.5},
	})

	assert.Len(t, fs.Entities, 2)
	assert.Len(t, fs.Edges, 1)
	assert.Equal(t, 0.5, fs.Coverage["a"])
}

func TestStructureNodeSize(t *testing.T) {
	tree := &StructureNode{Label: "fn", Children: []*StructureNode{
		{Label: "arg"},
		{Label: "body", Children: []*StructureNode{{Label: "return"}}},
	}}
	assert.Equal(t, 4, tree.Size())
	assert.Equal(t, 0, (*StructureNode)(nil).Size())
}

func TestHasErrorCode(t *testing.T) {
	inner := NewConfigError("bad bands", nil)
	outer := NewAnalysisError("pipeline", inner)

	assert.True(t, HasErrorCode(outer, ErrCodeAnalysisError))
	assert.True(t, HasErrorCode(outer, ErrCodeConfigError))
	assert.False(t, HasErrorCode(outer, ErrCodeOutputError))
	assert.False(t, HasErrorCode(errors.New("plain"), ErrCodeConfigError))
}

func TestCloneTypeText(t *testing.T) {
	var ct CloneType
	require.NoError(t, ct.UnmarshalText([]byte("Type-2")))
	assert.Equal(t, Type2Clone, ct)

	text, err := Type1Clone.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Type-1", string(text))

	assert.Error(t, ct.UnmarshalText([]byte("Type-9")))
}
