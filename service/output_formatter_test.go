package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/parquet"
)

func init() {
	color.NoColor = true
}

func sampleResult() *domain.AnalysisResult {
	cost := 0.0
	return &domain.AnalysisResult{
		RunID:       "run-1",
		Version:     "dev",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMs:  42,
		Summary: domain.AnalysisSummary{
			Entities:    3,
			Candidates:  2,
			Excluded:    1,
			TierCounts:  map[domain.PriorityTier]int{domain.PriorityCritical: 1, domain.PriorityLow: 1},
			Detectors:   2,
			ClonePairs:  1,
			CloneGroups: 1,
			Anomalies:   1,
			CacheHits:   []string{domain.StageGraph},
		},
		Candidates: []domain.RefactoringCandidate{
			{
				Rank: 1, EntityID: "pkg/a.py::f", FilePath: "pkg/a.py",
				Lines: domain.LineRange{Start: 3, End: 40}, Kind: domain.EntityKindFunction,
				Score: 1.8, Tier: domain.PriorityCritical, Confidence: 0.9, RawComplexity: 12,
				Promoted: true,
				Reasons:  []string{"complexity 2.10", "duplicated by pkg/b.py::g"},
				Contributions: []domain.KindContribution{
					{Kind: domain.DetectorKindComplexity, Present: true, Score: 2.1},
					{Kind: domain.DetectorKindStructure, Present: false},
				},
				ClonePairs: []domain.ClonePair{{EntityA: "pkg/a.py::f", EntityB: "pkg/b.py::g", Similarity: 1, EditCost: &cost, Verified: true}},
			},
			{
				Rank: 2, EntityID: "pkg/b.py::g", FilePath: "pkg/b.py",
				Score: -0.4, Tier: domain.PriorityLow, Confidence: 0.5,
				Contributions: []domain.KindContribution{
					{Kind: domain.DetectorKindComplexity, Present: true, Score: -0.4},
				},
			},
		},
		CloneGroups: []domain.CloneGroup{{ID: 1, Members: []string{"pkg/a.py::f", "pkg/b.py::g"}, AverageSimilarity: 1, Pairs: 1}},
		Graph:       domain.GraphSummary{Nodes: 3, Edges: 2, Mode: domain.CentralityModeExact},
		Anomalies:   []domain.Anomaly{{EntityID: "pkg/c.py::h", Stage: domain.StageInput, Message: "duplicate entity id; later definition dropped"}},
	}
}

func TestCandidateFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCandidateFormatter().Format(sampleResult(), domain.OutputFormatText, &buf))
	out := buf.String()

	assert.Contains(t, out, "Refactoring Candidates")
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Candidates: 2")
	assert.Contains(t, out, "Cache hits: graph")
	assert.Contains(t, out, "3 nodes, 2 edges, exact centrality")
	assert.Contains(t, out, "critical: 1")
	assert.Contains(t, out, "pkg/a.py::f")
	assert.Contains(t, out, "critical*")
	assert.Contains(t, out, "3-40")
	assert.Contains(t, out, "1.800")
	assert.Contains(t, out, "CLONE GROUPS")
	assert.Contains(t, out, "ANOMALIES")
	assert.Contains(t, out, "input pkg/c.py::h: duplicate entity id")
	assert.Contains(t, out, "Run run-1 completed in 42ms")
}

func TestCandidateFormatter_TextEmpty(t *testing.T) {
	result := &domain.AnalysisResult{Summary: domain.AnalysisSummary{TierCounts: map[domain.PriorityTier]int{}}}
	var buf bytes.Buffer
	require.NoError(t, NewCandidateFormatter().Format(result, domain.OutputFormatText, &buf))
	assert.Contains(t, buf.String(), "No refactoring candidates.")
	assert.NotContains(t, buf.String(), "ANOMALIES")
}

func TestCandidateFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCandidateFormatter().Format(sampleResult(), domain.OutputFormatJSON, &buf))

	var decoded domain.AnalysisResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Candidates, 2)
	assert.Equal(t, domain.PriorityCritical, decoded.Candidates[0].Tier)
	require.NotNil(t, decoded.Candidates[0].ClonePairs[0].EditCost)
	assert.Equal(t, 1, decoded.Summary.TierCounts[domain.PriorityCritical])
}

func TestCandidateFormatter_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCandidateFormatter().Format(sampleResult(), domain.OutputFormatYAML, &buf))
	assert.Contains(t, buf.String(), "run_id: run-1")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded["candidates"], 2)
}

func TestCandidateFormatter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCandidateFormatter().Format(sampleResult(), domain.OutputFormatCSV, &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	first := records[1]
	assert.Equal(t, "1", first[col("rank")])
	assert.Equal(t, "pkg/a.py::f", first[col("entity_id")])
	assert.Equal(t, "critical", first[col("tier")])
	assert.Equal(t, "true", first[col("promoted")])
	assert.Equal(t, "2.100000", first[col("complexity_score")])
	assert.Equal(t, "", first[col("structure_score")])
	assert.Equal(t, "1", first[col("clone_pairs")])
	assert.Equal(t, "complexity 2.10; duplicated by pkg/b.py::g", first[col("reasons")])
}

func TestCandidateFormatter_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, NewCandidateFormatter().Format(sampleResult(), domain.OutputFormatParquet, file))
	require.NoError(t, file.Close())

	rows, err := parquet.ReadCandidatesFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pkg/a.py::f", rows[0].EntityID)
	assert.Equal(t, "run-1", rows[0].RunID)
}

func TestCandidateFormatter_Errors(t *testing.T) {
	f := NewCandidateFormatter()
	var buf bytes.Buffer

	err := f.Format(nil, domain.OutputFormatJSON, &buf)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeOutputError))

	err = f.Format(sampleResult(), domain.OutputFormat("html"), &buf)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeUnsupportedFormat))
}

func TestFormatUtils(t *testing.T) {
	u := NewFormatUtils()
	assert.Equal(t, "-", u.FormatLines(domain.LineRange{}))
	assert.Equal(t, "7", u.FormatLines(domain.LineRange{Start: 7}))
	assert.Equal(t, "7", u.FormatLines(domain.LineRange{Start: 7, End: 7}))
	assert.Equal(t, "7-9", u.FormatLines(domain.LineRange{Start: 7, End: 9}))
	assert.Equal(t, "high", u.FormatTier(domain.PriorityHigh))

	assert.Equal(t, "short.py", TruncatePath("short.py", 20))
	assert.Equal(t, "...ep/file.py", TruncatePath("very/deep/file.py", 13))
}

func TestFileOutputWriter(t *testing.T) {
	var status bytes.Buffer
	w := NewFileOutputWriter(&status)

	var direct bytes.Buffer
	require.NoError(t, w.Write(&direct, "", domain.OutputFormatText, func(out io.Writer) error {
		_, err := out.Write([]byte("hello"))
		return err
	}))
	assert.Equal(t, "hello", direct.String())
	assert.Empty(t, status.String())

	path := filepath.Join(t.TempDir(), "reports", "nested", "out.json")
	require.NoError(t, w.Write(nil, path, domain.OutputFormatJSON, func(out io.Writer) error {
		return WriteJSON(out, map[string]int{"a": 1})
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))
	assert.Contains(t, status.String(), "JSON report generated:")

	err = w.Write(nil, "", domain.OutputFormatText, func(io.Writer) error { return nil })
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeOutputError))
}

func TestOutputFormatResolver(t *testing.T) {
	r := NewOutputFormatResolver()

	tests := []struct {
		name                     string
		json, yaml, csv, parquet bool
		fallback                 domain.OutputFormat
		wantFormat               domain.OutputFormat
		wantExt                  string
		wantErr                  bool
	}{
		{name: "default text", wantFormat: domain.OutputFormatText},
		{name: "json flag", json: true, wantFormat: domain.OutputFormatJSON, wantExt: "json"},
		{name: "yaml flag", yaml: true, wantFormat: domain.OutputFormatYAML, wantExt: "yaml"},
		{name: "csv flag", csv: true, wantFormat: domain.OutputFormatCSV, wantExt: "csv"},
		{name: "parquet flag", parquet: true, wantFormat: domain.OutputFormatParquet, wantExt: "parquet"},
		{name: "config fallback", fallback: domain.OutputFormatCSV, wantFormat: domain.OutputFormatCSV, wantExt: "csv"},
		{name: "flag beats fallback", json: true, fallback: domain.OutputFormatCSV, wantFormat: domain.OutputFormatJSON, wantExt: "json"},
		{name: "two flags", json: true, csv: true, wantErr: true},
		{name: "bad fallback", fallback: "html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ext, err := r.Determine(tt.json, tt.yaml, tt.csv, tt.parquet, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}
