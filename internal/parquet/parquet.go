// Package parquet exports ranked refactoring candidates to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// CandidateRow is one ranked candidate flattened to a columnar row
type CandidateRow struct {
	// RunID identifies the analysis run that produced the row
	RunID string `parquet:"run_id,snappy"`

	// GeneratedAt is when the run finished
	GeneratedAt time.Time `parquet:"generated_at,snappy"`

	Rank          int32   `parquet:"rank,snappy"`
	EntityID      string  `parquet:"entity_id,snappy"`
	FilePath      string  `parquet:"file_path,snappy"`
	LineStart     int32   `parquet:"line_start,snappy"`
	LineEnd       int32   `parquet:"line_end,snappy"`
	Kind          string  `parquet:"kind,snappy"`
	Score         float64 `parquet:"score,snappy"`
	Tier          string  `parquet:"tier,snappy"`
	Confidence    float64 `parquet:"confidence,snappy"`
	RawComplexity float64 `parquet:"raw_complexity,snappy"`
	Promoted      bool    `parquet:"promoted,snappy"`

	// Per-kind scores are null when the kind had no signal for the entity
	ComplexityScore *float64 `parquet:"complexity_score,optional,snappy"`
	GraphScore      *float64 `parquet:"graph_score,optional,snappy"`
	StructureScore  *float64 `parquet:"structure_score,optional,snappy"`
	StyleScore      *float64 `parquet:"style_score,optional,snappy"`
	CoverageScore   *float64 `parquet:"coverage_score,optional,snappy"`
	CloneScore      *float64 `parquet:"clone_score,optional,snappy"`

	Betweenness *float64 `parquet:"betweenness,optional,snappy"`
	InCycle     bool     `parquet:"in_cycle,snappy"`
	ClonePairs  int32    `parquet:"clone_pairs,snappy"`

	// Reasons joined with "; "
	Reasons string `parquet:"reasons,snappy"`
}

// ConvertCandidates flattens an analysis result into rows
func ConvertCandidates(result *domain.AnalysisResult) []CandidateRow {
	rows := make([]CandidateRow, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		row := CandidateRow{
			RunID:         result.RunID,
			GeneratedAt:   result.GeneratedAt,
			Rank:          int32(c.Rank),
			EntityID:      c.EntityID,
			FilePath:      c.FilePath,
			LineStart:     int32(c.Lines.Start),
			LineEnd:       int32(c.Lines.End),
			Kind:          string(c.Kind),
			Score:         c.Score,
			Tier:          string(c.Tier),
			Confidence:    c.Confidence,
			RawComplexity: c.RawComplexity,
			Promoted:      c.Promoted,
			ClonePairs:    int32(len(c.ClonePairs)),
			Reasons:       strings.Join(c.Reasons, "; "),
		}
		for _, contrib := range c.Contributions {
			if !contrib.Present {
				continue
			}
			score := contrib.Score
			switch contrib.Kind {
			case domain.DetectorKindComplexity:
				row.ComplexityScore = &score
			case domain.DetectorKindGraph:
				row.GraphScore = &score
			case domain.DetectorKindStructure:
				row.StructureScore = &score
			case domain.DetectorKindStyle:
				row.StyleScore = &score
			case domain.DetectorKindCoverage:
				row.CoverageScore = &score
			case domain.DetectorKindClone:
				row.CloneScore = &score
			}
		}
		if c.Centrality != nil {
			b := c.Centrality.Betweenness
			row.Betweenness = &b
			row.InCycle = c.Centrality.InCycle
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCandidates writes rows to w
func WriteCandidates(w io.Writer, rows []CandidateRow) error {
	writer := parquet.NewGenericWriter[CandidateRow](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteCandidatesFile writes rows to a new file at outputPath
func WriteCandidatesFile(rows []CandidateRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return WriteCandidates(file, rows)
}

// ReadCandidatesFile reads rows back from a Parquet file
func ReadCandidatesFile(path string) ([]CandidateRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[CandidateRow](file)
	defer func() { _ = reader.Close() }()

	rows := make([]CandidateRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return rows[:n], nil
}
