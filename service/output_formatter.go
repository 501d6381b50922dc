package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/parquet"
)

// CandidateFormatter renders analysis results in every supported format
type CandidateFormatter struct {
	utils *FormatUtils
}

// NewCandidateFormatter creates a new candidate formatter
func NewCandidateFormatter() *CandidateFormatter {
	return &CandidateFormatter{utils: NewFormatUtils()}
}

// Format implements domain.CandidateFormatter
func (f *CandidateFormatter) Format(result *domain.AnalysisResult, format domain.OutputFormat, writer io.Writer) error {
	if result == nil {
		return domain.NewOutputError("no analysis result to format", nil)
	}
	switch format {
	case domain.OutputFormatText, "":
		return f.writeText(result, writer)
	case domain.OutputFormatJSON:
		return WriteJSON(writer, result)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, result)
	case domain.OutputFormatCSV:
		return f.writeCSV(result, writer)
	case domain.OutputFormatParquet:
		if err := parquet.WriteCandidates(writer, parquet.ConvertCandidates(result)); err != nil {
			return domain.NewOutputError("failed to write parquet", err)
		}
		return nil
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *CandidateFormatter) writeText(result *domain.AnalysisResult, w io.Writer) error {
	var b strings.Builder
	b.WriteString(f.utils.FormatMainHeader("Refactoring Candidates"))

	s := result.Summary
	b.WriteString(f.utils.FormatSectionHeader("Summary"))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Entities", s.Entities))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Candidates", s.Candidates))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Excluded", s.Excluded))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Detectors", fmt.Sprintf("%d (%d bayesian)", s.Detectors, s.BayesianDetectors)))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Graph", fmt.Sprintf("%d nodes, %d edges, %s centrality, %d cycles",
		result.Graph.Nodes, result.Graph.Edges, orDash(string(result.Graph.Mode)), result.Graph.Cycles)))
	b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Clones", fmt.Sprintf("%d pairs in %d groups", s.ClonePairs, s.CloneGroups)))
	if len(s.CacheHits) > 0 {
		b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, "Cache hits", strings.Join(s.CacheHits, ", ")))
	}
	b.WriteString("\n")

	b.WriteString(f.utils.FormatSectionHeader("Tiers"))
	for _, tier := range []domain.PriorityTier{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, f.utils.FormatTier(tier), s.TierCounts[tier]))
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}

	if len(result.Candidates) > 0 {
		if err := f.writeCandidateTable(result.Candidates, w); err != nil {
			return domain.NewOutputError("failed to render candidate table", err)
		}
	} else {
		fmt.Fprintln(w, "No refactoring candidates.")
	}

	b.Reset()
	if len(result.CloneGroups) > 0 {
		b.WriteString("\n")
		b.WriteString(f.utils.FormatSectionHeader("Clone Groups"))
		for _, g := range result.CloneGroups {
			b.WriteString(fmt.Sprintf("%s#%d  %.2f avg  %s\n",
				strings.Repeat(" ", SectionPadding), g.ID, g.AverageSimilarity, strings.Join(g.Members, ", ")))
		}
	}
	if len(result.Anomalies) > 0 {
		b.WriteString("\n")
		b.WriteString(f.utils.FormatSectionHeader("Anomalies"))
		for _, a := range result.Anomalies {
			subject := a.Stage
			if a.EntityID != "" {
				subject += " " + a.EntityID
			}
			b.WriteString(f.utils.FormatLabelWithIndent(SectionPadding, subject, a.Message))
		}
	}
	fmt.Fprintf(&b, "\nRun %s completed in %dms\n", result.RunID, result.DurationMs)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

func (f *CandidateFormatter) writeCandidateTable(candidates []domain.RefactoringCandidate, w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Entity", "Path", "Lines", "Score", "Tier", "Conf", "Top Reason"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		tier := f.utils.FormatTier(c.Tier)
		if c.Promoted {
			tier += "*"
		}
		reason := "-"
		if len(c.Reasons) > 0 {
			reason = c.Reasons[0]
		}
		data = append(data, []string{
			strconv.Itoa(c.Rank),
			c.EntityID,
			TruncatePath(c.FilePath, MaxPathWidth),
			f.utils.FormatLines(c.Lines),
			fmt.Sprintf("%.3f", c.Score),
			tier,
			fmt.Sprintf("%.2f", c.Confidence),
			reason,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// csvKinds are the per-kind score columns in CSV output
var csvKinds = domain.AllDetectorKinds()

func (f *CandidateFormatter) writeCSV(result *domain.AnalysisResult, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"rank", "entity_id", "file_path", "line_start", "line_end", "kind", "score", "tier", "confidence", "raw_complexity", "promoted"}
	for _, kind := range csvKinds {
		header = append(header, string(kind)+"_score")
	}
	header = append(header, "clone_pairs", "reasons")
	if err := cw.Write(header); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}

	for _, c := range result.Candidates {
		row := []string{
			strconv.Itoa(c.Rank),
			c.EntityID,
			c.FilePath,
			strconv.Itoa(c.Lines.Start),
			strconv.Itoa(c.Lines.End),
			string(c.Kind),
			strconv.FormatFloat(c.Score, 'f', 6, 64),
			string(c.Tier),
			strconv.FormatFloat(c.Confidence, 'f', 4, 64),
			strconv.FormatFloat(c.RawComplexity, 'f', 4, 64),
			strconv.FormatBool(c.Promoted),
		}
		for _, kind := range csvKinds {
			row = append(row, kindScore(c, kind))
		}
		row = append(row, strconv.Itoa(len(c.ClonePairs)), strings.Join(c.Reasons, "; "))
		if err := cw.Write(row); err != nil {
			return domain.NewOutputError("failed to write CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return domain.NewOutputError("failed to flush CSV", err)
	}
	return nil
}

// kindScore returns the kind's score, or an empty cell when absent
func kindScore(c domain.RefactoringCandidate, kind domain.DetectorKind) string {
	for _, contrib := range c.Contributions {
		if contrib.Kind == kind && contrib.Present {
			return strconv.FormatFloat(contrib.Score, 'f', 6, 64)
		}
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
