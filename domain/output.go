package domain

import (
	"context"
	"io"
	"time"
)

// OutputFormat is a report format accepted by --format and the MCP tools
type OutputFormat string

const (
	OutputFormatText    OutputFormat = "text"
	OutputFormatJSON    OutputFormat = "json"
	OutputFormatYAML    OutputFormat = "yaml"
	OutputFormatCSV     OutputFormat = "csv"
	OutputFormatParquet OutputFormat = "parquet"
)

// IsValid reports whether the format is one of the supported formats
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML, OutputFormatCSV, OutputFormatParquet:
		return true
	}
	return false
}

// RequiresFile is true for binary formats, which cannot go to stdout
func (f OutputFormat) RequiresFile() bool {
	return f == OutputFormatParquet
}

// ReportWriter sends a rendered analysis report to its destination. A
// non-empty outputPath is created or truncated and handed to render; an
// empty one means render writes to writer (stdout for the CLI).
type ReportWriter interface {
	Write(writer io.Writer, outputPath string, format OutputFormat, render func(io.Writer) error) error
}

// ProgressManager reports pipeline progress. The pipeline calls Initialize
// with its step count, then Describe and Update as normalization, graph
// analysis, clone detection and aggregation finish.
type ProgressManager interface {
	Initialize(maxValue int)
	Start()
	Complete(success bool)
	Update(processed, total int)
	// Describe sets the label to the stage that just finished
	Describe(description string)
	SetWriter(writer io.Writer)
	// IsInteractive is false when stderr is not a terminal; progress is
	// then silent
	IsInteractive() bool
	Close()
}

// ParallelExecutor runs the independent pipeline stages concurrently under
// a shared concurrency limit and deadline
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
	SetMaxConcurrency(max int)
	SetTimeout(timeout time.Duration)
}

// ExecutableTask is one pipeline stage handed to a ParallelExecutor.
// Disabled stages (graph.enabled or clone.enabled false) are skipped.
type ExecutableTask interface {
	Name() string
	Execute(ctx context.Context) (interface{}, error)
	IsEnabled() bool
}

// ErrorCategory groups DomainError codes for CLI and MCP error reporting
type ErrorCategory string

const (
	ErrorCategoryInput      ErrorCategory = "Input Error"
	ErrorCategoryConfig     ErrorCategory = "Configuration Error"
	ErrorCategoryProcessing ErrorCategory = "Processing Error"
	ErrorCategoryOutput     ErrorCategory = "Output Error"
	ErrorCategoryTimeout    ErrorCategory = "Timeout Error"
	ErrorCategoryUnknown    ErrorCategory = "Unknown Error"
)

// CategorizedError pairs an analysis error with its category. Error returns
// the original message unchanged.
type CategorizedError struct {
	Category ErrorCategory
	Message  string
	Original error
}

func (e *CategorizedError) Error() string {
	if e.Original == nil {
		return e.Message
	}
	return e.Original.Error()
}

func (e *CategorizedError) Unwrap() error { return e.Original }

// ErrorCategorizer maps errors from a valknut run to a category and the
// hints printed under the error, such as checking the feature file path or
// lowering graph.exact_node_ceiling.
type ErrorCategorizer interface {
	Categorize(err error) *CategorizedError
	GetRecoverySuggestions(category ErrorCategory) []string
}
