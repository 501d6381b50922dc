package service

import (
	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// OutputFormatResolver resolves output format and file extension from flags.
type OutputFormatResolver struct{}

func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine evaluates format flags and returns the selected format and extension.
// At most one flag may be set; fallback is used when none are.
func (r *OutputFormatResolver) Determine(json, yaml, csv, parquet bool, fallback domain.OutputFormat) (domain.OutputFormat, string, error) {
	formatCount := 0
	var format domain.OutputFormat

	if json {
		formatCount++
		format = domain.OutputFormatJSON
	}
	if yaml {
		formatCount++
		format = domain.OutputFormatYAML
	}
	if csv {
		formatCount++
		format = domain.OutputFormatCSV
	}
	if parquet {
		formatCount++
		format = domain.OutputFormatParquet
	}

	if formatCount > 1 {
		return "", "", domain.NewInvalidInputError("only one output format flag can be specified", nil)
	}
	if formatCount == 0 {
		if fallback == "" {
			fallback = domain.OutputFormatText
		}
		if !fallback.IsValid() {
			return "", "", domain.NewUnsupportedFormatError(string(fallback))
		}
		format = fallback
	}
	return format, Extension(format), nil
}

// Extension returns the file extension for a format, empty for text
func Extension(format domain.OutputFormat) string {
	switch format {
	case domain.OutputFormatJSON:
		return "json"
	case domain.OutputFormatYAML:
		return "yaml"
	case domain.OutputFormatCSV:
		return "csv"
	case domain.OutputFormatParquet:
		return "parquet"
	default:
		return ""
	}
}
