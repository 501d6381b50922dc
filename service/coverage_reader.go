package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// CoverageReader loads per-entity coverage ratios. The file is JSON or
// YAML, either a flat map of entity ID to ratio or an object with a
// "coverage" map. Range checks happen in the pipeline, where bad values
// become anomalies.
type CoverageReader struct {
	path string
}

// NewCoverageReader creates a coverage provider for path
func NewCoverageReader(path string) *CoverageReader {
	return &CoverageReader{path: path}
}

// Load implements domain.CoverageProvider
func (r *CoverageReader) Load(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewCancelledError(domain.StageInput, err)
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(r.path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(r.path)), ".")
	ratios, err := decodeCoverage(bytes.TrimSpace(data), format)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("failed to decode coverage file %s", r.path), err)
	}
	return ratios, nil
}

func decodeCoverage(data []byte, format string) (map[string]float64, error) {
	if len(data) == 0 {
		return map[string]float64{}, nil
	}

	wrapped := struct {
		Coverage map[string]float64 `json:"coverage" yaml:"coverage"`
	}{}
	if err := decodeDocument(data, format, &wrapped); err == nil && wrapped.Coverage != nil {
		return wrapped.Coverage, nil
	}

	ratios := make(map[string]float64)
	if err := decodeDocument(data, format, &ratios); err != nil {
		return nil, err
	}
	return ratios, nil
}
