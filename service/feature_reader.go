package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// FeatureReader loads pre-extracted entity features from JSON or YAML files.
// Inputs may be files, directories or doublestar globs such as
// "features/**/*.json".
type FeatureReader struct {
	patterns []string
	exclude  []string
	logger   *zap.Logger
}

// NewFeatureReader creates a feature provider over the given inputs
func NewFeatureReader(patterns []string, exclude []string, logger *zap.Logger) *FeatureReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeatureReader{patterns: patterns, exclude: exclude, logger: logger}
}

// Load implements domain.FeatureProvider. Files are merged in path order.
func (r *FeatureReader) Load(ctx context.Context) (*domain.FeatureSet, error) {
	files, err := r.CollectFeatureFiles()
	if err != nil {
		return nil, err
	}

	merged := &domain.FeatureSet{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewCancelledError(domain.StageInput, err)
		}
		set, err := DecodeFeatureFile(path)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("loaded feature file",
			zap.String("path", path),
			zap.Int("entities", len(set.Entities)),
			zap.Int("edges", len(set.Edges)))
		merged.Merge(set)
	}
	return merged, nil
}

// CollectFeatureFiles expands the inputs into a sorted, de-duplicated file list
func (r *FeatureReader) CollectFeatureFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if seen[clean] || r.excluded(clean) {
			return
		}
		seen[clean] = true
		files = append(files, clean)
	}

	for _, pattern := range r.patterns {
		if !hasGlobMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, domain.NewFileNotFoundError(pattern, err)
			}
			if !info.IsDir() {
				add(pattern)
				continue
			}
			dirFiles, err := collectFromDirectory(pattern)
			if err != nil {
				return nil, err
			}
			for _, f := range dirFiles {
				add(f)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid glob pattern %q", pattern), err)
		}
		for _, m := range matches {
			if IsFeatureFile(m) {
				add(m)
			}
		}
	}

	if len(files) == 0 {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("no feature files matched %s", strings.Join(r.patterns, ", ")), nil)
	}
	sort.Strings(files)
	return files, nil
}

func (r *FeatureReader) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range r.exclude {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// IsFeatureFile reports whether the extension is a supported feature format
func IsFeatureFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// collectFromDirectory finds feature files below dir, skipping hidden directories
func collectFromDirectory(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsFeatureFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return files, nil
}

// DecodeFeatureFile reads one feature file, choosing the decoder by extension
func DecodeFeatureFile(path string) (*domain.FeatureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	set, err := DecodeFeatures(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("failed to decode feature file %s", path), err)
	}
	return set, nil
}

// DecodeFeatures decodes a feature document. A document is either a feature
// set object or a bare list of entities.
func DecodeFeatures(data []byte, format string) (*domain.FeatureSet, error) {
	set := &domain.FeatureSet{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return set, nil
	}
	if isSequence(trimmed, format) {
		return set, decodeDocument(trimmed, format, &set.Entities)
	}
	return set, decodeDocument(trimmed, format, set)
}

// decodeDocument unmarshals JSON or YAML into out
func decodeDocument(data []byte, format string, out any) error {
	switch format {
	case "json":
		return json.Unmarshal(data, out)
	case "yaml", "yml":
		return yaml.Unmarshal(data, out)
	default:
		return domain.NewUnsupportedFormatError(format)
	}
}

func isSequence(data []byte, format string) bool {
	if format == "json" {
		return data[0] == '['
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}
