package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	codes    map[string]domain.ErrorCategory
	patterns []categoryPatterns
}

type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		codes: map[string]domain.ErrorCategory{
			domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
			domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
			domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
			domain.ErrCodeAnalysisError:     domain.ErrorCategoryProcessing,
			domain.ErrCodeCacheError:        domain.ErrorCategoryProcessing,
			domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
			domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
			domain.ErrCodeCancelled:         domain.ErrorCategoryTimeout,
		},
		patterns: initializeErrorPatterns(),
	}
}

// initializeErrorPatterns lists message fragments for errors that carry no code.
// Order matters: the first matching category wins.
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"deadline",
			"context canceled",
			"timed out",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"toml",
			"weights",
			"threshold",
		}},
		{domain.ErrorCategoryInput, []string{
			"invalid input",
			"no feature files",
			"file not found",
			"no such file",
			"permission denied",
		}},
		{domain.ErrorCategoryOutput, []string{
			"output",
			"write",
			"format",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"analysis",
			"decode",
			"unmarshal",
			"stage",
		}},
	}
}

// Categorize determines the category of an error
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	category := ec.categoryOf(err)
	message := ec.getCategoryMessage(category)
	if category == domain.ErrorCategoryUnknown {
		message = err.Error()
	}
	return &domain.CategorizedError{
		Category: category,
		Message:  message,
		Original: err,
	}
}

func (ec *ErrorCategorizerImpl) categoryOf(err error) domain.ErrorCategory {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorCategoryTimeout
	}

	var de domain.DomainError
	if errors.As(err, &de) {
		if category, ok := ec.codes[de.Code]; ok {
			return category
		}
	}

	msg := strings.ToLower(err.Error())
	for _, cp := range ec.patterns {
		if containsAnyPattern(msg, cp.patterns) {
			return cp.category
		}
	}
	return domain.ErrorCategoryUnknown
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the feature files or glob patterns match existing files",
			"Feature files must be JSON or YAML with an \"entities\" list",
			"Ensure every entity has a unique, non-empty id",
		},
		domain.ErrorCategoryConfig: {
			"Verify configuration file format and values",
			"Try: valknut init to generate a valid config file",
			"Check VALKNUT_* environment variables for stale overrides",
		},
		domain.ErrorCategoryTimeout: {
			"Raise performance.timeout or lower graph.exact_node_ceiling",
			"Lower clone.max_verify_nodes or clone.verify_timeout",
			"Disable clone detection with clone.enabled = false",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions and output format validity",
			"Parquet output requires --output PATH",
			"Try writing to a different location",
		},
		domain.ErrorCategoryProcessing: {
			"Run with --log-level debug for per-stage details",
			"Try --no-cache to rule out a stale run cache",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --log-level debug for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to read feature input",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryTimeout:    "Analysis cancelled or timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error during pipeline processing",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
