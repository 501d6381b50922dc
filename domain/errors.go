package domain

import (
	"errors"
	"fmt"
)

// DomainError is the error type every valknut stage returns. Code is one of
// the ErrCode constants and drives CLI exit codes and MCP error payloads.
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e DomainError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
}

func (e DomainError) Unwrap() error { return e.Cause }

// Error codes
const (
	// ErrCodeInvalidInput covers malformed feature, dependency or coverage files
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeFileNotFound is returned when an input path or glob matches nothing
	ErrCodeFileNotFound = "FILE_NOT_FOUND"
	// ErrCodeAnalysisError is a failure inside normalization, graph, clone or scoring
	ErrCodeAnalysisError = "ANALYSIS_ERROR"
	ErrCodeConfigError   = "CONFIG_ERROR"
	// ErrCodeOutputError is a failure writing a report
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	// ErrCodeCacheError is advisory; the run continues without the cache
	ErrCodeCacheError = "CACHE_ERROR"
	ErrCodeCancelled  = "CANCELLED"
)

// NewDomainError wraps cause under code
func NewDomainError(code, message string, cause error) error {
	return DomainError{Code: code, Message: message, Cause: cause}
}

// NewInvalidInputError reports an input file the reader could not accept
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError reports a missing input path
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, "no input at "+path, cause)
}

// NewAnalysisError reports a stage failure
func NewAnalysisError(message string, cause error) error {
	return NewDomainError(ErrCodeAnalysisError, message, cause)
}

// NewConfigError reports a configuration that failed to load or validate
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewOutputError reports a report that could not be written
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError reports an unknown input or report format
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, "unsupported format: "+format, nil)
}

// NewCacheError reports a run cache failure. Cache errors are advisory and
// never abort a run on their own.
func NewCacheError(message string, cause error) error {
	return NewDomainError(ErrCodeCacheError, message, cause)
}

// NewCancelledError wraps a context cancellation observed by a pipeline stage
func NewCancelledError(stage string, cause error) error {
	return NewDomainError(ErrCodeCancelled, stage+" cancelled", cause)
}

// NewValidationError is an invalid input error without a cause
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// HasErrorCode reports whether err, or any error it wraps, is a DomainError
// carrying the given code.
func HasErrorCode(err error, code string) bool {
	var de DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code || HasErrorCode(de.Cause, code)
}
