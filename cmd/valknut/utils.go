package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sibyllinesoft/valknut-sub001/service"
)

// reportsDir holds generated reports when no output path is given
var reportsDir = filepath.Join(".valknut", "reports")

// generateTimestampedFileName generates a filename with timestamp suffix
func generateTimestampedFileName(command, extension string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", command, timestamp, extension)
}

// generateOutputFilePath returns a timestamped report path under the
// working directory's report folder, creating the folder
func generateOutputFilePath(command, extension string) (string, error) {
	outputDir := reportsDir
	if cwd, err := os.Getwd(); err == nil {
		outputDir = filepath.Join(cwd, reportsDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}
	return filepath.Join(outputDir, generateTimestampedFileName(command, extension)), nil
}

// reportError prints a categorized error with recovery suggestions
func reportError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	fmt.Fprintf(w, "Error: %v\n", err)
	fmt.Fprintf(w, "\n%s: %s\n", categorized.Category, categorized.Message)
	fmt.Fprintf(w, "Suggestions:\n")
	for _, suggestion := range categorizer.GetRecoverySuggestions(categorized.Category) {
		fmt.Fprintf(w, "  • %s\n", suggestion)
	}
}
