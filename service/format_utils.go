package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// WriteJSON writes indented JSON for the given value to the writer.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode JSON", err)
	}
	return nil
}

// EncodeJSON returns an indented JSON string for the given value.
func EncodeJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", domain.NewOutputError("failed to marshal JSON", err)
	}
	return string(data), nil
}

// WriteYAML writes YAML for the given value to the writer.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode YAML", err)
	}
	return nil
}

// Standard formatting constants
const (
	HeaderWidth    = 40
	SectionPadding = 2
	MaxPathWidth   = 48
)

// Tier colors for console output
var (
	CriticalColor = color.New(color.FgRed, color.Bold)
	HighColor     = color.New(color.FgMagenta, color.Bold)
	MediumColor   = color.New(color.FgYellow)
	LowColor      = color.New(color.FgCyan)
)

// FormatUtils provides shared formatting utilities
type FormatUtils struct{}

// NewFormatUtils creates a new format utilities instance
func NewFormatUtils() *FormatUtils {
	return &FormatUtils{}
}

// FormatMainHeader creates a standardized main header
func (f *FormatUtils) FormatMainHeader(title string) string {
	return title + "\n" + strings.Repeat("=", HeaderWidth) + "\n\n"
}

// FormatSectionHeader creates a standardized section header
func (f *FormatUtils) FormatSectionHeader(title string) string {
	return strings.ToUpper(title) + "\n" + strings.Repeat("-", len(title)) + "\n"
}

// FormatLabelWithIndent creates a formatted label with specific indentation
func (f *FormatUtils) FormatLabelWithIndent(indent int, label string, value interface{}) string {
	return fmt.Sprintf("%s%s: %v\n", strings.Repeat(" ", indent), label, value)
}

// FormatTier returns the tier name colored by urgency. Colors are dropped
// automatically when the output is not a terminal.
func (f *FormatUtils) FormatTier(tier domain.PriorityTier) string {
	text := string(tier)
	switch tier {
	case domain.PriorityCritical:
		return CriticalColor.Sprint(text)
	case domain.PriorityHigh:
		return HighColor.Sprint(text)
	case domain.PriorityMedium:
		return MediumColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// FormatLines renders an inclusive line span
func (f *FormatUtils) FormatLines(lines domain.LineRange) string {
	switch {
	case lines.Start == 0 && lines.End == 0:
		return "-"
	case lines.End == 0 || lines.End == lines.Start:
		return fmt.Sprintf("%d", lines.Start)
	default:
		return fmt.Sprintf("%d-%d", lines.Start, lines.End)
	}
}

// TruncatePath shortens a path to maxWidth runes with an ellipsis prefix
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}
