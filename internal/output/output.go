// Package output provides styled terminal output helpers (success, error,
// warning, entity formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/localfirst/tripledb/internal/entity"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	fieldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
)

// Success prints a success message.
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message.
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs v as indented JSON.
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON error output, mirroring the Kind values
// in the root package's Error type.
const (
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeLookupFailed  = "lookup_failed"
	ErrCodeStorageError  = "storage_error"
	ErrCodeNotAuthed     = "not_authenticated"
	ErrCodeAuthError     = "auth_error"
	ErrCodeNetworkError  = "network_error"
	ErrCodeProtocolError = "protocol_error"
)

// JSONError outputs an error as a JSON envelope.
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatEntityShort renders one line per entity: id, type, and its other
// attributes.
func FormatEntityShort(e entity.Map) string {
	var parts []string
	parts = append(parts, titleStyle.Render(e.ID()))
	if t := e.Type(); t != "" {
		parts = append(parts, subtleStyle.Render(t))
	}
	for k, v := range e {
		if k == entity.IDField || k == entity.TypeAttribute {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", fieldStyle.Render(k), v))
	}
	return strings.Join(parts, "  ")
}

// FormatEntityLong renders one entity as a multi-line key/value block.
func FormatEntityLong(e entity.Map) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(e.ID()))
	if t := e.Type(); t != "" {
		sb.WriteString(" " + subtleStyle.Render("("+t+")"))
	}
	sb.WriteString("\n")
	for k, v := range e {
		if k == entity.IDField || k == entity.TypeAttribute {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: %v\n", fieldStyle.Render(k), v))
	}
	return sb.String()
}

// FormatTimeAgo formats t as a human-readable "ago" string.
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output.
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentLines indents each line by the given number of spaces.
func IndentLines(lines []string, spaces int) []string {
	indent := strings.Repeat(" ", spaces)
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = indent + line
	}
	return result
}

// IndentString indents each line in s by the given number of spaces.
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	return strings.Join(IndentLines(lines, spaces), "\n")
}

// BulletList formats items as a bulleted list with optional indentation.
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}
