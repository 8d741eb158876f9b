// Package ui styles CLI output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	// Colors
	primaryColor = lipgloss.Color("#f59e0b") // Lumen amber
	successColor = lipgloss.Color("#10b981") // Green
	errorColor   = lipgloss.Color("#ef4444") // Red
	mutedColor   = lipgloss.Color("#94a3b8") // Muted gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)
)

// Title renders a headline.
func Title(s string) string { return titleStyle.Render(s) }

// Success renders a success line.
func Success(s string) string { return successStyle.Render("✓ " + s) }

// Error renders an error line.
func Error(s string) string { return errorStyle.Render("✗ " + s) }

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Row is one line of a summary: a label and its details.
type Row struct {
	Label  string
	Detail string
}

// Summary renders a boxed summary with a title and aligned rows.
func Summary(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}
	var b strings.Builder
	b.WriteString(Title(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-*s  %s", width, r.Label, Muted(r.Detail)))
	}
	return boxStyle.Render(b.String())
}
