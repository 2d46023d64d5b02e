// Package ui renders installer output for the terminal.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/edvin/deploy-installer/internal/probe"
)

// ANSI palette so output follows the terminal theme.
const (
	ColorSuccess lipgloss.Color = "2"
	ColorError   lipgloss.Color = "1"
	ColorWarning lipgloss.Color = "3"
	ColorMuted   lipgloss.Color = "8"
)

const (
	SymbolPass = "✓"
	SymbolFail = "✗"
	SymbolWarn = "!"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	warnStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Header prints a bold section title.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

// Success prints a line prefixed with the pass symbol.
func Success(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", successStyle.Render(SymbolPass), msg)
}

// Error prints a line prefixed with the fail symbol.
func Error(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", errorStyle.Render(SymbolFail), msg)
}

// Muted prints an indented secondary line.
func Muted(w io.Writer, msg string) {
	fmt.Fprintf(w, "    %s\n", mutedStyle.Render(msg))
}

// Check prints one requirements row. Failed optional checks are warnings.
func Check(w io.Writer, c probe.Check) {
	symbol, style := SymbolPass, successStyle
	switch {
	case !c.Passed && c.Required:
		symbol, style = SymbolFail, errorStyle
	case !c.Passed:
		symbol, style = SymbolWarn, warnStyle
	}

	line := c.Name
	if c.Required && !c.Passed {
		line += " " + errorStyle.Render("(required)")
	}
	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), line)
	if c.Note != "" && !c.Passed {
		Muted(w, c.Note)
	}
}

// Requirements prints both check groups and a one-line verdict.
func Requirements(w io.Writer, reqs probe.Requirements) {
	Header(w, "Installer requirements")
	for _, c := range reqs.Installer {
		Check(w, c)
	}
	fmt.Fprintln(w)

	Header(w, "Deployment requirements")
	for _, c := range reqs.Deployment {
		Check(w, c)
	}
	fmt.Fprintln(w)

	switch {
	case !reqs.AllRequiredPassed():
		Error(w, "Missing required components")
	case !reqs.DeploymentReady():
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render(SymbolWarn), "Installer ready; some deployment requirements are missing")
	default:
		Success(w, "Everything looks good")
	}
}
