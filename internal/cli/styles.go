package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diffRemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// renderDecision colors a decision string for terminal output.
func renderDecision(decision string) string {
	switch decision {
	case "auto_approve":
		return okStyle.Render("AUTO-APPROVE")
	case "needs_review":
		return warnStyle.Render("NEEDS REVIEW")
	case "reject":
		return errStyle.Render("REJECT")
	default:
		return dimStyle.Render("(no decision)")
	}
}

// renderStatus colors a run status.
func renderStatus(status string) string {
	switch status {
	case "completed":
		return okStyle.Render(status)
	case "failed":
		return errStyle.Render(status)
	case "running":
		return warnStyle.Render(status)
	default:
		return dimStyle.Render(status)
	}
}

// renderDiff colors unified-diff text line by line.
func renderDiff(diffText string) string {
	var b strings.Builder
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(boldStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(diffHunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(diffAddStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(diffRemoveStyle.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderScore(label string, value float64, format string) string {
	return fmt.Sprintf("%s %s", dimStyle.Render(label), fmt.Sprintf(format, value))
}
