package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskpilot/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	denyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func statusStyle(s models.TaskStatus) lipgloss.Style {
	switch s {
	case models.TaskStatusCompleted:
		return okStyle
	case models.TaskStatusTimedOut, models.TaskStatusIterationLimit:
		return denyStyle
	default:
		return failStyle
	}
}

// Render formats a report for terminal output.
func Render(rep *models.TaskReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Task Report"))
	b.WriteString("\n\n")
	writeField(&b, "Task", rep.TaskID)
	writeField(&b, "Description", rep.Description)
	writeField(&b, "Status", statusStyle(rep.Status).Render(string(rep.Status)))
	writeField(&b, "Iterations", fmt.Sprintf("%d", rep.IterationsUsed))
	writeField(&b, "Elapsed", rep.Elapsed.String())
	writeField(&b, "Actions", fmt.Sprintf("%s  %s  %s",
		okStyle.Render(fmt.Sprintf("%d ok", rep.Succeeded)),
		failStyle.Render(fmt.Sprintf("%d failed", rep.Failed)),
		denyStyle.Render(fmt.Sprintf("%d denied", rep.Denied))))

	if len(rep.Summary) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Chronology"))
		b.WriteString("\n")
		for _, line := range rep.Summary {
			b.WriteString("  " + line + "\n")
		}
	}

	if rep.FinalReport != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Result"))
		b.WriteString("\n")
		b.WriteString(borderStyle.Render(rep.FinalReport))
		b.WriteString("\n")
	}
	if rep.Error != "" {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("Error: " + rep.Error))
		b.WriteString("\n")
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(label+":"), value)
}
