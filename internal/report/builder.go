// Package report reduces a finished task and its ledger into a TaskReport
// and renders it for the terminal.
package report

import (
	"fmt"
	"time"

	"taskpilot/internal/models"
)

// Build is a pure reduction over the task and its full ledger. It never
// consults the clock beyond the task's own timestamps and never mutates
// its inputs.
func Build(task *models.Task, entries []models.LedgerEntry) *models.TaskReport {
	rep := &models.TaskReport{
		TaskID:         task.ID,
		Description:    task.Description,
		Status:         task.Status,
		IterationsUsed: len(entries),
		FinalReport:    task.FinalReport,
		Error:          task.Error,
	}
	if task.FinishedAt != nil {
		rep.Elapsed = task.FinishedAt.Sub(task.CreatedAt)
	}

	for _, e := range entries {
		switch {
		case e.Outcome.Success:
			rep.Succeeded++
		case denied(e):
			rep.Denied++
		default:
			rep.Failed++
		}
		rep.Summary = append(rep.Summary, summaryLine(e))
	}
	return rep
}

// denied covers policy rejections and unparseable backend turns: both are
// recorded without any tool running.
func denied(e models.LedgerEntry) bool {
	return !e.Decision.Allowed ||
		e.Outcome.ErrorKind == models.ErrorKindPolicyDenial ||
		e.Outcome.ErrorKind == models.ErrorKindUnparseable
}

// summaryLine renders one chronology row: iteration, tool, verdict.
func summaryLine(e models.LedgerEntry) string {
	name := e.Proposal.ToolName
	if name == "" {
		name = "(no tool)"
	}
	switch {
	case e.Outcome.Success:
		return fmt.Sprintf("#%d %s ok (%s)", e.Iteration, name, roundDuration(e.Outcome.Duration))
	case denied(e):
		return fmt.Sprintf("#%d %s denied: %s", e.Iteration, name, e.Decision.Reason)
	case e.Outcome.ErrorKind == models.ErrorKindTimeout:
		return fmt.Sprintf("#%d %s timed out after %s", e.Iteration, name, roundDuration(e.Outcome.Duration))
	default:
		return fmt.Sprintf("#%d %s failed: %s", e.Iteration, name, e.Outcome.Error)
	}
}

func roundDuration(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
