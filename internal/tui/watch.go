// Package tui provides the live watch view for a running task.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskpilot/internal/engine"
	"taskpilot/internal/models"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Foreground(successColor)
	warnStyle = lipgloss.NewStyle().Foreground(warningColor)
	errStyle  = lipgloss.NewStyle().Foreground(errorColor)
	helpStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// maxVisibleLines bounds the scrollback kept in the view.
const maxVisibleLines = 200

// Watch renders engine progress events as they happen.
type Watch struct {
	events  <-chan engine.Event
	spinner spinner.Model

	task      models.Task
	iteration int
	lines     []string
	done      bool
	height    int
}

// NewWatch creates a watch view over an engine event stream. The channel
// must be closed once the task finishes.
func NewWatch(events <-chan engine.Event) *Watch {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return &Watch{events: events, spinner: sp, height: 24}
}

// Run starts the watch UI and blocks until the task finishes or the user
// quits.
func (w *Watch) Run() error {
	p := tea.NewProgram(w)
	_, err := p.Run()
	return err
}

type eventMsg engine.Event

type streamClosedMsg struct{}

func (w *Watch) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model
func (w *Watch) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.waitEvent())
}

// Update implements tea.Model
func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return w, tea.Quit
		}

	case tea.WindowSizeMsg:
		w.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd

	case eventMsg:
		w.apply(engine.Event(msg))
		return w, w.waitEvent()

	case streamClosedMsg:
		w.done = true
		return w, tea.Quit
	}

	return w, nil
}

func (w *Watch) apply(ev engine.Event) {
	w.task = ev.Task
	switch ev.Type {
	case engine.EventTaskStarted:
		w.lines = append(w.lines, helpStyle.Render("task "+ev.Task.ID))
	case engine.EventIterationStart:
		w.iteration = ev.Iteration
	case engine.EventEntryRecorded:
		if ev.Entry != nil {
			w.lines = append(w.lines, entryLine(*ev.Entry))
		}
	case engine.EventTaskFinished:
		w.lines = append(w.lines, finishLine(ev.Task))
		w.done = true
	}
	if len(w.lines) > maxVisibleLines {
		w.lines = w.lines[len(w.lines)-maxVisibleLines:]
	}
}

func entryLine(e models.LedgerEntry) string {
	name := e.Proposal.ToolName
	if name == "" {
		name = "(no tool)"
	}
	switch {
	case e.Outcome.Success:
		return fmt.Sprintf("%s #%d %s", okStyle.Render("✓"), e.Iteration, name)
	case !e.Decision.Allowed:
		return fmt.Sprintf("%s #%d %s denied: %s", warnStyle.Render("▲"), e.Iteration, name, e.Decision.Reason)
	default:
		return fmt.Sprintf("%s #%d %s: %s", errStyle.Render("✗"), e.Iteration, name, e.Outcome.Error)
	}
}

func finishLine(task models.Task) string {
	switch task.Status {
	case models.TaskStatusCompleted:
		return okStyle.Render("task completed")
	case models.TaskStatusTimedOut, models.TaskStatusIterationLimit:
		return warnStyle.Render("task stopped: " + string(task.Status))
	default:
		return errStyle.Render("task failed: " + task.Error)
	}
}

// View implements tea.Model
func (w *Watch) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Taskpilot"))
	b.WriteString("\n\n")

	visible := w.lines
	if limit := w.height - 6; limit > 0 && len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if !w.done {
		fmt.Fprintf(&b, "\n%s iteration %d\n", w.spinner.View(), w.iteration)
	}

	status := string(w.task.Status)
	if status == "" {
		status = "starting"
	}
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render(fmt.Sprintf(" %s | iterations: %d ", status, w.task.Iterations)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteString("\n")

	return b.String()
}
