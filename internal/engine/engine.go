// Package engine drives the task execution loop: consult the reasoning
// backend, gate the proposed action through the sandbox policy, dispatch
// it, record the outcome, and repeat until completion or a hard limit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskpilot/internal/config"
	"taskpilot/internal/dispatch"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/models"
	"taskpilot/internal/report"
	"taskpilot/internal/sandbox"
	"taskpilot/internal/tools"
)

// reasonUnparseable is the synthetic denial recorded when the backend's
// answer carries no usable tool call.
const reasonUnparseable = "unparseable/unknown tool"

// AuditSink receives the task record incrementally: one append per
// iteration, so a crash mid-task leaves a valid prefix on disk.
type AuditSink interface {
	StartTask(task *models.Task) error
	AppendEntry(taskID string, entry models.LedgerEntry) error
	FinishTask(task *models.Task) error
}

// EventType classifies engine progress events for observers.
type EventType string

const (
	EventTaskStarted    EventType = "task_started"
	EventIterationStart EventType = "iteration_start"
	EventEntryRecorded  EventType = "entry_recorded"
	EventTaskFinished   EventType = "task_finished"
)

// Event is one progress notification delivered synchronously to the
// observer (the CLI spinner or the live TUI).
type Event struct {
	Type      EventType
	Task      models.Task
	Iteration int
	Entry     *models.LedgerEntry
}

// Options configures an Engine.
type Options struct {
	Config   *config.Config
	Provider llm.Provider
	Registry *tools.Registry
	Audit    AuditSink
	Observer func(Event)
	Logger   *slog.Logger
}

// Engine owns exactly one task run at a time. Iterations never overlap:
// every proposal's context depends on all prior outcomes.
type Engine struct {
	cfg        *config.Config
	provider   llm.Provider
	registry   *tools.Registry
	policy     *sandbox.Policy
	dispatcher *dispatch.Dispatcher
	audit      AuditSink
	observer   func(Event)
	log        *slog.Logger
}

// New builds an engine. The sandbox snapshot is taken here, once; later
// configuration changes never affect this engine's tasks.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	return &Engine{
		cfg:        cfg,
		provider:   opts.Provider,
		registry:   opts.Registry,
		policy:     sandbox.New(opts.Registry, cfg.SnapshotSandbox(), cfg.WorkspaceDir),
		dispatcher: dispatch.New(opts.Registry, cfg.MaxOutputBytes, time.Duration(cfg.Sandbox.MaxCommandTimeout)*time.Second),
		audit:      opts.Audit,
		observer:   opts.Observer,
		log:        logger,
	}
}

// Run executes one task to a terminal status. The returned report is
// always non-nil with an explicit status; the error is non-nil only for
// setup failures before the loop starts.
func (e *Engine) Run(ctx context.Context, taskText string) (*models.TaskReport, error) {
	if taskText == "" {
		return nil, errors.New("empty task description")
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		Description: taskText,
		Status:      models.TaskStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
	led := ledger.New()

	runCtx := ctx
	var cancel context.CancelFunc
	if deadline := e.cfg.Deadline(); deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	if e.audit != nil {
		if err := e.audit.StartTask(task); err != nil {
			e.log.Warn("audit start failed", "task", task.ID, "error", err)
		}
	}
	e.emit(Event{Type: EventTaskStarted, Task: *task})
	e.log.Info("task started", "task", task.ID, "description", taskText)

	e.loop(runCtx, task, led)

	now := time.Now().UTC()
	task.FinishedAt = &now
	if e.audit != nil {
		if err := e.audit.FinishTask(task); err != nil {
			e.log.Warn("audit finish failed", "task", task.ID, "error", err)
		}
	}
	e.emit(Event{Type: EventTaskFinished, Task: *task})
	e.log.Info("task finished", "task", task.ID, "status", task.Status, "iterations", task.Iterations)

	rep := report.Build(task, led.Entries())
	return rep, nil
}

// loop runs iterations until a terminal status is set on the task.
func (e *Engine) loop(ctx context.Context, task *models.Task, led *ledger.Ledger) {
	decls := toolDecls(e.registry.List())

	for iter := 1; iter <= e.cfg.MaxIterations; iter++ {
		if stopped := e.checkDeadline(ctx, task); stopped {
			return
		}
		e.emit(Event{Type: EventIterationStart, Task: *task, Iteration: iter})
		e.log.Debug("iteration", "task", task.ID, "n", iter)

		resp, err := e.propose(ctx, task, led, decls)
		if err != nil {
			if stopped := e.checkDeadline(ctx, task); stopped {
				return
			}
			task.Status = models.TaskStatusFailed
			task.Error = fmt.Sprintf("reasoning backend failed: %v", err)
			return
		}

		// Explicit completion signals end the task; no tool is dispatched.
		if detail, ok := sentinelAfter(resp.Text, completeSentinel); ok {
			task.Status = models.TaskStatusCompleted
			task.FinalReport = detail
			return
		}
		if detail, ok := sentinelAfter(resp.Text, failedSentinel); ok {
			task.Status = models.TaskStatusFailed
			task.Error = detail
			return
		}

		entry := e.step(ctx, task, resp, iter)
		if err := led.Append(entry); err != nil {
			// Only a programming error can break the append invariant.
			task.Status = models.TaskStatusFailed
			task.Error = err.Error()
			return
		}
		task.Iterations = iter
		if e.audit != nil {
			if err := e.audit.AppendEntry(task.ID, entry); err != nil {
				e.log.Warn("audit append failed", "task", task.ID, "error", err)
			}
		}
		e.emit(Event{Type: EventEntryRecorded, Task: *task, Iteration: iter, Entry: &entry})
	}

	task.Status = models.TaskStatusIterationLimit
}

// step turns one backend response into one ledger entry: policy check,
// dispatch, outcome. Denials and tool failures are contained here; they
// never abort the task.
func (e *Engine) step(ctx context.Context, task *models.Task, resp *llm.Response, iter int) models.LedgerEntry {
	if len(resp.Proposals) == 0 {
		reason := reasonUnparseable
		if resp.Malformed != "" {
			reason = fmt.Sprintf("%s: %s", reasonUnparseable, resp.Malformed)
		}
		decision := models.SandboxDecision{Allowed: false, Reason: reason}
		return models.LedgerEntry{
			Iteration: iter,
			Proposal:  models.ActionProposal{Rationale: resp.Text},
			Decision:  decision,
			Outcome:   models.UnparseableOutcome(reason),
			Timestamp: time.Now().UTC(),
		}
	}

	// One action per iteration; extra calls are ignored and the backend
	// re-proposes them next turn with this outcome in hand.
	proposal := resp.Proposals[0]
	proposal.Rationale = resp.Text

	decision := e.policy.Evaluate(proposal)
	if !decision.Allowed {
		e.log.Debug("proposal denied", "task", task.ID, "tool", proposal.ToolName, "reason", decision.Reason)
	}
	outcome := e.dispatcher.Dispatch(ctx, proposal.ToolName, decision)

	// Stamp here, not in the ledger: the same entry value also goes to the
	// audit sink and the observer.
	return models.LedgerEntry{
		Iteration: iter,
		Proposal:  proposal,
		Decision:  decision,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// propose calls the backend with bounded retries and exponential backoff.
func (e *Engine) propose(ctx context.Context, task *models.Task, led *ledger.Ledger, decls []llm.ToolDecl) (*llm.Response, error) {
	req := llm.Request{
		System:   systemPrompt,
		Messages: buildMessages(task.Description, led.Window(e.cfg.ContextWindowEntries)),
		Tools:    decls,
	}

	maxRetries := e.cfg.LLM.MaxRetries
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			e.log.Debug("retrying backend", "task", task.ID, "attempt", attempt)
			if err := sleepCtx(ctx, llm.Backoff(attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		resp, err := e.provider.Propose(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !llm.Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// checkDeadline finalizes the task when the run context has expired.
// External cancellation and the overall deadline share this checkpoint.
func (e *Engine) checkDeadline(ctx context.Context, task *models.Task) bool {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		task.Status = models.TaskStatusTimedOut
		task.Error = "overall deadline exceeded"
		return true
	case errors.Is(ctx.Err(), context.Canceled):
		task.Status = models.TaskStatusFailed
		task.Error = "cancelled"
		return true
	}
	return false
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
