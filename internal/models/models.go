// Package models defines the core domain types for Taskpilot.
package models

import "time"

// TaskStatus represents the terminal or running state of a task.
type TaskStatus string

const (
	TaskStatusRunning        TaskStatus = "running"
	TaskStatusCompleted      TaskStatus = "completed"
	TaskStatusFailed         TaskStatus = "failed"
	TaskStatusTimedOut       TaskStatus = "timed_out"
	TaskStatusIterationLimit TaskStatus = "iteration_limit_reached"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s != TaskStatusRunning && s != ""
}

// Task is one end-to-end unit of work driven by the execution loop.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Iterations  int        `json:"iterations"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	FinalReport string     `json:"final_report,omitempty"`
}

// ActionProposal is a single suggested tool invocation from the reasoning
// backend. It is immutable once received.
type ActionProposal struct {
	ToolName  string         `json:"tool_name"`
	Params    map[string]any `json:"params"`
	Rationale string         `json:"rationale,omitempty"`
}

// SandboxDecision is the policy verdict attached to one proposal.
type SandboxDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	// ClampedParams carries only the parameters the policy permits through,
	// with timeouts already clamped. Nil when the proposal is denied.
	ClampedParams map[string]any `json:"clamped_params,omitempty"`
}

// ErrorKind classifies a failed action outcome.
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindPolicyDenial ErrorKind = "policy_denial"
	ErrorKindToolFailure  ErrorKind = "tool_failure"
	ErrorKindTimeout      ErrorKind = "timeout"
	ErrorKindUnparseable  ErrorKind = "unparseable"
)

// ActionOutcome is the result of dispatching (or refusing to dispatch) one
// action. Denied proposals get a synthetic outcome; no tool runs for those.
type ActionOutcome struct {
	Success   bool          `json:"success"`
	Output    string        `json:"output,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated"`
}

// DeniedOutcome builds the synthetic outcome recorded for a rejected proposal.
func DeniedOutcome(reason string) ActionOutcome {
	return ActionOutcome{
		Success:   false,
		ErrorKind: ErrorKindPolicyDenial,
		Error:     reason,
	}
}

// UnparseableOutcome builds the synthetic outcome recorded when the backend
// answered without a usable tool call.
func UnparseableOutcome(reason string) ActionOutcome {
	return ActionOutcome{
		Success:   false,
		ErrorKind: ErrorKindUnparseable,
		Error:     reason,
	}
}

// LedgerEntry is one immutable (proposal, decision, outcome) triple. Entries
// are totally ordered by Iteration and are never mutated or removed.
type LedgerEntry struct {
	Iteration int             `json:"iteration"`
	Proposal  ActionProposal  `json:"proposal"`
	Decision  SandboxDecision `json:"decision"`
	Outcome   ActionOutcome   `json:"outcome"`
	Timestamp time.Time       `json:"timestamp"`
}

// TaskReport is the final reduction of a task and its ledger.
type TaskReport struct {
	TaskID         string        `json:"task_id"`
	Description    string        `json:"description"`
	Status         TaskStatus    `json:"status"`
	IterationsUsed int           `json:"iterations_used"`
	Elapsed        time.Duration `json:"elapsed"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Denied         int           `json:"denied"`
	Summary        []string      `json:"summary"`
	FinalReport    string        `json:"final_report,omitempty"`
	Error          string        `json:"error,omitempty"`
}
