// Package dispatch invokes approved tools under a bounded execution
// context and captures every outcome uniformly. A tool failure is data,
// never a crash of the loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"taskpilot/internal/models"
	"taskpilot/internal/tools"
)

const (
	// DefaultTimeout bounds tools whose decision carries no clamped
	// timeout parameter.
	DefaultTimeout = 300 * time.Second

	// DefaultMaxOutputBytes caps captured tool output when no ceiling is
	// configured.
	DefaultMaxOutputBytes = 16 * 1024
)

// Dispatcher executes approved actions. All policy gating has already
// happened by the time Dispatch is called; the dispatcher only enforces
// time and size bounds.
type Dispatcher struct {
	registry       *tools.Registry
	maxOutputBytes int
	defaultTimeout time.Duration
}

// New creates a dispatcher over the given registry. Zero values fall back
// to the package defaults.
func New(registry *tools.Registry, maxOutputBytes int, defaultTimeout time.Duration) *Dispatcher {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Dispatcher{
		registry:       registry,
		maxOutputBytes: maxOutputBytes,
		defaultTimeout: defaultTimeout,
	}
}

// Dispatch runs the tool named by the proposal with the decision's clamped
// parameters. Denied decisions produce a synthetic outcome without touching
// any tool.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, decision models.SandboxDecision) models.ActionOutcome {
	if !decision.Allowed {
		return models.DeniedOutcome(decision.Reason)
	}

	tool, ok := d.registry.Get(toolName)
	if !ok {
		// The policy approved a tool the registry no longer has; treat it
		// as a denial rather than a crash.
		return models.DeniedOutcome(fmt.Sprintf("tool %q not registered", toolName))
	}

	timeout := d.defaultTimeout
	if secs := tools.IntParam(decision.ClampedParams, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := d.invoke(runCtx, tool, decision.ClampedParams)
	elapsed := time.Since(start)

	if err != nil {
		kind := models.ErrorKindToolFailure
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			kind = models.ErrorKindTimeout
		}
		msg, truncated := truncate(err.Error(), d.maxOutputBytes)
		return models.ActionOutcome{
			Success:   false,
			ErrorKind: kind,
			Error:     msg,
			Duration:  elapsed,
			Truncated: truncated,
		}
	}

	output, truncated := truncate(result.Output, d.maxOutputBytes)
	return models.ActionOutcome{
		Success:   true,
		Output:    output,
		Duration:  elapsed,
		Truncated: truncated,
	}
}

// invoke calls the tool, converting a panic into an error so one broken
// tool cannot abort the task.
func (d *Dispatcher) invoke(ctx context.Context, tool tools.Tool, params map[string]any) (result *tools.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	result, err = tool.Invoke(ctx, params)
	if err == nil && result == nil {
		err = fmt.Errorf("tool returned no result")
	}
	return result, err
}

// truncate keeps the head of s up to limit bytes, backing off to the
// previous rune boundary so the result is valid UTF-8.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
