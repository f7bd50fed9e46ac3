package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"taskpilot/internal/audit"
	"taskpilot/internal/config"
	"taskpilot/internal/engine"
	"taskpilot/internal/llm"
	"taskpilot/internal/models"
	"taskpilot/internal/report"
	"taskpilot/internal/tools"
	"taskpilot/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [task description]",
	Short: "Run a task to completion",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

var (
	watchFlag         bool
	maxIterationsFlag int
)

func init() {
	runCmd.Flags().BoolVar(&watchFlag, "watch", false, "Show live progress in a TUI")
	runCmd.Flags().IntVar(&maxIterationsFlag, "max-iterations", 0, "Override the iteration ceiling for this run")
}

func runRun(cmd *cobra.Command, args []string) error {
	taskText := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if maxIterationsFlag > 0 {
		cfg.MaxIterations = maxIterationsFlag
	}

	if err := os.MkdirAll(cfg.WorkspaceDir, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Config:   cfg,
		Provider: provider,
		Registry: tools.BuiltinRegistry(cfg.WorkspaceDir, cfg.WorkflowEndpoint),
	}

	store, err := audit.New(cfg.AuditDBPath)
	if err != nil {
		// The trail is best-effort; the task still runs without it.
		slog.Warn("audit store unavailable", "path", cfg.AuditDBPath, "error", err)
	} else {
		defer store.Close()
		opts.Audit = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchFlag {
		return runWatched(ctx, opts, taskText)
	}

	eng := engine.New(opts)
	rep, err := eng.Run(ctx, taskText)
	if err != nil {
		return err
	}
	fmt.Println(report.Render(rep))
	return exitStatus(rep)
}

// runWatched runs the engine in the background and feeds its events to the
// live TUI; the rendered report still prints once the task ends.
func runWatched(ctx context.Context, opts engine.Options, taskText string) error {
	events := make(chan engine.Event, 64)
	opts.Observer = func(ev engine.Event) { events <- ev }

	type runResult struct {
		rep *models.TaskReport
		err error
	}
	done := make(chan runResult, 1)
	eng := engine.New(opts)
	go func() {
		rep, err := eng.Run(ctx, taskText)
		close(events)
		done <- runResult{rep, err}
	}()

	if err := tui.NewWatch(events).Run(); err != nil {
		slog.Warn("watch view failed", "error", err)
	}
	// Quitting the view early must not stall the engine.
	for range events {
	}

	res := <-done
	if res.err != nil {
		return res.err
	}
	fmt.Println(report.Render(res.rep))
	return exitStatus(res.rep)
}

// exitStatus maps a non-successful task to a command error so the shell
// sees a failing exit code.
func exitStatus(rep *models.TaskReport) error {
	if rep.Status == models.TaskStatusCompleted {
		return nil
	}
	return fmt.Errorf("task %s: %s", rep.Status, rep.Error)
}
