//go:build !windows

package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecuteCommand(t *testing.T) {
	res, err := ExecuteCommand{WorkDir: t.TempDir()}.Invoke(context.Background(), map[string]any{
		"command": "echo hello",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("Expected 'hello', got %q", res.Output)
	}
	if res.Data["exit_code"] != 0 {
		t.Errorf("Expected exit code 0, got %v", res.Data["exit_code"])
	}
}

func TestExecuteCommandNonZeroExit(t *testing.T) {
	_, err := ExecuteCommand{WorkDir: t.TempDir()}.Invoke(context.Background(), map[string]any{
		"command": "exit 3",
	})
	if err == nil {
		t.Fatal("Expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "code 3") {
		t.Errorf("Expected exit code in error, got %v", err)
	}
}

func TestExecuteCommandEmpty(t *testing.T) {
	_, err := ExecuteCommand{}.Invoke(context.Background(), map[string]any{"command": "   "})
	if err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestExecuteCommandEnv(t *testing.T) {
	res, err := ExecuteCommand{WorkDir: t.TempDir()}.Invoke(context.Background(), map[string]any{
		"command": "echo $TP_TEST_VAR",
		"env":     map[string]any{"TP_TEST_VAR": "injected"},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if strings.TrimSpace(res.Output) != "injected" {
		t.Errorf("Expected injected env var, got %q", res.Output)
	}
}

func TestExecuteCommandCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ExecuteCommand{WorkDir: t.TempDir()}.Invoke(ctx, map[string]any{
		"command": "sleep 10",
	})
	if err == nil {
		t.Fatal("Expected error when the context deadline fires")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Cancellation took too long: %v", elapsed)
	}
}
