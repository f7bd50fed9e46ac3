package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"taskpilot/internal/models"
	"taskpilot/internal/tools"
)

type fakeTool struct {
	name   string
	invoke func(ctx context.Context, params map[string]any) (*tools.Result, error)
}

func (f fakeTool) Name() string         { return f.name }
func (f fakeTool) Description() string  { return "fake" }
func (f fakeTool) Kind() tools.Kind     { return tools.KindFilesystem }
func (f fakeTool) Schema() tools.Schema { return tools.Schema{} }
func (f fakeTool) Invoke(ctx context.Context, params map[string]any) (*tools.Result, error) {
	return f.invoke(ctx, params)
}

func registryWith(t *testing.T, ft fakeTool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	if err := r.Register(ft); err != nil {
		t.Fatal(err)
	}
	return r
}

func approved(params map[string]any) models.SandboxDecision {
	return models.SandboxDecision{Allowed: true, ClampedParams: params}
}

func TestDispatchSuccess(t *testing.T) {
	r := registryWith(t, fakeTool{
		name: "ok_tool",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			return &tools.Result{Output: "done"}, nil
		},
	})
	d := New(r, 0, 0)

	out := d.Dispatch(context.Background(), "ok_tool", approved(nil))
	if !out.Success {
		t.Fatalf("Expected success, got %+v", out)
	}
	if out.Output != "done" {
		t.Errorf("Expected 'done', got %q", out.Output)
	}
}

func TestDispatchDeniedNeverInvokes(t *testing.T) {
	called := false
	r := registryWith(t, fakeTool{
		name: "side_effect",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			called = true
			return &tools.Result{}, nil
		},
	})
	d := New(r, 0, 0)

	out := d.Dispatch(context.Background(), "side_effect", models.SandboxDecision{
		Allowed: false,
		Reason:  "path outside sandbox",
	})
	if called {
		t.Error("Denied decision must not invoke the tool")
	}
	if out.Success || out.ErrorKind != models.ErrorKindPolicyDenial {
		t.Errorf("Expected denial outcome, got %+v", out)
	}
	if out.Error != "path outside sandbox" {
		t.Errorf("Denial reason not carried: %q", out.Error)
	}
}

func TestDispatchToolFailure(t *testing.T) {
	r := registryWith(t, fakeTool{
		name: "failing",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			return nil, errors.New("disk on fire")
		},
	})
	d := New(r, 0, 0)

	out := d.Dispatch(context.Background(), "failing", approved(nil))
	if out.Success {
		t.Fatal("Expected failure outcome")
	}
	if out.ErrorKind != models.ErrorKindToolFailure {
		t.Errorf("Expected tool_failure kind, got %s", out.ErrorKind)
	}
	if !strings.Contains(out.Error, "disk on fire") {
		t.Errorf("Tool error not captured: %q", out.Error)
	}
}

func TestDispatchTimeout(t *testing.T) {
	r := registryWith(t, fakeTool{
		name: "slow",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(10 * time.Second):
				return &tools.Result{Output: "too late"}, nil
			}
		},
	})
	d := New(r, 0, 50*time.Millisecond)

	start := time.Now()
	out := d.Dispatch(context.Background(), "slow", approved(nil))
	if out.Success {
		t.Fatal("Expected timeout outcome")
	}
	if out.ErrorKind != models.ErrorKindTimeout {
		t.Errorf("Expected timeout kind, got %s", out.ErrorKind)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Dispatch did not cancel promptly")
	}
}

func TestDispatchClampedTimeoutParam(t *testing.T) {
	var deadlineSeen time.Duration
	r := registryWith(t, fakeTool{
		name: "timed",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			if dl, ok := ctx.Deadline(); ok {
				deadlineSeen = time.Until(dl)
			}
			return &tools.Result{Output: "ok"}, nil
		},
	})
	d := New(r, 0, time.Hour)

	out := d.Dispatch(context.Background(), "timed", approved(map[string]any{"timeout": 2}))
	if !out.Success {
		t.Fatalf("Expected success, got %+v", out)
	}
	if deadlineSeen <= 0 || deadlineSeen > 3*time.Second {
		t.Errorf("Expected ~2s deadline from clamped param, saw %v", deadlineSeen)
	}
}

func TestDispatchPanicContained(t *testing.T) {
	r := registryWith(t, fakeTool{
		name: "panicky",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			panic("boom")
		},
	})
	d := New(r, 0, 0)

	out := d.Dispatch(context.Background(), "panicky", approved(nil))
	if out.Success {
		t.Fatal("Expected failure outcome from panic")
	}
	if !strings.Contains(out.Error, "boom") {
		t.Errorf("Panic message not captured: %q", out.Error)
	}
}

func TestDispatchTruncation(t *testing.T) {
	big := strings.Repeat("x", 1000)
	r := registryWith(t, fakeTool{
		name: "chatty",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			return &tools.Result{Output: big}, nil
		},
	})
	d := New(r, 100, 0)

	out := d.Dispatch(context.Background(), "chatty", approved(nil))
	if !out.Truncated {
		t.Error("Expected truncation flag")
	}
	if len(out.Output) != 100 {
		t.Errorf("Expected 100 bytes kept, got %d", len(out.Output))
	}
}

func TestDispatchTruncationKeepsRunesWhole(t *testing.T) {
	// 3-byte runes with a 100-byte limit: the cut would land mid-rune.
	big := strings.Repeat("読", 400)
	r := registryWith(t, fakeTool{
		name: "multibyte",
		invoke: func(ctx context.Context, params map[string]any) (*tools.Result, error) {
			return &tools.Result{Output: big}, nil
		},
	})
	d := New(r, 100, 0)

	out := d.Dispatch(context.Background(), "multibyte", approved(nil))
	if !out.Truncated {
		t.Fatal("Expected truncation flag")
	}
	if len(out.Output) > 100 {
		t.Errorf("Output exceeds the byte ceiling: %d", len(out.Output))
	}
	if !utf8.ValidString(out.Output) {
		t.Error("Truncated output is not valid UTF-8")
	}
}

func TestDispatchUnknownToolIsDenial(t *testing.T) {
	d := New(tools.NewRegistry(), 0, 0)
	out := d.Dispatch(context.Background(), "ghost", approved(nil))
	if out.Success || out.ErrorKind != models.ErrorKindPolicyDenial {
		t.Errorf("Expected denial outcome, got %+v", out)
	}
}
