package sandbox

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
	"taskpilot/internal/tools"
)

func testPolicy(t *testing.T, mutate func(*config.SandboxConfig)) (*Policy, string) {
	t.Helper()
	workspace := t.TempDir()

	cfg := config.SandboxConfig{
		AllowedCommands:     []string{"git", "python"},
		AllowedDirectories:  []string{workspace},
		MaxCommandTimeout:   300,
		WebSearchEnabled:    true,
		HTTPRequestsEnabled: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	reg := tools.BuiltinRegistry(workspace, "http://localhost:5678")
	return New(reg, cfg, workspace), workspace
}

func TestUnknownToolAlwaysDenied(t *testing.T) {
	p, _ := testPolicy(t, nil)

	for _, name := range []string{"", "launch_missiles", "Read_File", "read_file2"} {
		d := p.Evaluate(models.ActionProposal{ToolName: name})
		if d.Allowed {
			t.Errorf("Tool %q should be denied", name)
		}
		if !strings.Contains(d.Reason, ReasonUnknownTool) {
			t.Errorf("Expected unknown tool reason, got %q", d.Reason)
		}
	}
}

func TestCommandAllowlist(t *testing.T) {
	p, _ := testPolicy(t, nil)

	tests := []struct {
		command string
		allowed bool
	}{
		{"git status", true},
		{"python script.py", true},
		{"rm -rf /", false},
		{"GIT status", false}, // case-sensitive
		{"curl http://example.com", false},
	}

	for _, tt := range tests {
		d := p.Evaluate(models.ActionProposal{
			ToolName: "execute_command",
			Params:   map[string]any{"command": tt.command},
		})
		if d.Allowed != tt.allowed {
			t.Errorf("command %q: allowed=%v, want %v (reason %q)", tt.command, d.Allowed, tt.allowed, d.Reason)
		}
	}
}

func TestCommandTimeoutClamped(t *testing.T) {
	p, _ := testPolicy(t, nil)

	d := p.Evaluate(models.ActionProposal{
		ToolName: "execute_command",
		Params:   map[string]any{"command": "git status", "timeout": 600},
	})
	if !d.Allowed {
		t.Fatalf("Expected allowed, got denial: %s", d.Reason)
	}
	if d.ClampedParams["timeout"] != 300 {
		t.Errorf("Expected timeout clamped to 300, got %v", d.ClampedParams["timeout"])
	}

	// Missing timeout gets the ceiling so dispatch always has a bound.
	d = p.Evaluate(models.ActionProposal{
		ToolName: "execute_command",
		Params:   map[string]any{"command": "git status"},
	})
	if d.ClampedParams["timeout"] != 300 {
		t.Errorf("Expected default timeout 300, got %v", d.ClampedParams["timeout"])
	}
}

func TestPathOutsideSandbox(t *testing.T) {
	p, _ := testPolicy(t, nil)

	d := p.Evaluate(models.ActionProposal{
		ToolName: "read_file",
		Params:   map[string]any{"path": "/etc/passwd"},
	})
	if d.Allowed {
		t.Fatal("Reading /etc/passwd must be denied")
	}
	if d.Reason != ReasonPathOutside {
		t.Errorf("Expected %q, got %q", ReasonPathOutside, d.Reason)
	}
}

func TestPathInsideSandbox(t *testing.T) {
	p, workspace := testPolicy(t, nil)

	d := p.Evaluate(models.ActionProposal{
		ToolName: "write_file",
		Params:   map[string]any{"path": "notes/plan.md", "content": "x"},
	})
	if !d.Allowed {
		t.Fatalf("Relative path inside workspace should be allowed, got %q", d.Reason)
	}
	got, _ := d.ClampedParams["path"].(string)
	if !strings.HasPrefix(got, resolved(t, workspace)) {
		t.Errorf("Expected path anchored in workspace, got %q", got)
	}
}

func TestPathPrefixNeedsSeparatorBoundary(t *testing.T) {
	base := t.TempDir()
	workspace := filepath.Join(base, "work")
	sibling := filepath.Join(base, "work2")
	os.MkdirAll(workspace, 0755)
	os.MkdirAll(sibling, 0755)

	cfg := config.SandboxConfig{
		AllowedDirectories: []string{workspace},
		MaxCommandTimeout:  300,
	}
	p := New(tools.BuiltinRegistry(workspace, ""), cfg, workspace)

	d := p.Evaluate(models.ActionProposal{
		ToolName: "read_file",
		Params:   map[string]any{"path": filepath.Join(sibling, "f.txt")},
	})
	if d.Allowed {
		t.Error("Sibling directory sharing a name prefix must be denied")
	}
}

func TestSymlinkEscapeDenied(t *testing.T) {
	p, workspace := testPolicy(t, nil)

	outside := t.TempDir()
	os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0644)

	link := filepath.Join(workspace, "leak")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	d := p.Evaluate(models.ActionProposal{
		ToolName: "read_file",
		Params:   map[string]any{"path": filepath.Join(link, "secret.txt")},
	})
	if d.Allowed {
		t.Error("Symlink escaping the sandbox must deny")
	}
	if d.Reason != ReasonPathOutside {
		t.Errorf("Expected %q, got %q", ReasonPathOutside, d.Reason)
	}
}

func TestNetworkCapabilityFlags(t *testing.T) {
	p, _ := testPolicy(t, func(c *config.SandboxConfig) {
		c.HTTPRequestsEnabled = false
		c.WebSearchEnabled = false
	})

	d := p.Evaluate(models.ActionProposal{
		ToolName: "http_request",
		Params:   map[string]any{"url": "https://example.com"},
	})
	if d.Allowed || d.Reason != ReasonHTTPDisabled {
		t.Errorf("http_request should deny with %q, got allowed=%v reason=%q", ReasonHTTPDisabled, d.Allowed, d.Reason)
	}

	d = p.Evaluate(models.ActionProposal{
		ToolName: "trigger_workflow",
		Params:   map[string]any{"webhook_path": "deploy"},
	})
	if d.Allowed {
		t.Error("trigger_workflow should be gated by the http flag")
	}

	d = p.Evaluate(models.ActionProposal{
		ToolName: "web_search",
		Params:   map[string]any{"query": "golang"},
	})
	if d.Allowed || d.Reason != ReasonSearchDisabled {
		t.Errorf("web_search should deny with %q, got allowed=%v reason=%q", ReasonSearchDisabled, d.Allowed, d.Reason)
	}
}

func TestParamValidation(t *testing.T) {
	p, _ := testPolicy(t, nil)

	// Missing required parameter
	d := p.Evaluate(models.ActionProposal{ToolName: "read_file", Params: map[string]any{}})
	if d.Allowed {
		t.Error("Missing required param should deny")
	}

	// Wrong type is rejected, not coerced
	d = p.Evaluate(models.ActionProposal{
		ToolName: "read_file",
		Params:   map[string]any{"path": 42},
	})
	if d.Allowed {
		t.Error("Wrong param type should deny")
	}

	// Undeclared params are dropped from the clamped set
	d = p.Evaluate(models.ActionProposal{
		ToolName: "web_search",
		Params:   map[string]any{"query": "go", "shell": "/bin/sh"},
	})
	if !d.Allowed {
		t.Fatalf("Expected allowed, got %q", d.Reason)
	}
	if _, leaked := d.ClampedParams["shell"]; leaked {
		t.Error("Undeclared parameter leaked through the policy")
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	p, _ := testPolicy(t, nil)

	proposal := models.ActionProposal{
		ToolName: "execute_command",
		Params:   map[string]any{"command": "git log", "timeout": 900},
	}
	first := p.Evaluate(proposal)
	second := p.Evaluate(proposal)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate is not idempotent:\n%+v\n%+v", first, second)
	}
}

func resolved(t *testing.T, path string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return r
}
