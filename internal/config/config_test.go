package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxIterations != 100 {
		t.Errorf("Expected max_iterations 100, got %d", cfg.MaxIterations)
	}
	if cfg.Sandbox.MaxCommandTimeout != 300 {
		t.Errorf("Expected max_command_timeout 300, got %d", cfg.Sandbox.MaxCommandTimeout)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Expected default provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.Deadline() != 0 {
		t.Errorf("Expected no deadline by default, got %v", cfg.Deadline())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
max_iterations: 25
overall_deadline: 600
llm:
  provider: anthropic
  model: claude-3-5-sonnet-latest
sandbox:
  allowed_commands: ["git"]
  allowed_directories: ["/tmp/work"]
  max_command_timeout: 60
  web_search_enabled: false
  http_requests_enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxIterations != 25 {
		t.Errorf("Expected 25 iterations, got %d", cfg.MaxIterations)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Expected anthropic provider, got %s", cfg.LLM.Provider)
	}
	if len(cfg.Sandbox.AllowedCommands) != 1 || cfg.Sandbox.AllowedCommands[0] != "git" {
		t.Errorf("Unexpected allowed commands: %v", cfg.Sandbox.AllowedCommands)
	}
	if cfg.Sandbox.WebSearchEnabled {
		t.Error("web_search_enabled should be false")
	}
	if cfg.Deadline().Seconds() != 600 {
		t.Errorf("Expected 600s deadline, got %v", cfg.Deadline())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Missing file should not fail: %v", err)
	}
	if cfg.MaxIterations != 100 {
		t.Errorf("Expected defaults, got max_iterations %d", cfg.MaxIterations)
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("max_iterations: [not an int"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKPILOT_MAX_ITERATIONS", "7")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxIterations != 7 {
		t.Errorf("Expected env override 7, got %d", cfg.MaxIterations)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Expected provider from API key, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected API key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestEnvAPIKeyMatchesConfiguredProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Fatalf("Expected configured provider kept, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-anthropic" {
		t.Errorf("Expected the anthropic key, got %q", cfg.LLM.APIKey)
	}
}

func TestFileProviderNotOverriddenByAPIKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "llm:\n  provider: anthropic\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("File-chosen provider overridden: got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("Mismatched key applied: %q", cfg.LLM.APIKey)
	}
}

func TestSnapshotSandboxIsDeepCopy(t *testing.T) {
	cfg := Default()
	snap := cfg.SnapshotSandbox()

	cfg.Sandbox.AllowedCommands[0] = "mutated"
	cfg.Sandbox.AllowedDirectories[0] = "/elsewhere"

	if snap.AllowedCommands[0] == "mutated" {
		t.Error("Snapshot shares the allowed commands slice")
	}
	if snap.AllowedDirectories[0] == "/elsewhere" {
		t.Error("Snapshot shares the allowed directories slice")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.MaxIterations = 42
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.MaxIterations != 42 {
		t.Errorf("Round trip lost max_iterations: got %d", got.MaxIterations)
	}
}
