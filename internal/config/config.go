// Package config defines Taskpilot configuration and its loading rules.
package config

import "time"

// LLMConfig selects and tunes the reasoning backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, google, ollama
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint,omitempty"` // ollama only
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
}

// SandboxConfig holds the allow-lists and ceilings enforced before any tool
// runs. The engine snapshots it at task start; later edits to the config
// file never affect a task already in flight.
type SandboxConfig struct {
	AllowedCommands    []string `yaml:"allowed_commands"`
	AllowedDirectories []string `yaml:"allowed_directories"`
	MaxCommandTimeout  int      `yaml:"max_command_timeout"` // seconds
	WebSearchEnabled   bool     `yaml:"web_search_enabled"`
	HTTPRequestsEnabled bool    `yaml:"http_requests_enabled"`
}

// Config is the root Taskpilot configuration.
type Config struct {
	MaxIterations        int    `yaml:"max_iterations"`
	OverallDeadline      int    `yaml:"overall_deadline"` // seconds, 0 = none
	ContextWindowEntries int    `yaml:"context_window_entries"`
	MaxOutputBytes       int    `yaml:"max_output_bytes"`
	WorkspaceDir         string `yaml:"workspace_dir"`
	AuditDBPath          string `yaml:"audit_db_path"`
	WorkflowEndpoint     string `yaml:"workflow_endpoint"`

	LLM     LLMConfig     `yaml:"llm"`
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxIterations:        100,
		OverallDeadline:      0,
		ContextWindowEntries: 40,
		MaxOutputBytes:       16 * 1024,
		WorkspaceDir:         "./workspace",
		AuditDBPath:          "", // resolved to ~/.taskpilot/audit.db at load
		WorkflowEndpoint:     "http://localhost:5678",
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3.2:3b",
			MaxTokens:   4096,
			Temperature: 0.7,
			MaxRetries:  3,
		},
		Sandbox: SandboxConfig{
			AllowedCommands:     []string{"python", "pip", "git", "docker", "node", "npm", "go"},
			AllowedDirectories:  []string{"./workspace"},
			MaxCommandTimeout:   300,
			WebSearchEnabled:    true,
			HTTPRequestsEnabled: true,
		},
	}
}

// Deadline returns the overall task deadline as a duration, or 0 when no
// deadline is configured.
func (c *Config) Deadline() time.Duration {
	if c.OverallDeadline <= 0 {
		return 0
	}
	return time.Duration(c.OverallDeadline) * time.Second
}

// SnapshotSandbox returns a deep copy of the sandbox section. The copy is
// what a task run holds for its whole lifetime.
func (c *Config) SnapshotSandbox() SandboxConfig {
	s := c.Sandbox
	s.AllowedCommands = append([]string(nil), c.Sandbox.AllowedCommands...)
	s.AllowedDirectories = append([]string(nil), c.Sandbox.AllowedDirectories...)
	return s
}
