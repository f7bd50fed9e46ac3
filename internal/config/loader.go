package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the default
// config file location.
const EnvConfigPath = "TASKPILOT_CONFIG"

// Load reads configuration from the given path (or the default search
// locations when path is empty) and applies environment overrides.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = searchPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	loadFromEnv(cfg)

	if cfg.AuditDBPath == "" {
		cfg.AuditDBPath = defaultAuditPath()
	}
	return cfg, nil
}

// searchPath returns the first configured location: $TASKPILOT_CONFIG, then
// ~/.taskpilot/config.yaml.
func searchPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".taskpilot", "config.yaml")
}

func defaultAuditPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskpilot-audit.db"
	}
	return filepath.Join(home, ".taskpilot", "audit.db")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// loadFromEnv applies environment overrides. API key variables also pick the
// matching provider and a sensible model unless the file already chose one.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKPILOT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIterations = n
		}
	}
	if v := os.Getenv("TASKPILOT_WORKSPACE"); v != "" {
		cfg.WorkspaceDir = v
	}
	if v := os.Getenv("TASKPILOT_WORKFLOW_ENDPOINT"); v != "" {
		cfg.WorkflowEndpoint = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	// Provider auto-detection from API keys, strongest match first.
	type keyDefault struct {
		env, provider, model string
	}
	providerChosen := os.Getenv("LLM_PROVIDER") != "" || cfg.LLM.Provider != Default().LLM.Provider
	for _, kd := range []keyDefault{
		{"OPENAI_API_KEY", "openai", "gpt-4o-mini"},
		{"ANTHROPIC_API_KEY", "anthropic", "claude-3-5-sonnet-latest"},
		{"GOOGLE_API_KEY", "google", "gemini-1.5-flash"},
	} {
		key := os.Getenv(kd.env)
		if key == "" {
			continue
		}
		if !providerChosen {
			cfg.LLM.Provider = kd.provider
			if os.Getenv("LLM_MODEL") == "" {
				cfg.LLM.Model = kd.model
			}
			providerChosen = true
		}
		// Every key is checked against the chosen provider, even keys for
		// providers listed after it.
		if cfg.LLM.Provider == kd.provider {
			cfg.LLM.APIKey = key
		}
	}
}

// Save writes the configuration to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
