package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikewrather/agent-arena/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !strings.HasSuffix(cfg.DatabasePath(), "genflow.db") {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath())
	}
	if !strings.HasSuffix(cfg.RunsDir(), filepath.Join("genflow", "runs")) {
		t.Fatalf("unexpected runs dir: %s", cfg.RunsDir())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
global:
  data_dir: ` + dir + `
logging:
  level: debug
  format: json
engine:
  default_agent: claude
agents:
  claude:
    kind: claude
    command: claude -p "$GENFLOW_PROMPT_CONTENT"
    prompt_mode: env
    timeout_seconds: 300
  codex:
    kind: codex
    command: codex exec -
    prompt_mode: stdin
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging config not loaded: %+v", cfg.Logging)
	}
	if cfg.Global.DataDir != dir {
		t.Fatalf("data_dir not loaded: %s", cfg.Global.DataDir)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("expected 2 agent profiles, got %d", len(cfg.Agents))
	}

	profiles := cfg.Profiles()
	claude := profiles["claude"]
	if claude.Name != "claude" {
		t.Fatalf("profile name should be filled from map key: %+v", claude)
	}
	if claude.Kind != models.AgentKindClaude || claude.TimeoutSeconds != 300 {
		t.Fatalf("profile not loaded: %+v", claude)
	}
	if profiles["codex"].PromptMode != models.PromptModeStdin {
		t.Fatalf("prompt mode not loaded: %+v", profiles["codex"])
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GENFLOW_LOGGING_LEVEL", "warn")

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env override not applied: %s", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero connections", func(c *Config) { c.Database.MaxConnections = 0 }},
		{"empty data dir", func(c *Config) { c.Global.DataDir = "" }},
		{"unknown default agent", func(c *Config) { c.Engine.DefaultAgent = "ghost" }},
		{"invalid profile", func(c *Config) {
			c.Agents = map[string]models.AgentProfile{"x": {Name: "x"}}
		}},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := expandTilde("~/runs"); got != filepath.Join(home, "runs") {
		t.Fatalf("expandTilde(~/runs) = %s", got)
	}
	if got := expandTilde("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path should pass through: %s", got)
	}
	if got := expandTilde(""); got != "" {
		t.Fatalf("empty path should pass through: %s", got)
	}
}
