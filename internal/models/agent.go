package models

import (
	"fmt"
	"strings"
)

// AgentKind identifies the CLI family an agent profile drives. The kind
// decides how model overrides and prompts are passed to the subprocess.
type AgentKind string

const (
	AgentKindClaude  AgentKind = "claude"
	AgentKindCodex   AgentKind = "codex"
	AgentKindGemini  AgentKind = "gemini"
	AgentKindGeneric AgentKind = "generic"
)

// PromptMode selects how the assembled prompt reaches the agent process.
type PromptMode string

const (
	// PromptModeEnv exposes the prompt through an environment variable.
	PromptModeEnv PromptMode = "env"
	// PromptModeStdin pipes the prompt to the process's standard input.
	PromptModeStdin PromptMode = "stdin"
)

// AgentProfile is a named, reusable agent configuration. Workflow steps
// reference profiles by name.
type AgentProfile struct {
	Name           string            `mapstructure:"name" yaml:"name"`
	Kind           AgentKind         `mapstructure:"kind" yaml:"kind"`
	Command        string            `mapstructure:"command" yaml:"command"`
	PromptMode     PromptMode        `mapstructure:"prompt_mode" yaml:"prompt_mode"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	SuppressStderr bool              `mapstructure:"suppress_stderr" yaml:"suppress_stderr"`
	Env            map[string]string `mapstructure:"env" yaml:"env"`
}

// Validate checks the profile for structural problems.
func (p AgentProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("agent profile: name is required")
	}
	if strings.TrimSpace(p.Command) == "" {
		return fmt.Errorf("agent profile %q: command is required", p.Name)
	}
	switch p.Kind {
	case AgentKindClaude, AgentKindCodex, AgentKindGemini, AgentKindGeneric, "":
	default:
		return fmt.Errorf("agent profile %q: unknown kind %q", p.Name, p.Kind)
	}
	switch p.PromptMode {
	case PromptModeEnv, PromptModeStdin, "":
	default:
		return fmt.Errorf("agent profile %q: unknown prompt_mode %q", p.Name, p.PromptMode)
	}
	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("agent profile %q: timeout_seconds must be >= 0", p.Name)
	}
	return nil
}

// ModelArgs returns the CLI arguments that select a model override for the
// profile's kind. Generic agents receive no model flag.
func (p AgentProfile) ModelArgs(model string) []string {
	if model == "" {
		return nil
	}
	switch p.Kind {
	case AgentKindClaude:
		return []string{"--model", model}
	case AgentKindCodex:
		return []string{"-m", model}
	case AgentKindGemini:
		return []string{"-m", model}
	default:
		return nil
	}
}
