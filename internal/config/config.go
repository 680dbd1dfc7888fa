// Package config handles genflow configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikewrather/agent-arena/internal/models"
)

// Config is the root configuration structure.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings for the run journal
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Engine settings
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Agents maps profile names to agent configurations. Workflow steps
	// reference these by name.
	Agents map[string]models.AgentProfile `yaml:"agents" mapstructure:"agents"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where run directories and the journal live
	// (default: ~/.local/share/genflow).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/genflow).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains journal database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path (default: DataDir/genflow.db).
	Path string `yaml:"path" mapstructure:"path"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`

	// Disabled turns the journal off entirely.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// EngineConfig contains workflow engine settings.
type EngineConfig struct {
	// RunsDir is where per-run directories are created
	// (default: DataDir/runs).
	RunsDir string `yaml:"runs_dir" mapstructure:"runs_dir"`

	// DefaultAgent is the profile used when a step names no agent.
	DefaultAgent string `yaml:"default_agent" mapstructure:"default_agent"`

	// ConstraintsDir is the default constraint definition directory for
	// workflows that don't ship their own.
	ConstraintsDir string `yaml:"constraints_dir" mapstructure:"constraints_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "genflow"),
			ConfigDir: filepath.Join(homeDir, ".config", "genflow"),
		},
		Database: DatabaseConfig{
			Path:           "", // Will be set to DataDir/genflow.db
			MaxConnections: 10,
			BusyTimeoutMs:  5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Engine: EngineConfig{
			RunsDir: "", // Will be set to DataDir/runs
		},
		Agents: map[string]models.AgentProfile{},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Global.DataDir) == "" {
		return fmt.Errorf("global.data_dir is required")
	}
	if strings.TrimSpace(c.Global.ConfigDir) == "" {
		return fmt.Errorf("global.config_dir is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must be zero or greater")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of console, json")
	}

	for name, profile := range c.Agents {
		if profile.Name == "" {
			profile.Name = name
		}
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("agents.%s: %w", name, err)
		}
	}

	if c.Engine.DefaultAgent != "" {
		if _, ok := c.Agents[c.Engine.DefaultAgent]; !ok {
			return fmt.Errorf("engine.default_agent %q is not a configured agent", c.Engine.DefaultAgent)
		}
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
		c.RunsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full journal database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "genflow.db")
}

// RunsDir returns the directory run directories are created under.
func (c *Config) RunsDir() string {
	if c.Engine.RunsDir != "" {
		return c.Engine.RunsDir
	}
	return filepath.Join(c.Global.DataDir, "runs")
}

// Profiles returns the agent profiles with names filled from their map keys.
func (c *Config) Profiles() map[string]models.AgentProfile {
	profiles := make(map[string]models.AgentProfile, len(c.Agents))
	for name, profile := range c.Agents {
		if profile.Name == "" {
			profile.Name = name
		}
		profiles[name] = profile
	}
	return profiles
}
