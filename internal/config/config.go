// package config handles .ralph.yaml loading and agent definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = ".ralph.yaml"

// AgentKind selects which Subprocess Supervisor adapter backs an agent entry.
type AgentKind string

const (
	AgentKindClaude AgentKind = "claude"
	AgentKindCodex  AgentKind = "codex"
)

// AgentConfig describes one entry in the agent pool.
type AgentConfig struct {
	Name   string    `yaml:"name"`
	Kind   AgentKind `yaml:"kind"`
	Binary string    `yaml:"binary"`
	Model  string    `yaml:"model,omitempty"`
}

// Config represents the .ralph.yaml configuration file.
type Config struct {
	MaxIterations  int           `yaml:"max_iterations"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	TestCmd        string        `yaml:"test_cmd,omitempty"`
	Agents         []AgentConfig `yaml:"agents"`
}

// Default returns a Config with the driver's built-in defaults.
func Default() *Config {
	return &Config{
		MaxIterations:  20,
		TimeoutSeconds: 10800,
		Agents: []AgentConfig{
			{Name: "Claude", Kind: AgentKindClaude, Binary: "claude"},
			{Name: "Codex", Kind: AgentKindCodex, Binary: "codex"},
		},
	}
}

// Validate checks that every agent entry names a supported kind and a binary.
func (c *Config) Validate() error {
	for _, a := range c.Agents {
		if a.Binary == "" {
			return fmt.Errorf("agent %q: binary is required", a.Name)
		}
		switch a.Kind {
		case AgentKindClaude, AgentKindCodex:
		default:
			return fmt.Errorf("agent %q: unknown kind %q", a.Name, a.Kind)
		}
	}
	return nil
}

// FindProjectRoot traverses upward from the current directory looking for .ralph.yaml
// or an existing .ralph directory. Returns the current directory if neither is found,
// since ralph can run in an uninitialised workspace.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	start := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ".ralph")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// Load reads and parses .ralph.yaml from the given project root.
func Load(projectRoot string) (*Config, error) {
	configPath := filepath.Join(projectRoot, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg := Default()
	cfg.Agents = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = Default().MaxIterations
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = Default().Agents
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads .ralph.yaml from the project root, falling back to defaults
// when the file is absent or unparsable.
func LoadOrDefault(projectRoot string) *Config {
	cfg, err := Load(projectRoot)
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes the config to .ralph.yaml in the given project root.
func Save(projectRoot string, cfg *Config) error {
	configPath := filepath.Join(projectRoot, ConfigFileName)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}

	return nil
}

// Exists checks if .ralph.yaml exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// Timeout returns the per-iteration timeout, or nil if disabled (TimeoutSeconds <= 0).
func (c *Config) Timeout() *int {
	if c.TimeoutSeconds <= 0 {
		return nil
	}
	t := c.TimeoutSeconds
	return &t
}
