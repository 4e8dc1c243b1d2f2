package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/qchat/internal/model"
)

// Engine types.
const (
	EngineTypeFake   = "fake"
	EngineTypeOpenAI = "openai"
	EngineTypeExec   = "exec"
)

const (
	DefaultTickPeriod   = 50 * time.Millisecond
	DefaultStallAfter   = 2 * time.Minute
	DefaultFakeDelay    = 1500 * time.Millisecond
	DefaultOpenAIKeyEnv = "OPENAI_API_KEY"
)

// Config is the application configuration.
type Config struct {
	Engine  Engine  `yaml:"engine"`
	UI      UI      `yaml:"ui"`
	Archive Archive `yaml:"archive"`
}

// Engine selects and configures the task engine.
type Engine struct {
	Type   string       `yaml:"type"`
	Fake   FakeEngine   `yaml:"fake"`
	OpenAI OpenAIEngine `yaml:"openai"`
	Exec   ExecEngine   `yaml:"exec"`
}

type FakeEngine struct {
	Delay      time.Duration `yaml:"delay"`
	FailPrefix string        `yaml:"fail_prefix"`
}

type OpenAIEngine struct {
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ExecEngine struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
}

// UI configures the interactive side.
type UI struct {
	TickPeriod time.Duration `yaml:"tick_period"`
	StallAfter time.Duration `yaml:"stall_after"`
}

// Archive configures the transcript archive.
type Archive struct {
	Enabled *bool `yaml:"enabled"`
}

// ArchiveEnabled returns if the transcript archive is enabled, it's enabled by default.
func (c Config) ArchiveEnabled() bool {
	return c.Archive.Enabled == nil || *c.Archive.Enabled
}

// Default returns the default configuration.
func Default() Config {
	cfg := Config{}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.Engine.Type == "" {
		c.Engine.Type = EngineTypeFake
	}
	if c.Engine.Fake.Delay == 0 {
		c.Engine.Fake.Delay = DefaultFakeDelay
	}
	if c.Engine.OpenAI.APIKeyEnv == "" {
		c.Engine.OpenAI.APIKeyEnv = DefaultOpenAIKeyEnv
	}
	if c.UI.TickPeriod == 0 {
		c.UI.TickPeriod = DefaultTickPeriod
	}
	if c.UI.StallAfter == 0 {
		c.UI.StallAfter = DefaultStallAfter
	}
}

// Validate checks the configuration is correct.
func (c Config) Validate() error {
	switch c.Engine.Type {
	case EngineTypeFake:
		if c.Engine.Fake.Delay < 0 {
			return fmt.Errorf("fake engine delay can't be negative: %w", model.ErrNotValid)
		}
	case EngineTypeOpenAI:
		if c.Engine.OpenAI.Timeout < 0 {
			return fmt.Errorf("openai engine timeout can't be negative: %w", model.ErrNotValid)
		}
	case EngineTypeExec:
		if c.Engine.Exec.Command == "" {
			return fmt.Errorf("exec engine requires a command: %w", model.ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown engine type %q: %w", c.Engine.Type, model.ErrNotValid)
	}

	if c.UI.TickPeriod <= 0 {
		return fmt.Errorf("tick period must be positive: %w", model.ErrNotValid)
	}
	if c.UI.StallAfter < 0 {
		return fmt.Errorf("stall warning can't be negative: %w", model.ErrNotValid)
	}

	return nil
}

// YAMLLoader loads the application configuration from YAML files.
type YAMLLoader struct {
	fs fs.FS
}

// NewYAMLLoader creates a new YAML config loader.
func NewYAMLLoader(filesystem fs.FS) *YAMLLoader {
	return &YAMLLoader{fs: filesystem}
}

// Load loads the configuration file, missing values are set to their defaults.
func (l *YAMLLoader) Load(ctx context.Context, path string) (Config, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Config{}, ctx.Err()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing YAML: %w", err)
	}
	cfg.defaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
