package engine

import (
	"fmt"
	"os"

	"github.com/slok/qchat/internal/config"
	"github.com/slok/qchat/internal/engine/exec"
	"github.com/slok/qchat/internal/engine/fake"
	"github.com/slok/qchat/internal/engine/openai"
	"github.com/slok/qchat/internal/log"
)

// New returns the engine selected by the configuration.
func New(cfg config.Engine, logger log.Logger) (Engine, error) {
	switch cfg.Type {
	case config.EngineTypeFake, "":
		return fake.NewEngine(fake.EngineConfig{
			Delay:      cfg.Fake.Delay,
			FailPrefix: cfg.Fake.FailPrefix,
			Logger:     logger,
		})
	case config.EngineTypeOpenAI:
		apiKey := os.Getenv(cfg.OpenAI.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("openai engine needs an API key in $%s", cfg.OpenAI.APIKeyEnv)
		}
		return openai.NewEngine(openai.EngineConfig{
			APIKey:       apiKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.OpenAI.SystemPrompt,
			Timeout:      cfg.OpenAI.Timeout,
			Logger:       logger,
		})
	case config.EngineTypeExec:
		return exec.NewEngine(exec.EngineConfig{
			Command: cfg.Exec.Command,
			Args:    cfg.Exec.Args,
			Dir:     cfg.Exec.Dir,
			Env:     cfg.Exec.Env,
			Logger:  logger,
		})
	}

	return nil, fmt.Errorf("unknown engine type %q", cfg.Type)
}
