package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/utils/env"
)

// EngineConfig is the configuration for the exec engine.
type EngineConfig struct {
	// Command is the agent binary executed for every request.
	Command string
	Args    []string
	// Dir is the working directory of the command, empty uses the current one.
	Dir    string
	Env    map[string]string
	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("command is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Exec"})
	return nil
}

// Engine runs an external agent process per request, the request is written
// on the process stdin and the reply is read from its stdout.
type Engine struct {
	command string
	args    []string
	dir     string
	env     []string
	logger  log.Logger
}

// NewEngine creates a new exec engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		command: cfg.Command,
		args:    cfg.Args,
		dir:     cfg.Dir,
		env:     env.Environ(os.Environ(), cfg.Env),
		logger:  cfg.Logger,
	}, nil
}

// Execute runs the agent process with the command as input.
func (e *Engine) Execute(ctx context.Context, command string) (*model.Result, error) {
	cmd := osexec.CommandContext(ctx, e.command, e.args...)
	cmd.Dir = e.dir
	cmd.Env = e.env
	cmd.Stdin = strings.NewReader(command)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debugf("Running agent command %s", e.command)
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = err.Error()
		}
		return nil, fmt.Errorf("agent command failed: %s", errText)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, fmt.Errorf("agent command returned no output")
	}

	return &model.Result{Text: out}, nil
}
