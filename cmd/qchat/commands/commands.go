package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/qchat/internal/config"
	"github.com/slok/qchat/internal/conventions"
	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/utils/env"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug           bool
	NoLog           bool
	NoColor         bool
	LoggerType      string
	DBPath          string
	ConfigPath      string
	LogFile         string
	ShutdownTimeout time.Duration
	Engine          string
	NoArchive       bool
	ExecEnvSpecs    []string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").Envar("QCHAT_NO_LOG").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable colors.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	dataDir := conventions.DataDir(homedir.HomeDir())
	app.Flag("db-path", "Path to the SQLite transcript archive.").Envar("QCHAT_DB_PATH").Default(conventions.DBPath(dataDir)).StringVar(&c.DBPath)
	app.Flag("config", "Path to the YAML configuration file.").Envar("QCHAT_CONFIG").Default(conventions.ConfigPath(dataDir)).StringVar(&c.ConfigPath)
	app.Flag("log-file", "Log file used while the interactive UI is running.").Default(conventions.LogPath(dataDir)).StringVar(&c.LogFile)
	app.Flag("shutdown-timeout", "Maximum time waiting for the running task to stop on exit.").Default("5s").DurationVar(&c.ShutdownTimeout)
	app.Flag("engine", "Overrides the configured task engine.").EnumVar(&c.Engine, config.EngineTypeFake, config.EngineTypeOpenAI, config.EngineTypeExec)
	app.Flag("no-archive", "Don't archive the conversation.").BoolVar(&c.NoArchive)
	app.Flag("exec-env", "Environment variable for the exec engine (KEY=VALUE or KEY to inherit). Repeatable.").StringsVar(&c.ExecEnvSpecs)

	return c
}

// LoadConfig loads the configuration file and applies the flag overrides.
// A missing configuration file results in the default configuration.
func (c *RootCommand) LoadConfig(ctx context.Context) (config.Config, error) {
	cfg := config.Default()
	if c.ConfigPath != "" {
		loaded, err := config.NewYAMLLoader(os.DirFS(filepath.Dir(c.ConfigPath))).Load(ctx, filepath.Base(c.ConfigPath))
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
			c.logger().Debugf("Config file %s not found, using defaults", c.ConfigPath)
		default:
			return config.Config{}, fmt.Errorf("could not load config %s: %w", c.ConfigPath, err)
		}
	}

	if c.Engine != "" {
		cfg.Engine.Type = c.Engine
	}
	if c.NoArchive {
		disabled := false
		cfg.Archive.Enabled = &disabled
	}
	if len(c.ExecEnvSpecs) > 0 {
		flagEnv, err := env.ParseSpecs(c.ExecEnvSpecs)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid exec environment: %w", err)
		}
		cfg.Engine.Exec.Env = env.MergeMaps(cfg.Engine.Exec.Env, flagEnv)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *RootCommand) logger() log.Logger {
	if c.Logger == nil {
		return log.Noop
	}
	return c.Logger
}
