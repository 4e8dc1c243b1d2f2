package qchat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/qchat/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "qchat"
	}

	// go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("QCHAT_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("qchat binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "QCHAT_INTEGRATION"
		envBinary     = "QCHAT_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{Binary: os.Getenv(envBinary)}
	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Env is the environment of a test, every test gets its own files.
type Env struct {
	DBPath     string
	ConfigPath string
}

// NewEnv creates an isolated environment with the given YAML configuration.
func NewEnv(t *testing.T, configYAML string) Env {
	t.Helper()

	dir := t.TempDir()
	e := Env{
		DBPath:     filepath.Join(dir, "qchat.db"),
		ConfigPath: filepath.Join(dir, "config.yaml"),
	}
	if err := os.WriteFile(e.ConfigPath, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("could not write config: %s", err)
	}

	return e
}

func (e Env) vars() testutils.Vars {
	return testutils.Vars{
		"DB_PATH": e.DBPath,
		"CONFIG":  e.ConfigPath,
	}
}

// RunRun executes `qchat run` with the request words.
func RunRun(ctx context.Context, config Config, env Env, args ...string) (testutils.Result, error) {
	return testutils.RunQChat(ctx, config.Binary, env.vars(), append([]string{"run"}, args...)...)
}

// RunHistory executes `qchat history`.
func RunHistory(ctx context.Context, config Config, env Env, args ...string) (testutils.Result, error) {
	return testutils.RunQChat(ctx, config.Binary, env.vars(), append([]string{"history"}, args...)...)
}
