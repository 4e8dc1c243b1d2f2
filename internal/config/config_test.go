package config_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/qchat/internal/config"
)

func TestYAMLLoaderLoad(t *testing.T) {
	tests := map[string]struct {
		data   string
		expCfg func() config.Config
		expErr bool
	}{
		"An empty file should return the defaults.": {
			data:   "",
			expCfg: config.Default,
		},

		"A full file should be loaded.": {
			data: `
engine:
  type: openai
  openai:
    model: gpt-4o
    base_url: http://localhost:8080/v1
    api_key_env: MY_KEY
    timeout: 30s
ui:
  tick_period: 100ms
  stall_after: 1m
archive:
  enabled: false
`,
			expCfg: func() config.Config {
				disabled := false
				cfg := config.Default()
				cfg.Engine.Type = config.EngineTypeOpenAI
				cfg.Engine.OpenAI = config.OpenAIEngine{
					Model:     "gpt-4o",
					BaseURL:   "http://localhost:8080/v1",
					APIKeyEnv: "MY_KEY",
					Timeout:   30 * time.Second,
				}
				cfg.UI.TickPeriod = 100 * time.Millisecond
				cfg.UI.StallAfter = time.Minute
				cfg.Archive.Enabled = &disabled
				return cfg
			},
		},

		"An exec engine should be loaded.": {
			data: `
engine:
  type: exec
  exec:
    command: my-agent
    args: ["--quiet"]
    env:
      FOO: bar
`,
			expCfg: func() config.Config {
				cfg := config.Default()
				cfg.Engine.Type = config.EngineTypeExec
				cfg.Engine.Exec = config.ExecEngine{
					Command: "my-agent",
					Args:    []string{"--quiet"},
					Env:     map[string]string{"FOO": "bar"},
				}
				return cfg
			},
		},

		"An exec engine without command should fail.": {
			data: `
engine:
  type: exec
`,
			expErr: true,
		},

		"An unknown engine should fail.": {
			data: `
engine:
  type: quantum
`,
			expErr: true,
		},

		"An invalid duration should fail.": {
			data: `
ui:
  tick_period: fast
`,
			expErr: true,
		},

		"Invalid YAML should fail.": {
			data:   "engine: [",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			fsys := fstest.MapFS{"qchat.yaml": &fstest.MapFile{Data: []byte(test.data)}}
			loader := config.NewYAMLLoader(fsys)

			cfg, err := loader.Load(context.Background(), "qchat.yaml")

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expCfg(), cfg)
		})
	}
}

func TestYAMLLoaderMissingFile(t *testing.T) {
	loader := config.NewYAMLLoader(fstest.MapFS{})
	_, err := loader.Load(context.Background(), "missing.yaml")
	assert.Error(t, err)
}

func TestConfigArchiveEnabled(t *testing.T) {
	enabled, disabled := true, false

	assert.True(t, config.Config{}.ArchiveEnabled())
	assert.True(t, config.Config{Archive: config.Archive{Enabled: &enabled}}.ArchiveEnabled())
	assert.False(t, config.Config{Archive: config.Archive{Enabled: &disabled}}.ArchiveEnabled())
}
