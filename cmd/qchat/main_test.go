package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeConfig = `
engine:
  type: fake
  fake:
    delay: 1ms
    fail_prefix: bad
ui:
  tick_period: 1ms
`

func runApp(t *testing.T, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	base := []string{"qchat", "--no-log",
		"--db-path", filepath.Join(dir, "qchat.db"),
		"--config", filepath.Join(dir, "config.yaml"),
	}
	err = Run(context.Background(), append(base, args...), strings.NewReader(""), &outBuf, &errBuf)

	return outBuf.String(), errBuf.String(), err
}

func newWorkDir(t *testing.T, cfg string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0644))
	return dir
}

func TestRunCommand(t *testing.T) {
	tests := map[string]struct {
		args   []string
		expOut string
		expErr bool
	}{
		"A request should print the reply.": {
			args:   []string{"run", "hello"},
			expOut: "Done: hello\n",
		},

		"Multiple words should be a single request.": {
			args:   []string{"run", "hello", "there"},
			expOut: "Done: hello there\n",
		},

		"A failed request should print the failure and fail.": {
			args:   []string{"run", "bad", "request"},
			expOut: "Task failed: fake engine refused \"bad request\"\n",
			expErr: true,
		},

		"Verbose mode should print the whole conversation.": {
			args:   []string{"run", "-v", "hello"},
			expOut: "You: hello\nAgent: Done: hello\n",
		},

		"An empty request should fail.": {
			args:   []string{"run", "  "},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newWorkDir(t, fakeConfig)

			stdout, _, err := runApp(t, dir, test.args...)

			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, test.expOut, stdout)
		})
	}
}

func TestRunCommandRepeated(t *testing.T) {
	dir := newWorkDir(t, fakeConfig)

	// Every run submits as soon as its interactive thread starts.
	for i := 0; i < 100; i++ {
		stdout, _, err := runApp(t, dir, "--no-archive", "run", "hello")
		require.NoError(t, err, "run %d", i)
		require.Equal(t, "Done: hello\n", stdout, "run %d", i)
	}
}

func TestRunCommandExecEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	cfg := `
engine:
  type: exec
  exec:
    command: sh
    args: ["-c", 'echo "$GREETING, $(cat)"']
`
	dir := newWorkDir(t, cfg)

	stdout, _, err := runApp(t, dir, "--exec-env", "GREETING=hi", "--no-archive", "run", "there")
	require.NoError(t, err)
	assert.Equal(t, "hi, there\n", stdout)
}

func TestHistoryCommand(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := newWorkDir(t, fakeConfig)

	stdout, _, err := runApp(t, dir, "history")
	require.NoError(err)
	assert.Equal("No archived sessions\n", stdout)

	_, _, err = runApp(t, dir, "run", "hello")
	require.NoError(err)
	_, _, err = runApp(t, dir, "--no-archive", "run", "not archived")
	require.NoError(err)

	stdout, _, err = runApp(t, dir, "history", "--format", "json")
	require.NoError(err)
	var sessions []struct {
		ID      string `json:"id"`
		Entries int    `json:"entries"`
	}
	require.NoError(json.Unmarshal([]byte(stdout), &sessions))
	require.Len(sessions, 1)
	assert.Equal(2, sessions[0].Entries)

	stdout, _, err = runApp(t, dir, "history", sessions[0].ID)
	require.NoError(err)
	assert.Contains(stdout, "Session: "+sessions[0].ID)
	assert.Contains(stdout, "You (")
	assert.Contains(stdout, "  hello\n")
	assert.Contains(stdout, "  Done: hello\n")

	_, _, err = runApp(t, dir, "history", "missing")
	assert.Error(err)
}

func TestInvalidCommand(t *testing.T) {
	_, _, err := runApp(t, t.TempDir(), "unknown")
	assert.Error(t, err)
}
