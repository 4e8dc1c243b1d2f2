package testutils

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// envPrefix is the prefix of every variable qchat reads, all its flags get one.
const envPrefix = "QCHAT_"

// Vars are qchat environment variables by name, names without the QCHAT_ prefix
// get it added.
type Vars map[string]string

// Result is the outcome of a qchat execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// RunQChat executes the qchat binary with the given arguments, arguments are
// passed as they are so requests can contain spaces.
//
// The inherited environment is kept except the QCHAT_ variables, a developer
// shell with QCHAT_DEBUG or QCHAT_DB_PATH set would otherwise leak into the
// executions. Logs are disabled unless vars set NO_LOG explicitly.
//
// A non zero exit is returned as an error together with the result.
func RunQChat(ctx context.Context, binary string, vars Vars, args ...string) (Result, error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Env = Environ(os.Environ(), vars)

	err := cmd.Run()
	res := Result{
		Stdout: outData.Bytes(),
		Stderr: errData.Bytes(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}

	return res, err
}

// Environ returns the environment of a qchat execution from a base one.
func Environ(base []string, vars Vars) []string {
	env := make([]string, 0, len(base)+len(vars)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, envPrefix) {
			continue
		}
		env = append(env, kv)
	}

	qchat := map[string]string{envPrefix + "NO_LOG": "true"}
	for k, v := range vars {
		if !strings.HasPrefix(k, envPrefix) {
			k = envPrefix + k
		}
		qchat[k] = v
	}

	keys := make([]string, 0, len(qchat))
	for k := range qchat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+qchat[k])
	}

	return env
}
