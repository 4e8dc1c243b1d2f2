// Package env has helpers for the environment handed to the agent commands.
package env

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/slok/qchat/internal/model"
)

var keyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses `KEY=VALUE` or `KEY` specs, a bare key takes the value
// of the current process. Later specs override earlier ones.
func ParseSpecs(specs []string) (map[string]string, error) {
	vars := make(map[string]string, len(specs))

	for _, spec := range specs {
		key, value, hasValue := strings.Cut(spec, "=")
		if !keyRegexp.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable spec %q: %w", spec, model.ErrNotValid)
		}

		if !hasValue {
			v, ok := os.LookupEnv(key)
			if !ok {
				return nil, fmt.Errorf("environment variable %q is not set: %w", key, model.ErrNotValid)
			}
			value = v
		}

		vars[key] = value
	}

	return vars, nil
}

// MergeMaps returns a new map with override values taking precedence.
func MergeMaps(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	return merged
}

// Environ returns base plus vars in `KEY=VALUE` form. Vars are sorted by key
// and appended after base so they win over duplicated keys.
func Environ(base []string, vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(base)+len(keys))
	environ = append(environ, base...)
	for _, k := range keys {
		environ = append(environ, k+"="+vars[k])
	}

	return environ
}
