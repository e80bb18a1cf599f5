package loader

import (
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "TOOLVM_")
	mapping map[string]string // Env var -> config path
}

// NewEnvLoader creates a loader for variables starting with prefix. The
// prefix should include the trailing underscore (e.g., "TOOLVM_").
// Mapped variables set the given dotted config path; other prefixed
// variables set the lower-cased remainder of their name.
func NewEnvLoader(prefix string, mapping map[string]string) *EnvLoader {
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &EnvLoader{prefix: prefix, mapping: mapping}
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := os.LookupEnv(env); ok {
			setByPath(config, path, parseValue(val))
		}
	}

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, l.prefix))
		if key == "" {
			continue
		}
		config[key] = parseValue(value)
	}

	return config, nil
}

// parseValue converts booleans and integers; everything else stays a string.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
