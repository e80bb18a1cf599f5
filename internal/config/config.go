// Package config loads toolvm settings.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. Built-in defaults (XDG directories)
//  2. The TOML settings file
//  3. TOOLVM_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dshills/toolvm/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TOOLVM_"

// envMapping maps environment variables to setting paths.
var envMapping = map[string]string{
	"TOOLVM_DISABLE_TOOLS": "disable_tools",
	"TOOLVM_LOG_LEVEL":     "log_level",
	"TOOLVM_LOG_FORMAT":    "log_format",
	"TOOLVM_VFOX_TIMEOUT":  "vfox_timeout",
	"TOOLVM_PLUGINS_DIR":   "dirs.plugins",
	"TOOLVM_CACHE_DIR":     "dirs.cache",
	"TOOLVM_DOWNLOADS_DIR": "dirs.downloads",
	"TOOLVM_INSTALLS_DIR":  "dirs.installs",
	"TOOLVM_TMP_DIR":       "dirs.temp",
}

// Dirs are the directory roots plugins operate in.
type Dirs struct {
	Plugins   string
	Cache     string
	Downloads string
	Installs  string
	Temp      string
}

// Settings is the resolved process configuration.
type Settings struct {
	// DisableTools lists plugin names excluded from the catalog.
	DisableTools []string
	LogLevel     string
	LogFormat    string
	// VfoxTimeout bounds a single plugin hook evaluation.
	VfoxTimeout time.Duration
	Dirs        Dirs
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		LogLevel:    "warn",
		LogFormat:   "text",
		VfoxTimeout: 30 * time.Second,
		Dirs:        DefaultDirs(),
	}
}

// DefaultDirs returns the XDG-based directory roots.
func DefaultDirs() Dirs {
	data := filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "toolvm")
	return Dirs{
		Plugins:   filepath.Join(data, "plugins"),
		Cache:     filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), "toolvm"),
		Downloads: filepath.Join(data, "downloads"),
		Installs:  filepath.Join(data, "installs"),
		Temp:      os.TempDir(),
	}
}

// DefaultPath returns the settings file location.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "toolvm", "config.toml")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// Load reads settings from the TOML file at path (DefaultPath when empty)
// and the environment. A missing file is not an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath()
	}
	return LoadFrom(loader.NewTOMLLoader(path), loader.NewEnvLoader(EnvPrefix, envMapping))
}

// LoadFrom layers the given loaders over the defaults in order.
func LoadFrom(loaders ...loader.Loader) (*Settings, error) {
	merged := map[string]any{}
	for _, l := range loaders {
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	s := Default()
	if err := s.apply(merged); err != nil {
		return nil, err
	}
	return s, nil
}

// apply overrides settings with values present in m. Unknown keys are ignored.
func (s *Settings) apply(m map[string]any) error {
	if v, ok := m["disable_tools"]; ok {
		tools, err := stringList(v)
		if err != nil {
			return fmt.Errorf("%w: disable_tools: %v", ErrInvalidSetting, err)
		}
		s.DisableTools = tools
	}
	if v, ok := m["log_level"]; ok {
		s.LogLevel = fmt.Sprint(v)
	}
	if v, ok := m["log_format"]; ok {
		s.LogFormat = fmt.Sprint(v)
	}
	if v, ok := m["vfox_timeout"]; ok {
		d, err := duration(v)
		if err != nil {
			return fmt.Errorf("%w: vfox_timeout: %v", ErrInvalidSetting, err)
		}
		s.VfoxTimeout = d
	}

	if v, ok := m["dirs"]; ok {
		dirs, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: dirs must be a table", ErrInvalidSetting)
		}
		for key, target := range map[string]*string{
			"plugins":   &s.Dirs.Plugins,
			"cache":     &s.Dirs.Cache,
			"downloads": &s.Dirs.Downloads,
			"installs":  &s.Dirs.Installs,
			"temp":      &s.Dirs.Temp,
		} {
			if dir, ok := dirs[key]; ok {
				*target = expandHome(fmt.Sprint(dir))
			}
		}
	}
	return nil
}

// stringList accepts a TOML array or a comma-separated string.
func stringList(v any) ([]string, error) {
	var out []string
	switch val := v.(type) {
	case string:
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	return out, nil
}

// duration accepts a duration string or a number of seconds.
func duration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		return time.ParseDuration(val)
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// IsDisabled reports whether name is in DisableTools.
func (s *Settings) IsDisabled(name string) bool {
	return slices.Contains(s.DisableTools, name)
}
