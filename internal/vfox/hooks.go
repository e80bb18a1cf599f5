package vfox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	plua "github.com/dshills/toolvm/internal/plugin/lua"
	lua "github.com/yuin/gopher-lua"
)

// EnvKey is one environment variable produced by a plugin.
type EnvKey struct {
	Key   string
	Value string
}

// Metadata describes a plugin as declared in its PLUGIN table.
type Metadata struct {
	Name        string
	Version     string
	Description string
	Homepage    string
}

// hook names a hook file and the PLUGIN method it defines.
type hook struct {
	file   string
	method string
}

var (
	hookMiseEnv  = hook{file: "mise_env.lua", method: "MiseEnv"}
	hookMisePath = hook{file: "mise_path.lua", method: "MisePath"}
)

// MiseEnv evaluates the plugin's MiseEnv hook and returns the environment
// variables in the order the plugin listed them. A plugin without the hook
// contributes no variables.
func (v *Vfox) MiseEnv(ctx context.Context, name string, opts map[string]any) ([]EnvKey, error) {
	var env []EnvKey
	err := v.runHook(ctx, name, hookMiseEnv, opts, func(s *plua.State, ret lua.LValue) error {
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: MiseEnv returned %s, want table", ErrInvalidResult, ret.Type())
		}
		bridge := s.Bridge()
		for i := 1; i <= tbl.Len(); i++ {
			item, ok := tbl.RawGetInt(i).(*lua.LTable)
			if !ok {
				return fmt.Errorf("%w: MiseEnv entry %d is not a table", ErrInvalidResult, i)
			}
			key, ok := bridge.TableString(item, "key")
			if !ok || key == "" {
				return fmt.Errorf("%w: MiseEnv entry %d has no key", ErrInvalidResult, i)
			}
			var value string
			switch val := item.RawGetString("value").(type) {
			case lua.LString:
				value = string(val)
			case lua.LNumber:
				value = val.String()
			case *lua.LNilType:
				return fmt.Errorf("%w: MiseEnv entry %q has no value", ErrInvalidResult, key)
			default:
				return fmt.Errorf("%w: MiseEnv entry %q has a %s value, want string or number", ErrInvalidResult, key, val.Type())
			}
			env = append(env, EnvKey{Key: key, Value: value})
		}
		return nil
	})
	return env, err
}

// MisePath evaluates the plugin's MisePath hook and returns the PATH entries
// in order. A plugin without the hook contributes no entries.
func (v *Vfox) MisePath(ctx context.Context, name string, opts map[string]any) ([]string, error) {
	var paths []string
	err := v.runHook(ctx, name, hookMisePath, opts, func(s *plua.State, ret lua.LValue) error {
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: MisePath returned %s, want table", ErrInvalidResult, ret.Type())
		}
		paths = s.Bridge().TableStrings(tbl)
		return nil
	})
	return paths, err
}

// Metadata loads the plugin's metadata.lua and returns its PLUGIN fields.
func (v *Vfox) Metadata(ctx context.Context, name string) (*Metadata, error) {
	var md *Metadata
	err := v.withPlugin(ctx, name, func(s *plua.State, plugin *lua.LTable) error {
		b := s.Bridge()
		md = &Metadata{}
		md.Name, _ = b.TableString(plugin, "name")
		md.Version, _ = b.TableString(plugin, "version")
		md.Description, _ = b.TableString(plugin, "description")
		md.Homepage, _ = b.TableString(plugin, "homepage")
		if md.Name == "" {
			md.Name = name
		}
		return nil
	})
	return md, err
}

// runHook loads the plugin and hook file, calls PLUGIN:<method>(ctx) and
// hands the first return value to convert. A missing hook file is not an
// error and convert is not called.
func (v *Vfox) runHook(ctx context.Context, name string, h hook, opts map[string]any, convert func(*plua.State, lua.LValue) error) error {
	hookPath := filepath.Join(v.pluginPath(name), "hooks", h.file)

	return v.withPlugin(ctx, name, func(s *plua.State, plugin *lua.LTable) error {
		if _, err := os.Stat(hookPath); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err := s.DoFile(hookPath); err != nil {
			return fmt.Errorf("load hook %s: %w", h.file, err)
		}

		results, err := s.CallMethod(plugin, h.method, v.hookContext(s, opts))
		if err != nil {
			return fmt.Errorf("%s: %w", h.method, err)
		}
		if len(results) == 0 || results[0] == lua.LNil {
			return convert(s, s.L.NewTable())
		}
		return convert(s, results[0])
	})
}

// hookContext builds the ctx table passed to hook methods.
func (v *Vfox) hookContext(s *plua.State, opts map[string]any) lua.LValue {
	if opts == nil {
		opts = map[string]any{}
	}
	return s.Bridge().ToLuaValue(map[string]any{"options": opts})
}

// withPlugin creates a fresh state on its own goroutine, loads the plugin's
// metadata.lua and runs fn with the PLUGIN table. The state and goroutine
// are released before withPlugin returns.
func (v *Vfox) withPlugin(ctx context.Context, name string, fn func(*plua.State, *lua.LTable) error) error {
	if v.isClosed() {
		return ErrClosed
	}

	dir := v.pluginPath(name)
	metadata := filepath.Join(dir, "metadata.lua")
	if _, err := os.Stat(metadata); err != nil {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, dir)
	}

	opts := []plua.StateOption{
		plua.WithExecutionTimeout(v.Timeout),
		plua.WithModuleRoot(filepath.Join(dir, "lib")),
		plua.WithModuleRoot(dir),
		plua.WithOutput(v.emit),
	}
	// One deadline covers loading metadata, loading the hook and calling it.
	if v.Timeout > 0 {
		opts = append(opts, plua.WithDeadline(time.Now().Add(v.Timeout)))
	}
	state, err := plua.NewState(opts...)
	if err != nil {
		return err
	}
	defer state.Close()

	exec := plua.NewExecutor(state)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go exec.Run(runCtx)
	defer exec.Close()

	return exec.Execute(ctx, func(s *plua.State) error {
		v.installGlobals(s, name)

		if err := s.DoFile(metadata); err != nil {
			return fmt.Errorf("load metadata: %w", err)
		}
		plugin, ok := s.GetGlobal("PLUGIN").(*lua.LTable)
		if !ok {
			return ErrInvalidMetadata
		}
		return fn(s, plugin)
	})
}

// installGlobals exposes RUNTIME and the log module to the plugin.
func (v *Vfox) installGlobals(s *plua.State, name string) {
	s.SetGlobal("RUNTIME", s.Bridge().ToLuaValue(map[string]any{
		"osType":        runtime.GOOS,
		"archType":      runtime.GOARCH,
		"pluginDirPath": v.pluginPath(name),
		"cacheDirPath":  v.CacheDir,
		"downloadPath":  v.DownloadDir,
		"installPath":   v.InstallDir,
		"tempDirPath":   v.TempDir,
	}))

	logAt := func(level string) lua.LGFunction {
		return func(L *lua.LState) int {
			parts := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				parts = append(parts, L.ToStringMeta(L.Get(i)).String())
			}
			v.emit(fmt.Sprintf("[%s] %s: %s", name, level, strings.Join(parts, " ")))
			return 0
		}
	}
	s.PreloadModule("log", map[string]lua.LGFunction{
		"trace": logAt("TRACE"),
		"debug": logAt("DEBUG"),
		"info":  logAt("INFO"),
		"warn":  logAt("WARN"),
		"error": logAt("ERROR"),
	})
}
