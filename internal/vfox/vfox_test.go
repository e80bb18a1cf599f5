package vfox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePlugin lays out a vfox plugin under root/name.
func writePlugin(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, name, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestVfox(t *testing.T) *Vfox {
	t.Helper()
	v := New()
	v.PluginDir = t.TempDir()
	v.Timeout = 2 * time.Second
	t.Cleanup(v.Close)
	return v
}

const metadata = `PLUGIN = { name = "demo", version = "0.1.0", description = "demo plugin" }`

func TestNew(t *testing.T) {
	v := New()
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, DefaultTimeout, v.Timeout)
	assert.NotEqual(t, v.ID, New().ID)
}

func TestMiseEnv(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua": metadata,
		"hooks/mise_env.lua": `
function PLUGIN:MiseEnv(ctx)
	return {
		{ key = "DEMO_HOME", value = RUNTIME.pluginDirPath },
		{ key = "DEMO_VERSION", value = ctx.options.version },
		{ key = "DEMO_PORT", value = 8080 },
	}
end`,
	})

	env, err := v.MiseEnv(context.Background(), "demo", map[string]any{"version": "1.2.3"})
	require.NoError(t, err)
	assert.Equal(t, []EnvKey{
		{Key: "DEMO_HOME", Value: filepath.Join(v.PluginDir, "demo")},
		{Key: "DEMO_VERSION", Value: "1.2.3"},
		{Key: "DEMO_PORT", Value: "8080"},
	}, env)
}

func TestMisePath(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua": metadata,
		"hooks/mise_path.lua": `
function PLUGIN:MisePath(ctx)
	local out = { "/opt/demo/bin" }
	for _, p in ipairs(ctx.options.extra or {}) do
		table.insert(out, p)
	end
	return out
end`,
	})

	paths, err := v.MisePath(context.Background(), "demo", map[string]any{"extra": []any{"/a", "/b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/demo/bin", "/a", "/b"}, paths)
}

func TestHookMissing(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{"metadata.lua": metadata})

	env, err := v.MiseEnv(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Empty(t, env)

	paths, err := v.MisePath(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestHookReturnsNil(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua":        metadata,
		"hooks/mise_path.lua": `function PLUGIN:MisePath(ctx) end`,
	})

	paths, err := v.MisePath(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPluginNotFound(t *testing.T) {
	v := newTestVfox(t)
	_, err := v.MiseEnv(context.Background(), "absent", nil)
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestInvalidMetadata(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{"metadata.lua": `NOT_PLUGIN = {}`})

	_, err := v.MiseEnv(context.Background(), "demo", nil)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestInvalidResults(t *testing.T) {
	tests := []struct {
		name string
		hook string
	}{
		{"not a table", `function PLUGIN:MiseEnv(ctx) return "x" end`},
		{"entry not a table", `function PLUGIN:MiseEnv(ctx) return { "x" } end`},
		{"missing key", `function PLUGIN:MiseEnv(ctx) return { { value = "v" } } end`},
		{"missing value", `function PLUGIN:MiseEnv(ctx) return { { key = "K" } } end`},
		{"table value", `function PLUGIN:MiseEnv(ctx) return { { key = "K", value = { "a" } } } end`},
		{"boolean value", `function PLUGIN:MiseEnv(ctx) return { { key = "K", value = true } } end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVfox(t)
			writePlugin(t, v.PluginDir, "demo", map[string]string{
				"metadata.lua":       metadata,
				"hooks/mise_env.lua": tt.hook,
			})
			_, err := v.MiseEnv(context.Background(), "demo", nil)
			assert.ErrorIs(t, err, ErrInvalidResult)
		})
	}
}

func TestHookError(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua":       metadata,
		"hooks/mise_env.lua": `function PLUGIN:MiseEnv(ctx) error("plugin exploded") end`,
	})

	_, err := v.MiseEnv(context.Background(), "demo", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin exploded")
}

func TestHookTimeout(t *testing.T) {
	v := newTestVfox(t)
	v.Timeout = 50 * time.Millisecond
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua":        metadata,
		"hooks/mise_path.lua": `function PLUGIN:MisePath(ctx) while true do end end`,
	})

	_, err := v.MisePath(context.Background(), "demo", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestTimeoutCoversWholeEvaluation(t *testing.T) {
	v := newTestVfox(t)
	v.Timeout = 400 * time.Millisecond
	spin := "local start = os.clock() while os.clock() - start < 0.25 do end\n"
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua": spin + metadata,
		"hooks/mise_path.lua": spin + `
function PLUGIN:MisePath(ctx)
	` + spin + `
	return { "/opt/demo/bin" }
end`,
	})

	start := time.Now()
	_, err := v.MisePath(context.Background(), "demo", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, time.Since(start), 700*time.Millisecond)
}

func TestRequireFromLib(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua": metadata,
		"lib/util.lua": `return { bin = function(root) return root .. "/bin" end }`,
		"hooks/mise_path.lua": `
local util = require("util")
function PLUGIN:MisePath(ctx) return { util.bin("/opt") } end`,
	})

	paths, err := v.MisePath(context.Background(), "demo", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/bin"}, paths)
}

func TestLogSubscribe(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{
		"metadata.lua": metadata,
		"hooks/mise_env.lua": `
local log = require("log")
function PLUGIN:MiseEnv(ctx)
	log.info("computing", 2)
	print("from print")
	return {}
end`,
	})

	logs := v.LogSubscribe()
	var lines []string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for line := range logs {
			lines = append(lines, line)
		}
	}()

	_, err := v.MiseEnv(context.Background(), "demo", nil)
	require.NoError(t, err)
	v.Close()
	wg.Wait()

	assert.Equal(t, []string{"[demo] INFO: computing 2", "from print"}, lines)
}

func TestClose(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{"metadata.lua": metadata})
	v.Close()
	v.Close()

	_, ok := <-v.LogSubscribe()
	assert.False(t, ok, "subscription after close should be closed")

	_, err := v.MiseEnv(context.Background(), "demo", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMetadata(t *testing.T) {
	v := newTestVfox(t)
	writePlugin(t, v.PluginDir, "demo", map[string]string{"metadata.lua": metadata})
	writePlugin(t, v.PluginDir, "bare", map[string]string{"metadata.lua": `PLUGIN = {}`})

	md, err := v.Metadata(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, &Metadata{Name: "demo", Version: "0.1.0", Description: "demo plugin"}, md)

	md, err = v.Metadata(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "bare", md.Name)
}
