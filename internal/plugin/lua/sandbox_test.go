package lua

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestSandboxBlocksDynamicLoading(t *testing.T) {
	state := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		assert.Equal(t, glua.LNil, state.GetGlobal(name), name)
	}
	assert.Error(t, doString(t, state, `loadstring("x = 1")()`))
}

func TestSandboxIOAndDebugClosed(t *testing.T) {
	state := newTestState(t)
	assert.Equal(t, glua.LNil, state.GetGlobal("io"))
	assert.Equal(t, glua.LNil, state.GetGlobal("debug"))
}

func TestSandboxRestrictedOS(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, doString(t, state, `
		has_time = os.time ~= nil
		has_getenv = os.getenv ~= nil
		has_execute = os.execute ~= nil
		has_remove = os.remove ~= nil
		same = require("os") == os
	`))
	assert.Equal(t, glua.LTrue, state.GetGlobal("has_time"))
	assert.Equal(t, glua.LTrue, state.GetGlobal("has_getenv"))
	assert.Equal(t, glua.LFalse, state.GetGlobal("has_execute"))
	assert.Equal(t, glua.LFalse, state.GetGlobal("has_remove"))
	assert.Equal(t, glua.LTrue, state.GetGlobal("same"))
}

func TestSandboxPrintCapture(t *testing.T) {
	var lines []string
	state := newTestState(t, WithOutput(func(line string) { lines = append(lines, line) }))

	require.NoError(t, doString(t, state, `print("hello", 1, true) print("second")`))
	assert.Equal(t, []string{"hello\t1\ttrue", "second"}, lines)
}

func TestSandboxPrintWithoutOutput(t *testing.T) {
	state := newTestState(t)
	assert.NoError(t, doString(t, state, `print("dropped")`))
}

func TestSandboxRequireFromModuleRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "util", "strings.lua"),
		[]byte(`loads = (loads or 0) + 1
local M = {}
function M.upper(s) return string.upper(s) end
return M`), 0o644))

	state := newTestState(t, WithModuleRoot(root))
	require.NoError(t, doString(t, state, `
		local s = require("util.strings")
		out = s.upper("abc")
		require("util.strings")
	`))
	assert.Equal(t, glua.LString("ABC"), state.GetGlobal("out"))
	assert.Equal(t, glua.LNumber(1), state.GetGlobal("loads"), "module should be cached")
}

func TestSandboxRequireModuleWithoutReturn(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "side.lua"), []byte(`side = "effect"`), 0o644))

	state := newTestState(t, WithModuleRoot(root))
	require.NoError(t, doString(t, state, `r = require("side")`))
	assert.Equal(t, glua.LTrue, state.GetGlobal("r"))
	assert.Equal(t, glua.LString("effect"), state.GetGlobal("side"))
}

func TestSandboxRequireRejected(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "escape.lua")
	require.NoError(t, os.WriteFile(outside, []byte(`return 1`), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	state := newTestState(t, WithModuleRoot(root))

	tests := []string{"missing", "../escape", "a/b", `a\b`, "io", "debug"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			err := doString(t, state, `require("` + name + `")`)
			assert.Error(t, err)
		})
	}
}

func TestSandboxRequireSafeBuiltins(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, doString(t, state, `ok = require("string").upper("x") == "X"`))
	assert.Equal(t, glua.LTrue, state.GetGlobal("ok"))
}
