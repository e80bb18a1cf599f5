package lua

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToLuaValue(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	assert.Equal(t, glua.LNil, b.ToLuaValue(nil))
	assert.Equal(t, glua.LNumber(4), b.ToLuaValue(4))
	assert.Equal(t, glua.LNumber(4), b.ToLuaValue(int8(4)))
	assert.Equal(t, glua.LString("x"), b.ToLuaValue("x"))
	assert.Equal(t, glua.LString("raw"), b.ToLuaValue([]byte("raw")))
	assert.Equal(t, glua.LTrue, b.ToLuaValue(true))
	assert.Equal(t, glua.LString("2024-01-02T03:04:05Z"),
		b.ToLuaValue(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	var nilPtr *int
	assert.Equal(t, glua.LNil, b.ToLuaValue(nilPtr))
	n := 7
	assert.Equal(t, glua.LNumber(7), b.ToLuaValue(&n))
}

func TestBridgeOptionsVisibleToLua(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	opts := map[string]any{
		"version": "1.2.3",
		"paths":   []any{"bin", "sbin"},
		"flags":   map[string]any{"debug": true},
		"count":   int64(2),
	}
	state.SetGlobal("opts", b.ToLuaValue(opts))
	require.NoError(t, doString(t, state, `out = opts.paths[2] .. ":" .. opts.version`))

	assert.Equal(t, glua.LString("sbin:1.2.3"), state.GetGlobal("out"))

	require.NoError(t, doString(t, state, `debug_on = opts.flags.debug count = opts.count + 1`))
	assert.Equal(t, glua.LTrue, state.GetGlobal("debug_on"))
	assert.Equal(t, glua.LNumber(3), state.GetGlobal("count"))
}

func TestBridgeReflectFallbacks(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	seq, ok := b.ToLuaValue([]int{1, 2}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, b.TableStrings(seq))

	m, ok := b.ToLuaValue(map[string]int{"a": 1}).(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LNumber(1), m.RawGetString("a"))

	type opaque struct{ n int }
	ud, ok := b.ToLuaValue(opaque{n: 1}).(*glua.LUserData)
	require.True(t, ok)
	assert.Equal(t, opaque{n: 1}, ud.Value)
}

func TestBridgeTableHelpers(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, doString(t, state, `
		t = { b = 1, a = "x", [1] = "skip" }
		seq = { "one", 2, true }
	`))
	b := state.Bridge()
	tbl := state.GetGlobal("t").(*glua.LTable)

	s, ok := b.TableString(tbl, "a")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = b.TableString(tbl, "b")
	assert.False(t, ok)

	assert.Equal(t, []string{"one", "2", "true"}, b.TableStrings(state.GetGlobal("seq").(*glua.LTable)))
}
