package lua

import (
	"fmt"
	"reflect"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToLuaValue converts a Go value to a Lua value. Maps and slices become
// tables; time values become RFC 3339 strings; values that have no Lua
// counterpart are wrapped as userdata.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case time.Time:
		return lua.LString(val.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return lua.LString(val.String())
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, b.ToLuaValue(item))
		}
		return t
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, lua.LString(item))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, b.ToLuaValue(item))
		}
		return t
	case map[string]string:
		t := b.L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, lua.LString(item))
		}
		return t
	default:
		return b.reflectToLua(v)
	}
}

// reflectToLua handles composite values not covered by ToLuaValue's fast path.
func (b *Bridge) reflectToLua(v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.ToLuaValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := b.L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(b.ToLuaValue(key.Interface()), b.ToLuaValue(rv.MapIndex(key).Interface()))
		}
		return t
	case reflect.Int8, reflect.Int16, reflect.Uint8, reflect.Uint16:
		return lua.LNumber(rv.Convert(reflect.TypeOf(float64(0))).Float())
	default:
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// TableString gets a string field from a Lua table.
func (b *Bridge) TableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// TableStrings converts a sequence of strings. Non-string items are
// rendered with tostring semantics.
func (b *Bridge) TableStrings(t *lua.LTable) []string {
	n := t.Len()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		v := t.RawGetInt(i)
		if s, ok := v.(lua.LString); ok {
			out = append(out, string(s))
			continue
		}
		out = append(out, v.String())
	}
	return out
}
