package lua

import (
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// safeModules are built-in modules require() may always return.
var safeModules = map[string]bool{
	"string":    true,
	"table":     true,
	"math":      true,
	"coroutine": true,
	"os":        true,
}

// safeOSFuncs are the os functions kept in the restricted os table.
var safeOSFuncs = []string{"time", "clock", "date", "difftime", "getenv"}

// Sandbox restricts Lua execution to operations that cannot reach outside
// the plugin: no dynamic code loading, no process or file-system mutation,
// and module loading limited to preloaded modules and configured roots.
type Sandbox struct {
	L *lua.LState

	moduleRoots []string
	output      func(string)
}

// NewSandbox creates a sandbox for L. Modules are resolved under roots;
// printed lines are passed to output (discarded when nil).
func NewSandbox(L *lua.LState, roots []string, output func(string)) *Sandbox {
	return &Sandbox{
		L:           L,
		moduleRoots: roots,
		output:      output,
	}
}

// Install applies the sandbox restrictions to the state.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installOS()
	s.installRequire()
}

// installPrint replaces print with a version feeding the output callback.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if s.output != nil {
			s.output(strings.Join(parts, "\t"))
		}
		return 0
	}))
}

// installOS exposes a read-only subset of the os library.
func (s *Sandbox) installOS() {
	lua.OpenOs(s.L)
	full, ok := s.L.GetGlobal("os").(*lua.LTable)
	if !ok {
		return
	}

	restricted := s.L.NewTable()
	for _, name := range safeOSFuncs {
		restricted.RawSetString(name, full.RawGetString(name))
	}
	s.L.SetGlobal("os", restricted)

	if loaded, ok := s.loadedTable(); ok {
		loaded.RawSetString("os", restricted)
	}
}

// loadedTable returns package.loaded.
func (s *Sandbox) loadedTable() (*lua.LTable, bool) {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return nil, false
	}
	loaded, ok := s.L.GetField(pkg, "loaded").(*lua.LTable)
	return loaded, ok
}

// installRequire replaces require with a version that only resolves safe
// built-ins, preloaded modules, and files under the module roots.
func (s *Sandbox) installRequire() {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	// The original searchers must never touch the file system.
	s.L.SetField(pkg, "path", lua.LString(""))
	s.L.SetField(pkg, "cpath", lua.LString(""))

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		loaded, _ := s.loadedTable()
		if loaded != nil {
			if v := loaded.RawGetString(name); v != lua.LNil {
				L.Push(v)
				return 1
			}
		}

		preload, _ := L.GetField(pkg, "preload").(*lua.LTable)
		if safeModules[name] || (preload != nil && preload.RawGetString(name) != lua.LNil) {
			L.Push(originalRequire)
			L.Push(lua.LString(name))
			L.Call(1, 1)
			return 1
		}

		path, found := s.findModule(name)
		if !found {
			L.RaiseError("module %q is not available", name)
			return 0
		}

		fn, err := L.LoadFile(path)
		if err != nil {
			L.RaiseError("loading module %q: %s", name, err.Error())
			return 0
		}
		L.Push(fn)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		ret := L.Get(-1)
		L.Pop(1)
		if ret == lua.LNil {
			ret = lua.LTrue
		}
		if loaded != nil {
			loaded.RawSetString(name, ret)
		}
		L.Push(ret)
		return 1
	}))
}

// findModule maps a dotted module name to a file under a module root.
// Names that could escape a root are rejected.
func (s *Sandbox) findModule(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	rel := filepath.Join(strings.Split(name, ".")...) + ".lua"

	for _, root := range s.moduleRoots {
		path := filepath.Join(root, rel)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
