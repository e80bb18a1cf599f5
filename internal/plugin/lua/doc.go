// Package lua provides the sandboxed Lua runtime that plugin scripts run in.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed state management with per-call timeouts and an optional
//     deadline shared by every call
//   - A restricted require() that resolves preloaded modules and files
//     under configured module roots only
//   - Go to Lua value conversion
//   - A single-goroutine Executor for driving a state from other goroutines
//
// # State
//
//	state, err := lua.NewState(
//	    lua.WithModuleRoot(filepath.Join(pluginDir, "lib")),
//	    lua.WithOutput(func(line string) { logs <- line }),
//	    lua.WithDeadline(time.Now().Add(10*time.Second)),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile(filepath.Join(pluginDir, "metadata.lua")); err != nil {
//	    return err
//	}
//
// # Sandbox
//
// The sandbox removes dofile, loadfile, load and loadstring, leaves io and
// debug closed, reduces os to time, clock, date, difftime and getenv, and
// routes print() to the configured output callback.
package lua
