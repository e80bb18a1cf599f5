package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single DoFile or CallMethod.
const DefaultExecutionTimeout = 30 * time.Second

// State wraps gopher-lua with a sandbox and per-call execution deadlines.
//
// gopher-lua's LState is not goroutine-safe. The mutex protects against
// concurrent access from Go code; run a State from a single Executor when
// calls originate on several goroutines.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	moduleRoots      []string
	output           func(string)

	deadline time.Time
	closed   bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline applied to each execution.
// A zero or negative duration disables the deadline.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithDeadline sets a point in time after which every execution fails.
// It bounds the sum of all executions on the state, on top of the
// per-execution timeout.
func WithDeadline(t time.Time) StateOption {
	return func(s *State) {
		s.deadline = t
	}
}

// WithModuleRoot adds a directory that require() may load modules from.
// "a.b" resolves to <root>/a/b.lua.
func WithModuleRoot(dir string) StateOption {
	return func(s *State) {
		s.moduleRoots = append(s.moduleRoots, dir)
	}
}

// WithOutput routes print() output to fn, one call per printed line.
func WithOutput(fn func(line string)) StateOption {
	return func(s *State) {
		s.output = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})
	state.L = L

	openSafeLibraries(L)

	NewSandbox(L, state.moduleRoots, state.output).Install()

	return state, nil
}

// openSafeLibraries opens the standard libraries plugin scripts may use.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)

	// io and debug stay closed; os is replaced by a restricted table in the sandbox.
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.run(func() error {
		return s.L.DoFile(path)
	})
}

// CallMethod calls obj:method(args...), passing obj as the implicit self.
func (s *State) CallMethod(obj *lua.LTable, method string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetField(obj, method)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("method %q (%s): %w", method, fnVal.Type(), ErrNotFunction)
	}
	return s.callLocked(fnVal, append([]lua.LValue{obj}, args...))
}

// callLocked calls fn and collects its results (caller must hold lock).
func (s *State) callLocked(fn lua.LValue, args []lua.LValue) ([]lua.LValue, error) {
	stackTop := s.L.GetTop()

	err := s.run(func() error {
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(stackTop)
		return nil, err
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)

	return results, nil
}

// run executes fn under the execution deadline with panic recovery.
func (s *State) run(fn func() error) (err error) {
	ctx := context.Background()
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	if !s.deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, s.deadline)
		defer cancel()
	}
	if ctx.Err() != nil {
		return ErrExecutionTimeout
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// PreloadModule makes a Go-backed module available to require(name).
func (s *State) PreloadModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), funcs))
		return 1
	})
}

// Bridge returns a value converter bound to this state.
func (s *State) Bridge() *Bridge {
	return NewBridge(s.L)
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
