package lua

import (
	"context"
	"sync"
	"sync/atomic"
)

// call is a unit of work queued on an Executor.
type call struct {
	fn     func(*State) error
	result chan error
}

// Executor serializes every operation on a State through one goroutine.
//
// gopher-lua's LState is NOT goroutine-safe and its coroutines are bound to
// the goroutine that created them. The Executor gives a State a single owner
// goroutine that callers on any other goroutine hand work to.
//
//	exec := NewExecutor(state)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	err := exec.Execute(ctx, func(s *State) error {
//	    return s.DoFile("metadata.lua")
//	})
type Executor struct {
	state  *State
	queue  chan *call
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates an Executor that owns state.
func NewExecutor(state *State) *Executor {
	return &Executor{
		state: state,
		queue: make(chan *call),
		done:  make(chan struct{}),
	}
}

// Run processes queued operations until ctx is cancelled or Close is called.
// It must run on its own goroutine.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case c := <-e.queue:
			c.result <- e.execute(c)
		}
	}
}

// execute runs a single operation with panic recovery.
func (e *Executor) execute(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return c.fn(e.state)
}

// Execute runs fn on the executor goroutine and blocks until it returns,
// the executor is closed, or ctx is done.
func (e *Executor) Execute(ctx context.Context, fn func(*State) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.result:
		return err
	}
}

// Close stops the executor. Operations already running finish; later
// Execute calls return ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}
