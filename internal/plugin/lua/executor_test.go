package lua

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func startExecutor(t *testing.T, state *State) *Executor {
	t.Helper()
	exec := NewExecutor(state)
	ctx, cancel := context.WithCancel(context.Background())
	go exec.Run(ctx)
	t.Cleanup(func() {
		exec.Close()
		cancel()
	})
	return exec
}

func TestExecutorExecute(t *testing.T) {
	state := newTestState(t)
	exec := startExecutor(t, state)

	chunk := writeChunk(t, `x = 10`)
	err := exec.Execute(context.Background(), func(s *State) error {
		return s.DoFile(chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, glua.LNumber(10), state.GetGlobal("x"))
}

func TestExecutorPropagatesError(t *testing.T) {
	exec := startExecutor(t, newTestState(t))

	sentinel := errors.New("sentinel")
	err := exec.Execute(context.Background(), func(*State) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestExecutorRecoversPanic(t *testing.T) {
	exec := startExecutor(t, newTestState(t))

	err := exec.Execute(context.Background(), func(*State) error { panic("boom") })
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Value)

	// The executor keeps serving after a panic.
	assert.NoError(t, exec.Execute(context.Background(), func(*State) error { return nil }))
}

func TestExecutorSerializesCalls(t *testing.T) {
	state := newTestState(t)
	exec := startExecutor(t, state)
	require.NoError(t, doString(t, state, `counter = 0`))
	chunk := writeChunk(t, `counter = counter + 1`)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, exec.Execute(context.Background(), func(s *State) error {
				return s.DoFile(chunk)
			}))
		}()
	}
	wg.Wait()

	assert.Equal(t, glua.LNumber(20), state.GetGlobal("counter"))
}

func TestExecutorClosed(t *testing.T) {
	exec := startExecutor(t, newTestState(t))
	exec.Close()
	exec.Close()

	err := exec.Execute(context.Background(), func(*State) error { return nil })
	assert.ErrorIs(t, err, ErrExecutorClosed)
}

func TestExecutorContextCancelled(t *testing.T) {
	// No Run loop: the call can never be picked up.
	exec := NewExecutor(newTestState(t))
	defer exec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Execute(ctx, func(*State) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
