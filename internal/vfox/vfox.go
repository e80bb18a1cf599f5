// Package vfox runs vfox-format Lua plugins.
//
// A vfox plugin is a directory holding metadata.lua, which defines the global
// PLUGIN table, and a hooks/ directory with one file per hook. Each hook file
// adds a method to PLUGIN:
//
//	-- hooks/mise_env.lua
//	function PLUGIN:MiseEnv(ctx)
//	    return { { key = "FOO", value = ctx.options.foo } }
//	end
//
// Every evaluation runs in a fresh sandboxed Lua state owned by a single
// goroutine, so a misbehaving plugin cannot affect later evaluations.
package vfox

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single hook evaluation.
const DefaultTimeout = 30 * time.Second

// logBuffer is the capacity of a log subscription channel.
const logBuffer = 64

// Vfox evaluates hooks of the plugins installed under PluginDir.
//
// The directory fields are exposed to plugins and must be set before the
// first evaluation. A Vfox is safe for concurrent use.
type Vfox struct {
	// ID identifies this runtime instance in log output.
	ID string

	PluginDir   string
	CacheDir    string
	DownloadDir string
	InstallDir  string
	TempDir     string

	// Timeout bounds each hook evaluation. Zero disables the bound.
	Timeout time.Duration

	mu     sync.Mutex
	subs   []chan string
	closed bool
}

// New creates a runtime with directories rooted in the system temp dir.
// Callers normally override every directory.
func New() *Vfox {
	root := filepath.Join(os.TempDir(), "vfox")
	return &Vfox{
		ID:          uuid.NewString(),
		PluginDir:   filepath.Join(root, "plugins"),
		CacheDir:    filepath.Join(root, "cache"),
		DownloadDir: filepath.Join(root, "downloads"),
		InstallDir:  filepath.Join(root, "installs"),
		TempDir:     filepath.Join(root, "tmp"),
		Timeout:     DefaultTimeout,
	}
}

// LogSubscribe returns a channel receiving every line a plugin logs or
// prints. The channel is closed by Close. Subscribers must drain the
// channel until it is closed; evaluations block while it is full.
func (v *Vfox) LogSubscribe() <-chan string {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan string, logBuffer)
	if v.closed {
		close(ch)
		return ch
	}
	v.subs = append(v.subs, ch)
	return ch
}

// emit delivers a log line to every subscriber.
func (v *Vfox) emit(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	for _, ch := range v.subs {
		ch <- line
	}
}

// Close closes every log subscription. Later evaluations return ErrClosed.
func (v *Vfox) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	for _, ch := range v.subs {
		close(ch)
	}
	v.subs = nil
}

func (v *Vfox) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// pluginPath returns the directory of the named plugin.
func (v *Vfox) pluginPath(name string) string {
	return filepath.Join(v.PluginDir, name)
}
