package plugin

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/toolvm/internal/logging"
	"github.com/dshills/toolvm/internal/vfox"
)

// tempDirName is the runtime's directory under the temp root.
const tempDirName = "toolvm-vfox"

// Env evaluates the plugin's MiseEnv hook with opts. It returns the
// variables in the order the plugin produced them and as a map in which
// later entries win.
func (p *Plugin) Env(ctx context.Context, opts map[string]any) ([]vfox.EnvKey, map[string]string, error) {
	var env []vfox.EnvKey
	err := p.withRuntime(ctx, "MiseEnv", func(ctx context.Context, v *vfox.Vfox) error {
		var err error
		env, err = v.MiseEnv(ctx, p.name, opts)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	m := make(map[string]string, len(env))
	for _, kv := range env {
		m[kv.Key] = kv.Value
	}
	return env, m, nil
}

// MisePath evaluates the plugin's MisePath hook with opts and returns the
// PATH entries in order.
func (p *Plugin) MisePath(ctx context.Context, opts map[string]any) ([]string, error) {
	var paths []string
	err := p.withRuntime(ctx, "MisePath", func(ctx context.Context, v *vfox.Vfox) error {
		var err error
		paths, err = v.MisePath(ctx, p.name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Metadata returns the PLUGIN fields declared in metadata.lua.
func (p *Plugin) Metadata(ctx context.Context) (*vfox.Metadata, error) {
	var md *vfox.Metadata
	err := p.withRuntime(ctx, "metadata", func(ctx context.Context, v *vfox.Vfox) error {
		var err error
		md, err = v.Metadata(ctx, p.name)
		return err
	})
	return md, err
}

// newVfox builds a runtime configured with the plugin's directory roots.
func (p *Plugin) newVfox() (*vfox.Vfox, error) {
	v := vfox.New()
	v.PluginDir = p.dirs.Plugins
	v.CacheDir = p.dirs.Cache
	v.DownloadDir = p.dirs.Downloads
	v.InstallDir = p.dirs.Installs
	v.Timeout = p.timeout

	temp := p.dirs.Temp
	if temp == "" {
		temp = os.TempDir()
	}
	v.TempDir = filepath.Join(temp, tempDirName)
	if err := os.MkdirAll(v.TempDir, 0o755); err != nil {
		return nil, err
	}
	return v, nil
}

// withRuntime runs fn against a fresh runtime while draining its log
// stream into the logger. The runtime is closed on every path. The call
// cannot be cancelled once started.
func (p *Plugin) withRuntime(ctx context.Context, hook string, fn func(context.Context, *vfox.Vfox) error) error {
	v, err := p.newVfox()
	if err != nil {
		return &Error{Kind: ErrRuntimeExecution, Plugin: p.name, Msg: "failed to prepare runtime", Target: p.dirs.Temp, Err: err}
	}

	ctx = logging.NewContext(context.WithoutCancel(ctx), p.logger)
	ctx = logging.With(ctx, "invocation", v.ID, "hook", hook)
	logs := v.LogSubscribe()

	var g errgroup.Group
	g.Go(func() error {
		log := logging.FromContext(ctx)
		for line := range logs {
			log.DebugContext(ctx, line)
		}
		return nil
	})
	g.Go(func() error {
		defer v.Close()
		return fn(ctx, v)
	})

	if err := g.Wait(); err != nil {
		return &Error{Kind: ErrRuntimeExecution, Plugin: p.name, Msg: hook + " failed in", Target: p.Path(), Err: err}
	}
	return nil
}
