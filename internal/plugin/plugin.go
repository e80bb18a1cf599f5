package plugin

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/toolvm/internal/config"
	"github.com/dshills/toolvm/internal/registry"
	"github.com/dshills/toolvm/internal/vfox"
)

// Plugin is a named vfox plugin installed under the plugins root.
type Plugin struct {
	name   string
	remote string
	dirs   config.Dirs

	repo     *Repository
	registry *registry.Registry
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithRemote sets the source the plugin was registered with. It is used
// when the working copy has no configured remote.
func WithRemote(url string) Option {
	return func(p *Plugin) {
		p.remote = url
	}
}

// WithDirs sets the directory roots.
func WithDirs(dirs config.Dirs) Option {
	return func(p *Plugin) {
		p.dirs = dirs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithRegistry replaces the compiled-in alias registry.
func WithRegistry(r *registry.Registry) Option {
	return func(p *Plugin) {
		p.registry = r
	}
}

// WithTimeout bounds each runtime hook evaluation.
func WithTimeout(d time.Duration) Option {
	return func(p *Plugin) {
		p.timeout = d
	}
}

// New creates a Plugin. name must be a single path element.
func New(name string, opts ...Option) (*Plugin, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	p := &Plugin{
		name:     name,
		dirs:     config.DefaultDirs(),
		registry: registry.Default(),
		logger:   slog.Default(),
		timeout:  vfox.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("plugin", name)
	p.repo = NewRepository(p.Path())

	return p, nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// NameFromSource derives a plugin name from a source such as a URL or an
// "owner/repo" shorthand: the last path element without a ".git" suffix or
// "vfox-" prefix. Sources that are already plain names are returned as is.
func NameFromSource(source string) string {
	source, _, _ = strings.Cut(source, "#")
	source = strings.TrimRight(source, "/")
	if i := strings.LastIndexAny(source, "/:"); i >= 0 {
		source = source[i+1:]
	}
	source = strings.TrimSuffix(source, ".git")
	return strings.TrimPrefix(source, "vfox-")
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return p.name
}

// Path returns the install path, <plugins root>/<name>.
func (p *Plugin) Path() string {
	return filepath.Join(p.dirs.Plugins, p.name)
}

func (p *Plugin) String() string {
	return p.name
}
