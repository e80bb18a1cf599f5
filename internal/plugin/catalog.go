package plugin

import (
	"log/slog"
	"sort"
	"sync"
)

// Catalog is the set of installed vfox plugins, computed once.
//
// The first call to List, Names or Contains scans the index; every later
// call returns that snapshot, even if the scan failed. A failed scan is
// logged and yields an empty catalog, so an empty catalog does not prove
// that no plugins are installed. Use Plugin.IsInstalled for ground truth.
type Catalog struct {
	index    Index
	disabled func(name string) bool
	logger   *slog.Logger
	opts     []Option

	once    sync.Once
	plugins []*Plugin
}

// NewCatalog creates a catalog over index. disabled reports the names to
// exclude and may be nil. opts configure every listed Plugin.
func NewCatalog(index Index, disabled func(name string) bool, logger *slog.Logger, opts ...Option) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		index:    index,
		disabled: disabled,
		logger:   logger,
		opts:     opts,
	}
}

// List returns the plugins sorted by name.
func (c *Catalog) List() []*Plugin {
	c.once.Do(c.load)
	return append([]*Plugin(nil), c.plugins...)
}

// Names returns the plugin names sorted.
func (c *Catalog) Names() []string {
	plugins := c.List()
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name()
	}
	return names
}

// Contains reports whether name is in the catalog.
func (c *Catalog) Contains(name string) bool {
	for _, p := range c.List() {
		if p.Name() == name {
			return true
		}
	}
	return false
}

func (c *Catalog) load() {
	entries, err := c.index.Entries()
	if err != nil {
		c.logger.Warn("failed to list vfox plugins", "error", err)
		return
	}

	seen := make(map[string]bool)
	var plugins []*Plugin
	for _, entry := range entries {
		name := entry.Name()
		if entry.Kind != KindVfox || seen[name] {
			continue
		}
		if c.disabled != nil && c.disabled(name) {
			continue
		}
		p, err := New(name, c.opts...)
		if err != nil {
			c.logger.Warn("skipping plugin", "dir", entry.Dir, "error", err)
			continue
		}
		seen[name] = true
		plugins = append(plugins, p)
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name() < plugins[j].Name()
	})
	c.plugins = plugins
}
