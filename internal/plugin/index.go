package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Kind is the plugin format of an installed directory.
type Kind int

const (
	KindUnknown Kind = iota
	KindVfox
	KindAsdf
)

func (k Kind) String() string {
	switch k {
	case KindVfox:
		return "vfox"
	case KindAsdf:
		return "asdf"
	default:
		return "unknown"
	}
}

// IndexEntry is one installed plugin directory.
type IndexEntry struct {
	Dir  string
	Kind Kind
}

// Name returns the plugin name, the base name of Dir.
func (e IndexEntry) Name() string {
	return filepath.Base(e.Dir)
}

// Index lists installed plugins of every kind.
type Index interface {
	Entries() ([]IndexEntry, error)
}

// IndexFunc adapts a function to Index.
type IndexFunc func() ([]IndexEntry, error)

// Entries calls f.
func (f IndexFunc) Entries() ([]IndexEntry, error) {
	return f()
}

// DirIndex indexes the plugin directories directly under Root. A directory
// containing metadata.lua is a vfox plugin; one containing bin/ is an asdf
// plugin. Other entries are skipped. Symlinks are followed.
type DirIndex struct {
	Root string
}

// Entries scans Root in name order. A missing root yields no entries.
func (d DirIndex) Entries() ([]IndexEntry, error) {
	dirents, err := os.ReadDir(d.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []IndexEntry
	for _, dirent := range dirents {
		dir := filepath.Join(d.Root, dirent.Name())
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if kind := classify(dir); kind != KindUnknown {
			entries = append(entries, IndexEntry{Dir: dir, Kind: kind})
		}
	}
	return entries, nil
}

func classify(dir string) Kind {
	if info, err := os.Stat(filepath.Join(dir, "metadata.lua")); err == nil && info.Mode().IsRegular() {
		return KindVfox
	}
	if info, err := os.Stat(filepath.Join(dir, "bin")); err == nil && info.IsDir() {
		return KindAsdf
	}
	return KindUnknown
}
