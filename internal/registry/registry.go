// Package registry holds the compiled-in table of short plugin aliases.
//
// Each alias maps to a target spec of the form "<kind>:<owner>/<repo>". The
// table is embedded in the binary and never changes at runtime.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var builtin []byte

// ErrMalformedEntry indicates a registry target that is not "<kind>:<target>".
var ErrMalformedEntry = errors.New("malformed registry entry")

// Entry is a single alias mapping.
type Entry struct {
	// Alias is the short name users type (e.g., "bun").
	Alias string
	// Kind is the plugin kind prefix of the target (e.g., "vfox").
	Kind string
	// Target is the payload after the kind prefix (e.g., "version-fox/vfox-bun").
	Target string
}

// Spec returns the entry's target spec in "<kind>:<target>" form.
func (e Entry) Spec() string {
	return e.Kind + ":" + e.Target
}

// Registry is an immutable alias table.
type Registry struct {
	entries map[string]Entry
}

// Parse builds a Registry from a YAML mapping of alias to target spec.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	r := &Registry{entries: make(map[string]Entry, len(raw))}
	for alias, spec := range raw {
		kind, target, ok := strings.Cut(spec, ":")
		if !ok || kind == "" || target == "" || alias == "" {
			return nil, fmt.Errorf("%w: %q -> %q", ErrMalformedEntry, alias, spec)
		}
		r.entries[alias] = Entry{Alias: alias, Kind: kind, Target: target}
	}
	return r, nil
}

// FromMap builds a Registry from alias to target spec pairs.
func FromMap(m map[string]string) (*Registry, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

var loadDefault = sync.OnceValue(func() *Registry {
	r, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("embedded plugin registry: %v", err))
	}
	return r
})

// Default returns the compiled-in registry.
func Default() *Registry {
	return loadDefault()
}

// Lookup returns the entry for alias.
func (r *Registry) Lookup(alias string) (Entry, bool) {
	e, ok := r.entries[alias]
	return e, ok
}

// Aliases returns all aliases in sorted order.
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.entries))
	for alias := range r.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// OfKind returns the entries whose kind matches, sorted by alias.
func (r *Registry) OfKind(kind string) []Entry {
	var out []Entry
	for _, alias := range r.Aliases() {
		if e := r.entries[alias]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
