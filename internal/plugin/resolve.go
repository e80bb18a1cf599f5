package plugin

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dshills/toolvm/internal/registry"
)

// MaxAliasDepth is the number of registry aliases followed while resolving
// one name.
const MaxAliasDepth = 2

// kindPrefix is the optional name prefix stripped before a registry lookup.
const kindPrefix = "vfox-"

// shorthand matches "owner/repo" GitHub shorthands. The owner excludes ':'
// and '@' so scp-style remotes such as git@host:o/r do not match.
var shorthand = regexp.MustCompile(`^([^/:@]+)/([^/]+)$`)

// ResolveSource returns the URL the plugin is installed from. The result may
// carry a "#ref" fragment.
func (p *Plugin) ResolveSource() (string, error) {
	if remote, ok := p.repo.RemoteURL(); ok {
		if _, err := url.Parse(remote); err != nil {
			return "", &Error{Kind: ErrResolution, Plugin: p.name, Msg: "malformed remote URL", Target: remote, Err: err}
		}
		return remote, nil
	}

	name := p.name
	if p.remote != "" {
		name = p.remote
	}
	src, err := ResolveName(p.registry, name)
	if err != nil {
		return "", &Error{Kind: ErrResolution, Plugin: p.name, Target: name, Err: err}
	}
	return src, nil
}

// ResolveName maps a plugin name, alias, shorthand, or URL to a source URL
// without consulting any working copy. reg may be nil.
func ResolveName(reg *registry.Registry, name string) (string, error) {
	return resolveName(reg, name, 0)
}

func resolveName(reg *registry.Registry, name string, depth int) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrResolution)
	}

	if reg != nil {
		if entry, ok := reg.Lookup(strings.TrimPrefix(name, kindPrefix)); ok && entry.Kind == "vfox" {
			if depth >= MaxAliasDepth {
				return "", fmt.Errorf("%w: alias chain through %q is longer than %d", ErrResolution, name, MaxAliasDepth)
			}
			return resolveName(reg, entry.Target, depth+1)
		}
	}

	// Local paths resolve to themselves; Install rejects them with
	// remediation advice.
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "~") {
		return name, nil
	}

	if m := shorthand.FindStringSubmatch(name); m != nil {
		return "https://github.com/" + m[1] + "/" + m[2], nil
	}

	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		return name, nil
	}

	return "", fmt.Errorf("%w: %q is not an alias, owner/repo shorthand, or URL", ErrResolution, name)
}
