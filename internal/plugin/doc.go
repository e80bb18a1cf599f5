// Package plugin resolves, installs and runs vfox plugins.
//
// A Plugin is a view over a directory under the plugins root; the directory
// is the only state. A plugin is installed iff the directory exists.
//
// # Quick Start
//
//	p, err := plugin.New("bun", plugin.WithDirs(settings.Dirs))
//	if err != nil {
//	    return err
//	}
//	if err := p.EnsureInstalled(progress.NewTerminal(os.Stderr, "bun"), false); err != nil {
//	    return err
//	}
//	env, _, err := p.Env(ctx, map[string]any{"version": "1.1.0"})
//
// # Source Resolution
//
// ResolveSource tries, in order: the remote of the existing working copy,
// the explicit remote given with WithRemote, a registry alias (the "vfox-"
// prefix is ignored), an "owner/repo" GitHub shorthand, and finally the name
// parsed as a URL. Alias chains are followed at most MaxAliasDepth times.
//
// # Thread Safety
//
// Repository operations on one Plugin are serialized by its Repository.
// Two Plugin values for the same name do not share a lock; callers must not
// drive them concurrently.
//
// The Catalog scans the plugin index once; later calls return the same
// snapshot.
package plugin
