package main

import (
	"errors"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/toolvm/internal/plugin"
	"github.com/dshills/toolvm/internal/progress"
	"github.com/dshills/toolvm/internal/registry"
)

// updateConcurrency bounds parallel updates of all plugins.
const updateConcurrency = 4

func newPluginsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"plugin", "p"},
		Short:   "Manage vfox plugins",
	}
	cmd.AddCommand(
		newPluginsInstallCommand(a),
		newPluginsUpdateCommand(a),
		newPluginsUninstallCommand(a),
		newPluginsLinkCommand(a),
		newPluginsListCommand(a),
		newPluginsListRemoteCommand(),
	)
	return cmd
}

// isSource reports whether arg is a URL, path or shorthand rather than a name.
func isSource(arg string) bool {
	return strings.ContainsAny(arg, "/:~")
}

func newPluginsInstallCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install <name|url> [url]",
		Short: "Install a plugin",
		Long: `Install a plugin from the registry, an owner/repo GitHub shorthand, or a git URL.
A "#ref" suffix on the source checks out that branch, tag or commit.`,
		Example: `  toolvm plugins install bun
  toolvm plugins install demo someone/vfox-demo#v1.0.0
  toolvm plugins install https://github.com/someone/vfox-demo.git`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, source := args[0], ""
			switch {
			case len(args) == 2:
				source = args[1]
			case isSource(name):
				name, source = plugin.NameFromSource(name), name
			}

			var opts []plugin.Option
			if source != "" {
				opts = append(opts, plugin.WithRemote(source))
			}
			p, err := a.plugin(name, opts...)
			if err != nil {
				return err
			}
			if p.IsInstalled() && !force {
				a.logger.Warn("plugin already installed, use --force to reinstall", "plugin", name)
				return nil
			}
			return p.EnsureInstalled(progress.NewTerminal(cmd.ErrOrStderr(), name), force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reinstall even if already installed")
	return cmd
}

func newPluginsUpdateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update [name[#ref]]...",
		Short: "Update plugins to a ref or their branch tip",
		Long:  "Update the named plugins, or every installed plugin when none are named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			type target struct {
				p   *plugin.Plugin
				ref string
			}
			var targets []target
			if len(args) == 0 {
				for _, p := range a.catalog().List() {
					targets = append(targets, target{p: p})
				}
			}
			for _, arg := range args {
				name, ref, _ := strings.Cut(arg, "#")
				p, err := a.plugin(name)
				if err != nil {
					return err
				}
				if err := p.RequireInstalled(); err != nil {
					return err
				}
				targets = append(targets, target{p: p, ref: ref})
			}

			var g errgroup.Group
			g.SetLimit(updateConcurrency)
			errs := make([]error, len(targets))
			for i, t := range targets {
				i, t := i, t
				g.Go(func() error {
					errs[i] = t.p.Update(progress.NewTerminal(cmd.ErrOrStderr(), t.p.Name()), t.ref)
					return nil
				})
			}
			_ = g.Wait()
			return errors.Join(errs...)
		},
	}
}

func newPluginsUninstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <name>...",
		Aliases: []string{"rm", "remove"},
		Short:   "Remove plugins",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				p, err := a.plugin(name)
				if err != nil {
					return err
				}
				if !p.IsInstalled() {
					a.logger.Warn("plugin is not installed", "plugin", name)
					continue
				}
				if err := p.Uninstall(progress.NewTerminal(cmd.ErrOrStderr(), name)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newPluginsLinkCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "link <name> <dir>",
		Short: "Install a local plugin directory as a symlink",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.plugin(args[0])
			if err != nil {
				return err
			}
			return p.Link(args[1], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing install")
	return cmd
}

func newPluginsListCommand(a *app) *cobra.Command {
	var urls bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List installed vfox plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			header := table.Row{"Plugin", "Version", "Ref", "SHA"}
			if urls {
				header = append(header, "URL")
			}
			t.AppendHeader(header)

			for _, p := range a.catalog().List() {
				ref, _ := p.CurrentAbbrevRef()
				sha, _ := p.CurrentShaShort()
				version := ""
				if md, err := p.Metadata(cmd.Context()); err == nil {
					version = md.Version
				} else {
					a.logger.Debug("could not read plugin metadata", "plugin", p.Name(), "error", err)
				}
				row := table.Row{p.Name(), version, ref, sha}
				if urls {
					remote, _ := p.RemoteURL()
					row = append(row, remote)
				}
				t.AppendRow(row)
			}

			style := table.StyleLight
			style.Options.DrawBorder = false
			t.SetStyle(style)
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&urls, "urls", "u", false, "show the git remote of each plugin")
	return cmd
}

func newPluginsListRemoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-remote",
		Short: "List the vfox plugins known to the built-in registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Alias", "Registry", "URL"})
			for _, e := range reg.OfKind("vfox") {
				url, err := plugin.ResolveName(reg, e.Alias)
				if err != nil {
					url = err.Error()
				}
				t.AppendRow(table.Row{e.Alias, e.Spec(), url})
			}

			style := table.StyleLight
			style.Options.DrawBorder = false
			t.SetStyle(style)
			t.Render()
			return nil
		},
	}
}
