package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/toolvm/internal/config/loader"
	"github.com/dshills/toolvm/internal/plugin"
	"github.com/dshills/toolvm/internal/progress"
)

// hookFlags are the flags shared by commands that evaluate plugin hooks.
type hookFlags struct {
	opts string
	yes  bool
}

func (f *hookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.opts, "opts", "", `plugin options as inline TOML (e.g. 'version = "1.2.0"')`)
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "install the plugin if it is missing")
}

// prepare returns the installed plugin and its decoded options.
func (f *hookFlags) prepare(a *app, cmd *cobra.Command, name string) (*plugin.Plugin, map[string]any, error) {
	opts, err := loader.Parse("--opts", []byte(f.opts))
	if err != nil {
		return nil, nil, err
	}

	p, err := a.plugin(name)
	if err != nil {
		return nil, nil, err
	}
	if f.yes {
		if err := p.EnsureInstalled(progress.NewTerminal(cmd.ErrOrStderr(), name), false); err != nil {
			return nil, nil, err
		}
	} else if err := p.RequireInstalled(); err != nil {
		return nil, nil, err
	}
	return p, opts, nil
}

func newEnvCommand(a *app) *cobra.Command {
	var flags hookFlags
	cmd := &cobra.Command{
		Use:   "env <plugin>",
		Short: "Print the environment variables a plugin sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opts, err := flags.prepare(a, cmd, args[0])
			if err != nil {
				return err
			}
			env, _, err := p.Env(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, kv := range env {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", kv.Key, kv.Value)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPathCommand(a *app) *cobra.Command {
	var flags hookFlags
	cmd := &cobra.Command{
		Use:   "path <plugin>",
		Short: "Print the PATH entries a plugin adds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opts, err := flags.prepare(a, cmd, args[0])
			if err != nil {
				return err
			}
			paths, err := p.MisePath(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
