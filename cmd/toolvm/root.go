package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/toolvm/internal/config"
	"github.com/dshills/toolvm/internal/logging"
	"github.com/dshills/toolvm/internal/plugin"
)

// app holds state shared by all commands, filled in before any command runs.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	settings *config.Settings
	logger   *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "toolvm",
		Short:         "Manage tool versions through vfox plugins",
		Version:       fmt.Sprintf("%s (%s, %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (default $XDG_CONFIG_HOME/toolvm/config.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(newPluginsCommand(a))
	root.AddCommand(newEnvCommand(a))
	root.AddCommand(newPathCommand(a))

	return root
}

// setup loads settings and installs the logger. Flags override settings.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		settings.LogFormat = a.logFormat
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = logging.Format(settings.LogFormat)
	cfg.Output = cmd.ErrOrStderr()
	logger, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("could not create logger: %w", err)
	}
	slog.SetDefault(logger)

	a.settings = settings
	a.logger = logger
	cmd.SetContext(logging.NewContext(cmd.Context(), logger))
	return nil
}

// pluginOptions returns the options every Plugin is built with.
func (a *app) pluginOptions() []plugin.Option {
	return []plugin.Option{
		plugin.WithDirs(a.settings.Dirs),
		plugin.WithLogger(logging.WithComponent(a.logger, "plugin")),
		plugin.WithTimeout(a.settings.VfoxTimeout),
	}
}

func (a *app) plugin(name string, opts ...plugin.Option) (*plugin.Plugin, error) {
	return plugin.New(name, append(a.pluginOptions(), opts...)...)
}

func (a *app) catalog() *plugin.Catalog {
	return plugin.NewCatalog(
		plugin.DirIndex{Root: a.settings.Dirs.Plugins},
		a.settings.IsDisabled,
		logging.WithComponent(a.logger, "catalog"),
		a.pluginOptions()...,
	)
}
