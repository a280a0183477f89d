// Package cmd implements the sonido-vox command line
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-vox/config"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Context carries the settings shared by all subcommands
type Context struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	ModelDir   string

	Settings *config.Settings
}

// RootCommand creates and returns the root command
func RootCommand(ctx *Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sonido-vox",
		Short:         "Voice feature extraction and risk screening",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx)

	rootCmd.AddCommand(
		serveCommand(ctx),
		extractCommand(ctx),
		predictCommand(ctx),
		healthCommand(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(ctx)
	}

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, ctx *Context) {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config file (default: config.yaml in ., ~/.sonido-vox, /etc/sonido-vox)")
	rootCmd.PersistentFlags().StringVar(&ctx.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&ctx.LogFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().StringVar(&ctx.ModelDir, "model-dir", "", "Directory holding scaler.json and classifier.json")
}

// initialize loads the settings, applies flag overrides and installs the
// global logger before any component is built
func initialize(ctx *Context) error {
	settings, err := config.Load(ctx.ConfigFile)
	if err != nil {
		return err
	}

	if ctx.LogLevel != "" {
		settings.Log.Level = ctx.LogLevel
	}
	if ctx.LogFormat != "" {
		settings.Log.Format = ctx.LogFormat
	}
	if ctx.ModelDir != "" {
		settings.Model.Dir = ctx.ModelDir
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := settings.Logger()
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)

	ctx.Settings = settings
	if settings.ConfigFile != "" {
		logging.Debug("Configuration loaded", logging.Fields{"file": settings.ConfigFile})
	}
	return nil
}
