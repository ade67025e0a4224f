// Package cli defines the command-line interface for pyright-analysis-action.
package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mjpieters/pyright-analysis-action/internal/env"
	"github.com/mjpieters/pyright-analysis-action/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// Options stores global CLI options shared between commands.
type Options struct {
	EnvFile  string
	LogLevel logging.Level
	// Vars is the resolved environment: process variables over the env file.
	Vars env.Vars

	publisher  publisher
	httpClient *http.Client
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		LogLevel: logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command; it runs the action itself.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := newActionCommand(opts)
	cmd.Version = Version
	cmd.SilenceUsage = true
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		vars, err := env.Resolve(opts.EnvFile)
		if err != nil {
			return err
		}
		opts.Vars = vars

		envCfg := baseEnv{}
		if err := parseEnv(&envCfg, vars); err != nil {
			return err
		}
		levelValue := cmd.Flag("log-level").Value.String()
		if !cmd.Flags().Changed("log-level") && envPresent(vars, "INPUT_LOG_LEVEL") {
			levelValue = envCfg.LogLevel
		}
		runnerDebug, _ := parseEnvBool(envCfg.RunnerDebug)

		level := logging.Resolve(levelValue, runnerDebug)
		opts.LogLevel = level
		logger = logging.NewLogger(cmd.ErrOrStderr(), level)
		cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
		logger.Debug("logger initialized", "level", level)
		return nil
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Load variables from a .env file; the process environment takes precedence")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
