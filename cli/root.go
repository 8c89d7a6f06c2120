package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "triggers.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "triggers",
		Short:         "Trigger evaluation and job dispatch service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the configuration file")
	flags.String("env-file", defaultEnvFile, "Path to the environment variables file")
	flags.String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.Bool("log-source", false, "Include source file and line in logs")

	root.AddCommand(
		ServeCmd(),
		MigrateCmd(),
		ExecutionsCmd(),
	)
	return root
}

// SetupGlobalConfig loads the env file and configuration, applies logging
// flags and stores the config and logger on the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyLogFlags(cmd, cfg); err != nil {
		return err
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	if path != "" {
		log.Debug("Configuration loaded", "config_file", path)
	}
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}

// resolveConfigPath returns an empty path when the default file is absent.
// An explicitly requested file must exist.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	f := cmd.Flag("config")
	if f == nil {
		return "", nil
	}
	path := f.Value.String()
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !f.Changed {
			return "", nil
		}
		return "", fmt.Errorf("config file %s: %w", path, err)
	}
	return path, nil
}

func applyLogFlags(cmd *cobra.Command, cfg *config.Config) error {
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	if level != "" {
		cfg.Runtime.LogLevel = level
	}
	if changed(cmd, "log-json") {
		cfg.Runtime.LogJSON = logJSON
	}
	if changed(cmd, "log-source") {
		cfg.Runtime.LogSource = logSource
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid logging flags: %w", err)
	}
	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
