package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/spf13/cobra"
)

// ServeCmd runs the HTTP API, webhook ingress and cron scheduler.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the trigger service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	cmd.Flags().String("host", "", "Host to bind the server to (overrides server.host)")
	cmd.Flags().Int("port", 0, "Port to run the server on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := config.FromContext(ctx)
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.Orchestrator.BaseURL == "" {
		return errors.New("orchestrator.base_url is required to serve (env: ORCHESTRATOR_BASE_URL)")
	}
	log := logger.FromContext(ctx)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	log.Info("Trigger service starting",
		"environment", cfg.Runtime.Environment,
		"database", a.store.Driver(),
		"redis", a.redis != nil,
		"scheduler", a.scheduler != nil,
	)
	if err := a.run(ctx); err != nil {
		return fmt.Errorf("trigger service stopped: %w", err)
	}
	log.Info("Trigger service stopped")
	return nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if changed(cmd, "host") {
		host, err := cmd.Flags().GetString("host")
		if err != nil {
			return err
		}
		cfg.Server.Host = host
	}
	if changed(cmd, "port") {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}
		cfg.Server.Port = port
	}
	return config.Validate(cfg)
}
