package cli

import (
	"context"
	"fmt"

	"github.com/compozy/triggers/engine/core"
	"github.com/compozy/triggers/engine/infra/repo"
	"github.com/compozy/triggers/engine/trigger"
	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/spf13/cobra"
)

// ExecutionsCmd prints the newest executions of one trigger.
func ExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions <trigger-id>",
		Short: "List the recent executions of a trigger",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecutions,
	}
	cmd.Flags().Int("limit", trigger.DefaultExecutionsLimit, "Maximum number of executions to print")
	cmd.Flags().StringP("output", "o", OutputFormatJSON, "Output format (json, yaml)")
	return cmd
}

func runExecutions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if format != OutputFormatJSON && format != OutputFormatYAML {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	store, err := repo.Open(ctx, repoConfig(config.FromContext(ctx)), nil)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to close store", "error", err)
		}
	}()
	id := core.ID(args[0])
	if _, err := store.Triggers().Get(ctx, id); err != nil {
		return fmt.Errorf("trigger %s: %w", id, err)
	}
	// Listing executions never reaches the orchestrator.
	svc := trigger.NewService(store.Triggers(), store.Executions(), nil)
	execs, err := svc.GetExecutions(ctx, id, limit)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), format, execs)
}
