package cli

import (
	"fmt"

	"github.com/compozy/triggers/engine/infra/postgres"
	"github.com/compozy/triggers/engine/infra/repo"
	"github.com/compozy/triggers/engine/infra/sqlite"
	"github.com/compozy/triggers/pkg/config"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/spf13/cobra"
)

// MigrateCmd applies the embedded schema migrations for the configured driver.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("status", false, "Print the current schema version instead of migrating (postgres only)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)
	rc := repoConfig(cfg)
	status, err := cmd.Flags().GetBool("status")
	if err != nil {
		return err
	}
	switch rc.Driver {
	case repo.DriverPostgres:
		dsn := rc.Postgres.DSN()
		if status {
			version, err := postgres.MigrationStatus(ctx, dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
			return nil
		}
		if err := postgres.ApplyMigrationsWithLock(ctx, dsn); err != nil {
			return err
		}
	case repo.DriverSQLite:
		if status {
			return fmt.Errorf("--status is only supported for the postgres driver")
		}
		if err := sqlite.ApplyMigrations(ctx, rc.SQLite.Path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported database driver %q", rc.Driver)
	}
	log.Info("Migrations applied", "driver", rc.Driver)
	return nil
}
