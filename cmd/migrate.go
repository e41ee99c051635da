package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-engine/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	pool := app.postgres.PoolHandle()
	if pool == nil {
		return fmt.Errorf("POSTGRES_DSN not configured")
	}
	return persistence.RunMigrations(cmd.Context(), pool, app.cfg.Postgres.MigrationsDir, app.logger)
}
