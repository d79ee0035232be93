package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/study-share/internal/persistence"
)

var migrationsDir string

// migrateCmd applies the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply every .sql file in the migrations directory in name order.
The files are idempotent, so running this repeatedly is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		pg, err := env.connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		dir := migrationsDir
		if dir == "" {
			dir = env.cfg.Postgres.MigrationsDir
		}
		if err := persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), dir, env.logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied from %s\n", dir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "Migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	rootCmd.AddCommand(migrateCmd)
}
