package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/config"
	"github.com/spec-kit/study-share/internal/observability"
	"github.com/spec-kit/study-share/internal/persistence"
)

var (
	// Global flags
	dsn     string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "study-share-admin",
	Short: "Operator tasks for the Global Study Share backend",
	Long: `Operator tasks that run outside the HTTP server: applying the schema,
granting moderator roles and retrying failed welcome mail.

Configuration is read from the same environment (and .env file) as the server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "db", "", "PostgreSQL DSN (defaults to POSTGRES_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// environment is what every command needs from configuration.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if verbose {
		cfg.Logger.Level = "debug"
	} else {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger}, nil
}

// connect opens the database; the operator commands have no in-memory mode.
func (e *environment) connect(ctx context.Context) (*persistence.Postgres, error) {
	if e.cfg.Postgres.DSN == "" {
		return nil, errors.New("no database configured: set POSTGRES_DSN or pass --db")
	}
	return persistence.NewPostgres(ctx, e.cfg.Postgres, e.logger)
}
