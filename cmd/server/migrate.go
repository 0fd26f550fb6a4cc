package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/config"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
	"github.com/fekuna/omnipos-marketplace-service/migrations"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "print migration files without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateList {
		names, err := migrations.Pending()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	}

	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	db, err := postgres.NewPostgres(postgresConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrations applied", zap.String("db_name", cfg.Postgres.DBName))
	return nil
}
