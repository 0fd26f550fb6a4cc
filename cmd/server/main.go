package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fekuna/omnipos-marketplace-service/config"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "omnipos-marketplace",
		Short:         "Multi-tenant marketplace backend: catalog, inventory, POS orders and payments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logCfg := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.IsDevelopment() {
		logCfg.IsDevelopment = true
		logCfg.Encoding = cfg.Logger.Encoding
	} else if logCfg.Level == "debug" {
		logCfg.Level = "info"
	}
	return logger.NewZapLogger(logCfg)
}

func postgresConfig(cfg *config.Config) *postgres.Config {
	return &postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: config.Seconds(cfg.Postgres.ConnMaxLifetime),
		ConnMaxIdleTime: config.Seconds(cfg.Postgres.ConnMaxIdleTime),
	}
}
