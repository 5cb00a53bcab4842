package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfqmarket/db"
	"rfqmarket/internal/config"
	"rfqmarket/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rfq-server",
		Short:         "Manufacturing RFQ marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), tokenCmd(), manufacturerCmd())
	return root
}

// loadConfig reads the environment and sets up logging. Commands that only
// need part of the config validate what they use themselves.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func dbConfig(cfg *config.Config) db.Config {
	return db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		QueryTimeout:    cfg.Database.QueryTimeout,
	}
}

func requireSecret(cfg *config.Config) error {
	if len(cfg.Auth.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}
