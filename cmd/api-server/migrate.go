package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfqmarket/db"
	"rfqmarket/db/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := db.Connect(dbConfig(cfg))
			if err != nil {
				return fmt.Errorf("cannot connect to DB: %w", err)
			}
			defer conn.Close()

			switch args[0] {
			case "up":
				return migrations.Up(conn.DB)
			case "down":
				return migrations.Down(conn.DB)
			case "status":
				return migrations.Status(conn.DB)
			}
			return fmt.Errorf("unknown migrate command %q", args[0])
		},
	}
}
