package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rfqmarket/db"
	"rfqmarket/models"
)

// manufacturerCmd moderates manufacturer profiles. Profiles saved through the
// API wait in PENDING_REVIEW and stay out of search until activated.
func manufacturerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manufacturer",
		Short: "Review manufacturer profiles",
	}
	cmd.AddCommand(
		manufacturerStatusCmd("activate", "List a manufacturer in search results", models.ManufacturerActive),
		manufacturerStatusCmd("suspend", "Hide a manufacturer from search results", models.ManufacturerSuspended),
	)
	return cmd
}

func manufacturerStatusCmd(use, short string, status models.ManufacturerStatus) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			return setManufacturerStatus(cmd.Context(), db.NewStorage(conn, cfg.Database.QueryTimeout), id, status)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "manufacturer user id (uuid)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

type statusSetter interface {
	SetManufacturerStatus(ctx context.Context, id uuid.UUID, status models.ManufacturerStatus) error
}

func setManufacturerStatus(ctx context.Context, s statusSetter, raw string, status models.ManufacturerStatus) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("--id must be a uuid: %w", err)
	}
	if err := s.SetManufacturerStatus(ctx, id, status); err != nil {
		return fmt.Errorf("manufacturer %s: %w", id, err)
	}
	log.Info().Str("manufacturer_id", id.String()).Str("status", string(status)).Msg("manufacturer status updated")
	return nil
}
