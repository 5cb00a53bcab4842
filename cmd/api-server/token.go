package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rfqmarket/internal/auth"
	"rfqmarket/models"
)

// tokenCmd mints a bearer token for local testing against a running server.
func tokenCmd() *cobra.Command {
	var user, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireSecret(cfg); err != nil {
				return err
			}
			id, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user must be a uuid: %w", err)
			}
			token, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Mint(id, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (uuid)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleBuyer), "BUYER, MANUFACTURER or HYBRID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
