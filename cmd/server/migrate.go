package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lodging-reservation/internal/config"
	"github.com/iliyamo/lodging-reservation/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the reservations table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.LoadDBConfig()
			db, err := database.Open(c.User, c.Pass, c.Host, c.Port, c.Name)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reservations schema is up to date")
			return nil
		},
	}
}
