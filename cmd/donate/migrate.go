package main

import (
	"context"
	"fmt"

	"github.com/flaboy/aira-donate/pkg/database"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the donations table",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := startApp(context.Background(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := database.Migrate(app.DB); err != nil {
				return err
			}
			fmt.Println("Migration complete")
			return nil
		},
	}
}
