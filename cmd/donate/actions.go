package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flaboy/aira-donate/pkg/serviceaction"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark pending donations older than donation.pending_ttl as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := startApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Actions.Execute(ctx, serviceaction.ActionSweepAbandoned, nil)
		},
	}
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all donations to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := startApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			if output == "" {
				output = fmt.Sprintf("donations-%s.xlsx", time.Now().Format("20060102"))
			}
			raw, err := json.Marshal(serviceaction.ExportArgs{Path: output})
			if err != nil {
				return err
			}
			if err := app.Actions.Execute(ctx, serviceaction.ActionExportDonations, raw); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}
