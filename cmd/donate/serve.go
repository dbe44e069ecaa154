package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/flaboy/aira-donate/pkg/database"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr          string
		migrate       bool
		sweepInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the donation API",
		Long: `Start the donation API.

Examples:
  donate serve --config donate.yaml
  DONATE_RAZORPAY_KEY_ID=rzp_live_x donate serve --addr :9000 --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := startApp(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if migrate {
				if err := database.Migrate(app.DB); err != nil {
					return err
				}
			}
			if sweepInterval > 0 {
				go app.RunSweeper(ctx, sweepInterval)
			}
			if addr == "" {
				addr = app.Config.Server.Addr
			}
			return app.Server().Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run migrations before serving")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Hour, "expire abandoned checkouts this often (0 disables)")
	return cmd
}
