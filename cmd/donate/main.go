package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/flaboy/aira-donate/pkg/commence"
	"github.com/flaboy/aira-donate/pkg/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "donate",
		Short:         "Razorpay donation backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(jsonLogs bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg, jsonLogs)
	return cfg, nil
}

func setupLogger(cfg *config.Config, jsonLogs bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonLogs && !strings.EqualFold(cfg.Log.Format, "text") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func startApp(ctx context.Context, jsonLogs bool) (*commence.App, error) {
	cfg, err := loadConfig(jsonLogs)
	if err != nil {
		return nil, err
	}
	return commence.Start(ctx, cfg)
}
