package serviceaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/flaboy/aira-donate/pkg/export"
)

// Sweeper fails checkouts the donor abandoned.
type Sweeper interface {
	SweepAbandoned(ctx context.Context) (int64, error)
}

type SweepExecutor struct {
	sweeper Sweeper
}

func NewSweepExecutor(sweeper Sweeper) *SweepExecutor {
	return &SweepExecutor{sweeper: sweeper}
}

func (e *SweepExecutor) GetType() ActionType {
	return ActionSweepAbandoned
}

func (e *SweepExecutor) Validate(json.RawMessage) error {
	return nil
}

func (e *SweepExecutor) Execute(ctx context.Context, _ json.RawMessage) error {
	n, err := e.sweeper.SweepAbandoned(ctx)
	if err != nil {
		return err
	}
	slog.Info("[ServiceAction] Sweep finished", "expired", n)
	return nil
}

type ExportArgs struct {
	Path string `json:"path"`
}

// ExportExecutor writes the donations workbook to a file.
type ExportExecutor struct {
	source   export.DonationSource
	publicID export.PublicID
}

func NewExportExecutor(source export.DonationSource, publicID export.PublicID) *ExportExecutor {
	return &ExportExecutor{source: source, publicID: publicID}
}

func (e *ExportExecutor) GetType() ActionType {
	return ActionExportDonations
}

func (e *ExportExecutor) Validate(args json.RawMessage) error {
	var a ExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}
	if a.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

func (e *ExportExecutor) Execute(ctx context.Context, args json.RawMessage) error {
	var a ExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}

	f, err := os.Create(a.Path)
	if err != nil {
		return err
	}
	n, err := export.WriteDonationsXLSX(ctx, e.source, e.publicID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export donations: %w", err)
	}
	slog.Info("[ServiceAction] Export finished", "path", a.Path, "rows", n)
	return nil
}
