package serviceaction

import (
	"context"
	"encoding/json"
)

type Executor interface {
	Execute(ctx context.Context, args json.RawMessage) error
	GetType() ActionType
	Validate(args json.RawMessage) error
}

type ActionType string

const (
	ActionSweepAbandoned  ActionType = "sweep-abandoned"
	ActionExportDonations ActionType = "export-donations"
)
