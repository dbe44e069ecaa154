package events

import (
	"context"
	"log/slog"

	"github.com/flaboy/aira-donate/pkg/types"
)

type EventHandler interface {
	OnDonationCompleted(ctx context.Context, event *types.DonationEvent) error
	OnDonationFailed(ctx context.Context, event *types.DonationEvent) error
}

// Dispatcher fans an event out to every registered handler. Handler errors
// are logged and never undo the status change that triggered the event.
type Dispatcher struct {
	handlers []EventHandler
}

func NewDispatcher(handlers ...EventHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

func (d *Dispatcher) Register(h EventHandler) {
	d.handlers = append(d.handlers, h)
}

func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.handlers)
}

func (d *Dispatcher) EmitDonationCompleted(ctx context.Context, event *types.DonationEvent) {
	if d == nil {
		return
	}
	event.Type = types.DonationCompleted
	for _, h := range d.handlers {
		if err := h.OnDonationCompleted(ctx, event); err != nil {
			slog.Error("[Events] OnDonationCompleted failed", "donation_id", event.DonationID, "error", err)
		}
	}
}

func (d *Dispatcher) EmitDonationFailed(ctx context.Context, event *types.DonationEvent) {
	if d == nil {
		return
	}
	event.Type = types.DonationFailed
	for _, h := range d.handlers {
		if err := h.OnDonationFailed(ctx, event); err != nil {
			slog.Error("[Events] OnDonationFailed failed", "donation_id", event.DonationID, "error", err)
		}
	}
}
