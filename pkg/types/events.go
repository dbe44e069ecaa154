package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type DonationEventType string

const (
	DonationCompleted DonationEventType = "donation.completed"
	DonationFailed    DonationEventType = "donation.failed"
)

// DonationEvent is published after a donation reaches a terminal status.
// Receipt mailers and CRM sync consume it.
type DonationEvent struct {
	Type           DonationEventType `json:"type"`
	DonationID     string            `json:"donation_id"`
	DonorName      string            `json:"donor_name"`
	DonorEmail     string            `json:"donor_email"`
	PanCard        string            `json:"pan_card,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentType    string            `json:"payment_type"`
	PaymentID      string            `json:"payment_id,omitempty"`
	OrderID        string            `json:"order_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	ReceiveUpdates bool              `json:"receive_updates"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
