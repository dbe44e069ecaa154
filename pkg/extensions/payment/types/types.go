package types

import (
	"github.com/shopspring/decimal"
)

// Plan is a recurring billing template keyed by its monthly amount.
type Plan struct {
	PlanID   string `json:"planId"`
	Amount   int64  `json:"amount"`
	IsCustom bool   `json:"isCustom"`
}

// CreatePlanRequest amounts are in minor units.
type CreatePlanRequest struct {
	Period      string
	Interval    int
	AmountMinor int64
	Currency    string
	Name        string
	Description string
}

type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is a one-time payment intent. Amount is in minor units as returned by the gateway.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status"`
}

type CustomerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact,omitempty"`
}

type SubscriptionRequest struct {
	PlanID   string
	Customer CustomerDetails
	Notes    map[string]string
}

// Subscription statuses reported by Razorpay.
const (
	SubscriptionCreated       = "created"
	SubscriptionAuthenticated = "authenticated"
	SubscriptionActive        = "active"
	SubscriptionPending       = "pending"
	SubscriptionHalted        = "halted"
	SubscriptionCancelled     = "cancelled"
	SubscriptionCompleted     = "completed"
	SubscriptionExpired       = "expired"
)

type Subscription struct {
	ID            string `json:"id"`
	PlanID        string `json:"planId"`
	Status        string `json:"status"`
	ShortURL      string `json:"shortUrl,omitempty"`
	TotalCount    int    `json:"totalCount"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// Callback carries the identifiers the checkout handler posts back.
// Exactly one of OrderID / SubscriptionID is expected.
type Callback struct {
	DonationID     string
	PaymentID      string
	OrderID        string
	SubscriptionID string
	Signature      string
}

func (c *Callback) IsSubscription() bool {
	return c.SubscriptionID != ""
}

// VerifyResult 支付回调处理结果
type VerifyResult struct {
	Success    bool   `json:"success"`
	DonationID string `json:"donationId,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
}

// DonationInput is what the donation form submits alongside a payment intent.
type DonationInput struct {
	DonorName      string
	DonorEmail     string
	DonorPhone     string
	Address        string
	PanCard        string
	Amount         decimal.Decimal
	Currency       string
	Message        string
	ReceiveUpdates *bool
	Notes          map[string]string
}

// WebhookEvent is the part of a Razorpay webhook the reconciliation needs.
type WebhookEvent struct {
	Event          string
	PaymentID      string
	OrderID        string
	SubscriptionID string
	ErrorReason    string
}

// Razorpay webhook event names handled by the reconciliation.
const (
	WebhookPaymentCaptured       = "payment.captured"
	WebhookPaymentFailed         = "payment.failed"
	WebhookOrderPaid             = "order.paid"
	WebhookSubscriptionActivated = "subscription.activated"
	WebhookSubscriptionCharged   = "subscription.charged"
	WebhookSubscriptionHalted    = "subscription.halted"
	WebhookSubscriptionCancelled = "subscription.cancelled"
)
