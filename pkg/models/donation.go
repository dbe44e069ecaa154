package models

import (
	"time"

	"github.com/flaboy/aira-donate/pkg/database"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s DonationStatus) IsTerminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusFailed
}

type PaymentType string

const (
	PaymentTypeOneTime    PaymentType = "one_time"
	PaymentTypeMonthlySIP PaymentType = "monthly_sip"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeOneTime || t == PaymentTypeMonthlySIP
}

// Failure reasons stored on failed donations.
const (
	FailureSignatureMismatch     = "signature_mismatch"
	FailureSubscriptionNotActive = "subscription_not_active"
	FailureGatewayError          = "gateway_error"
	FailureVerificationError     = "verification_error"
	FailurePaymentFailed         = "payment_failed"
	FailureExpired               = "expired"
)

type Donation struct {
	ID uint `gorm:"primaryKey" json:"-"`

	DonorName  string `gorm:"size:200;not null" json:"donorName"`
	DonorEmail string `gorm:"size:200;not null;index" json:"donorEmail"`
	DonorPhone string `gorm:"size:30" json:"donorPhone,omitempty"`
	Address    string `gorm:"type:text" json:"address,omitempty"`
	PanCard    string `gorm:"size:20" json:"panCard,omitempty"`

	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency string          `gorm:"size:10;default:'INR'" json:"currency"`

	PaymentType   PaymentType `gorm:"size:20;default:'one_time'" json:"paymentType"`
	PaymentMethod string      `gorm:"size:50;default:'razorpay'" json:"paymentMethod"`

	// 外部支付系统ID
	PaymentID      *string `gorm:"size:100;uniqueIndex" json:"paymentId,omitempty"`
	OrderID        string  `gorm:"size:100;index" json:"orderId,omitempty"`
	SubscriptionID string  `gorm:"size:100;index" json:"subscriptionId,omitempty"`
	PlanID         string  `gorm:"size:100" json:"planId,omitempty"`

	Status        DonationStatus `gorm:"size:20;default:'pending';index" json:"status"`
	FailureReason string         `gorm:"size:50" json:"failureReason,omitempty"`

	Message        string            `gorm:"type:text" json:"message,omitempty"`
	ReceiveUpdates bool              `gorm:"not null" json:"receiveUpdates"`
	Notes          datatypes.JSONMap `json:"notes,omitempty"`

	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (d *Donation) TableName() string {
	return "donations"
}

// PaymentIDValue returns the gateway payment id or "".
func (d *Donation) PaymentIDValue() string {
	if d.PaymentID == nil {
		return ""
	}
	return *d.PaymentID
}

func init() {
	database.RegisterAutoMigrateModels(&Donation{})
}
