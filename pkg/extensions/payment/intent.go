package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/models"
	"github.com/google/uuid"
)

// SubscriptionCycles is the fixed length of a monthly SIP.
const SubscriptionCycles = 12

// IntentBuilder creates orders and subscriptions at the gateway. It keeps no
// local state; donation records are owned by the Manager.
type IntentBuilder struct {
	gateway         Gateway
	defaultCurrency string
}

func NewIntentBuilder(gateway Gateway, defaultCurrency string) *IntentBuilder {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &IntentBuilder{gateway: gateway, defaultCurrency: defaultCurrency}
}

// CreateOrder 创建一次性支付订单
func (b *IntentBuilder) CreateOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	if !utils.IsPositive(req.Amount) {
		return nil, errors.New(errors.KindInvalidAmount, "Invalid amount")
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = b.defaultCurrency
	}
	receipt := req.Receipt
	if receipt == "" {
		receipt = "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	}

	notes := copyNotes(req.Notes)
	notes["payment_type"] = string(models.PaymentTypeOneTime)

	amountMinor := utils.ToMinorUnits(req.Amount)
	slog.Info("[IntentBuilder] Creating order", "amount", amountMinor, "currency", currency)
	order, err := b.gateway.CreateOrder(ctx, amountMinor, currency, receipt, notes)
	if err != nil {
		slog.Error("[IntentBuilder] CreateOrder failed", "error", err)
		return nil, errors.Gateway(err)
	}
	return order, nil
}

// CreateSubscription 创建按月订阅 (12 cycles, customer notified by the gateway)
func (b *IntentBuilder) CreateSubscription(ctx context.Context, req types.SubscriptionRequest) (*types.Subscription, error) {
	switch {
	case req.PlanID == "":
		return nil, errors.MissingField("planId")
	case req.Customer.Name == "":
		return nil, errors.MissingField("customerDetails.name")
	case req.Customer.Email == "":
		return nil, errors.MissingField("customerDetails.email")
	}

	notes := copyNotes(req.Notes)
	notes["donor_name"] = req.Customer.Name
	notes["donor_email"] = req.Customer.Email
	if req.Customer.Contact != "" {
		notes["donor_phone"] = req.Customer.Contact
	}
	notes["payment_type"] = string(models.PaymentTypeMonthlySIP)

	slog.Info("[IntentBuilder] Creating subscription", "plan_id", req.PlanID)
	sub, err := b.gateway.CreateSubscription(ctx, req.PlanID, SubscriptionCycles, true, notes)
	if err != nil {
		slog.Error("[IntentBuilder] CreateSubscription failed", "plan_id", req.PlanID, "error", err)
		return nil, errors.Gateway(err)
	}
	sub.CustomerName = req.Customer.Name
	sub.CustomerEmail = req.Customer.Email
	if sub.PlanID == "" {
		sub.PlanID = req.PlanID
	}
	return sub, nil
}

func copyNotes(notes map[string]string) map[string]string {
	out := make(map[string]string, len(notes)+4)
	for k, v := range notes {
		out[k] = v
	}
	return out
}
