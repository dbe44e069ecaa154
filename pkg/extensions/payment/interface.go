package payment

import (
	"context"

	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
)

// Gateway is the capability set the reconciliation flow needs from a payment
// provider. Every call is a single network round trip; implementations must
// honour ctx cancellation.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*types.Order, error)
	CreatePlan(ctx context.Context, req types.CreatePlanRequest) (string, error)
	CreateSubscription(ctx context.Context, planID string, totalCount int, customerNotify bool, notes map[string]string) (*types.Subscription, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*types.Subscription, error)

	// 获取渠道名称
	GetChannelName() string
}
