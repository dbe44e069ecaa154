package razorpay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	rzpsdk "github.com/razorpay/razorpay-go"
	"github.com/spf13/cast"
)

const ChannelName = "razorpay"

// the subset of razorpay-go resources used here
type creator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type subscriptionAPI interface {
	creator
	Fetch(subscriptionID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	orders        creator
	plans         creator
	subscriptions subscriptionAPI
	timeout       time.Duration
}

// New creates the Razorpay channel. It is built once at process start and
// shared by every request.
func New(keyID, keySecret string, timeout time.Duration) *Razorpay {
	client := rzpsdk.NewClient(keyID, keySecret)
	slog.Info("[Razorpay] Payment channel initialized", "key_id", keyID)
	return &Razorpay{
		orders:        client.Order,
		plans:         client.Plan,
		subscriptions: client.Subscription,
		timeout:       timeout,
	}
}

func (r *Razorpay) GetChannelName() string {
	return ChannelName
}

// CreateOrder 创建一次性订单
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*types.Order, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": strings.ToUpper(currency),
		"receipt":  receipt,
		"notes":    toNotes(notes),
	}

	resp, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.orders.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	order := parseOrder(resp)
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay returned an order without id")
	}
	return order, nil
}

// CreatePlan 创建按月订阅计划, returns the plan id
func (r *Razorpay) CreatePlan(ctx context.Context, req types.CreatePlanRequest) (string, error) {
	data := map[string]interface{}{
		"period":   req.Period,
		"interval": req.Interval,
		"item": map[string]interface{}{
			"name":        req.Name,
			"amount":      req.AmountMinor,
			"currency":    strings.ToUpper(req.Currency),
			"description": req.Description,
		},
	}

	resp, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.plans.Create(data, nil)
	})
	if err != nil {
		return "", err
	}
	id := cast.ToString(resp["id"])
	if id == "" {
		return "", fmt.Errorf("razorpay returned a plan without id")
	}
	return id, nil
}

func (r *Razorpay) CreateSubscription(ctx context.Context, planID string, totalCount int, customerNotify bool, notes map[string]string) (*types.Subscription, error) {
	notify := 0
	if customerNotify {
		notify = 1
	}
	data := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     totalCount,
		"customer_notify": notify,
		"notes":           toNotes(notes),
	}

	resp, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.subscriptions.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	sub := parseSubscription(resp)
	if sub.ID == "" {
		return nil, fmt.Errorf("razorpay returned a subscription without id")
	}
	return sub, nil
}

func (r *Razorpay) FetchSubscription(ctx context.Context, subscriptionID string) (*types.Subscription, error) {
	resp, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.subscriptions.Fetch(subscriptionID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return parseSubscription(resp), nil
}

// call runs a blocking SDK request under the channel timeout. The SDK has no
// context support, so an abandoned request finishes in the background.
func (r *Razorpay) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		resp map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := fn()
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("razorpay request: %w", ctx.Err())
	case res := <-done:
		return res.resp, res.err
	}
}

func toNotes(notes map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		out[k] = v
	}
	return out
}

func parseOrder(resp map[string]interface{}) *types.Order {
	return &types.Order{
		ID:       cast.ToString(resp["id"]),
		Amount:   cast.ToInt64(resp["amount"]),
		Currency: cast.ToString(resp["currency"]),
		Receipt:  cast.ToString(resp["receipt"]),
		Status:   cast.ToString(resp["status"]),
	}
}

func parseSubscription(resp map[string]interface{}) *types.Subscription {
	return &types.Subscription{
		ID:         cast.ToString(resp["id"]),
		PlanID:     cast.ToString(resp["plan_id"]),
		Status:     cast.ToString(resp["status"]),
		ShortURL:   cast.ToString(resp["short_url"]),
		TotalCount: cast.ToInt(resp["total_count"]),
	}
}
