package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
)

// PlanResolver maps a monthly amount to a gateway plan id.
type PlanResolver struct {
	gateway    Gateway
	predefined map[int64]string
	cache      PlanCache
	minimum    int64
	currency   string
}

func NewPlanResolver(gateway Gateway, predefined map[int64]string, cache PlanCache, minimum int64, currency string) *PlanResolver {
	if cache == nil {
		cache = NewMemoryPlanCache()
	}
	plans := make(map[int64]string, len(predefined))
	for amount, id := range predefined {
		plans[amount] = id
	}
	return &PlanResolver{
		gateway:    gateway,
		predefined: plans,
		cache:      cache,
		minimum:    minimum,
		currency:   currency,
	}
}

func (r *PlanResolver) Minimum() int64 {
	return r.minimum
}

// ResolvePlan returns the predefined plan for amount, or creates a monthly
// plan at the gateway on first use of an unknown amount. Concurrent misses
// for the same amount may each create a plan; the extra one is harmless.
func (r *PlanResolver) ResolvePlan(ctx context.Context, amount int64) (*types.Plan, error) {
	if err := r.Validate(amount); err != nil {
		return nil, err
	}

	if plan, ok := r.Lookup(ctx, amount); ok {
		return plan, nil
	}

	slog.Info("[PlanResolver] Creating custom plan", "amount", amount)
	id, err := r.gateway.CreatePlan(ctx, types.CreatePlanRequest{
		Period:      "monthly",
		Interval:    1,
		AmountMinor: amount * 100,
		Currency:    r.currency,
		Name:        fmt.Sprintf("Monthly SIP ₹%d", amount),
		Description: fmt.Sprintf("Custom monthly donation of ₹%d", amount),
	})
	if err != nil {
		slog.Error("[PlanResolver] CreatePlan failed", "amount", amount, "error", err)
		return nil, errors.Gateway(err)
	}
	r.cache.Set(ctx, amount, id)

	return &types.Plan{PlanID: id, Amount: amount, IsCustom: true}, nil
}

// Validate checks a monthly amount without touching the gateway.
func (r *PlanResolver) Validate(amount int64) error {
	if amount <= 0 {
		return errors.New(errors.KindInvalidAmount, "Invalid amount")
	}
	if amount < r.minimum {
		return errors.Newf(errors.KindBelowMinimum, "Minimum SIP amount is ₹%d", r.minimum)
	}
	return nil
}

// AmountFor finds the monthly amount of a predefined plan.
func (r *PlanResolver) AmountFor(planID string) (int64, bool) {
	for amount, id := range r.predefined {
		if id == planID {
			return amount, true
		}
	}
	return 0, false
}

// Lookup returns the known plan for amount without creating one.
func (r *PlanResolver) Lookup(ctx context.Context, amount int64) (*types.Plan, bool) {
	if id, ok := r.predefined[amount]; ok {
		return &types.Plan{PlanID: id, Amount: amount, IsCustom: false}, true
	}
	if id, ok := r.cache.Get(ctx, amount); ok {
		return &types.Plan{PlanID: id, Amount: amount, IsCustom: true}, true
	}
	return nil, false
}
