package payment

import (
	"context"
	"sync"

	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
)

const testSecret = "rzp_test_secret"

type mockGateway struct {
	mu sync.Mutex

	CreateOrderFunc        func(amountMinor int64, currency, receipt string, notes map[string]string) (*types.Order, error)
	CreatePlanFunc         func(req types.CreatePlanRequest) (string, error)
	CreateSubscriptionFunc func(planID string, totalCount int, customerNotify bool, notes map[string]string) (*types.Subscription, error)
	FetchSubscriptionFunc  func(subscriptionID string) (*types.Subscription, error)

	planCalls int
}

func (m *mockGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*types.Order, error) {
	return m.CreateOrderFunc(amountMinor, currency, receipt, notes)
}

func (m *mockGateway) CreatePlan(_ context.Context, req types.CreatePlanRequest) (string, error) {
	m.mu.Lock()
	m.planCalls++
	m.mu.Unlock()
	return m.CreatePlanFunc(req)
}

func (m *mockGateway) CreateSubscription(_ context.Context, planID string, totalCount int, customerNotify bool, notes map[string]string) (*types.Subscription, error) {
	return m.CreateSubscriptionFunc(planID, totalCount, customerNotify, notes)
}

func (m *mockGateway) FetchSubscription(_ context.Context, subscriptionID string) (*types.Subscription, error) {
	return m.FetchSubscriptionFunc(subscriptionID)
}

func (m *mockGateway) GetChannelName() string {
	return "mock"
}

func (m *mockGateway) PlanCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.planCalls
}
