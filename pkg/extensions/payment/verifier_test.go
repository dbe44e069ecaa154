package payment

import (
	"context"
	"errors"
	"testing"

	donateerrors "github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
)

func subscriptionStatus(status string) *mockGateway {
	return &mockGateway{FetchSubscriptionFunc: func(id string) (*types.Subscription, error) {
		return &types.Subscription{ID: id, Status: status}, nil
	}}
}

func TestVerifyOrderCallback(t *testing.T) {
	t.Parallel()

	v := NewVerifier(&mockGateway{}, testSecret)
	cb := types.Callback{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: utils.Sign("order_1|pay_1", testSecret),
	}

	ok, err := v.Verify(context.Background(), cb)
	if err != nil || !ok {
		t.Fatalf("Expected valid signature, got %v, %v", ok, err)
	}

	cb.PaymentID = "pay_2"
	ok, err = v.Verify(context.Background(), cb)
	if err != nil || ok {
		t.Errorf("Expected mismatch for altered payment id, got %v, %v", ok, err)
	}
}

func TestVerifySubscriptionCallback(t *testing.T) {
	t.Parallel()

	cb := types.Callback{
		SubscriptionID: "sub_1",
		PaymentID:      "pay_1",
		Signature:      utils.Sign("pay_1|sub_1", testSecret),
	}

	ok, err := NewVerifier(subscriptionStatus(types.SubscriptionActive), testSecret).Verify(context.Background(), cb)
	if err != nil || !ok {
		t.Fatalf("Expected active subscription to verify, got %v, %v", ok, err)
	}

	for _, status := range []string{types.SubscriptionCreated, types.SubscriptionAuthenticated, types.SubscriptionHalted} {
		_, err := NewVerifier(subscriptionStatus(status), testSecret).Verify(context.Background(), cb)
		if !donateerrors.Is(err, donateerrors.ErrSubscriptionNotActive) {
			t.Errorf("Expected not active for %s, got %v", status, err)
		}
		if msg, _ := donateerrors.MessageOf(err); msg != "Subscription is not active (status: "+status+")" {
			t.Errorf("Unexpected message '%s'", msg)
		}
	}
}

func TestVerifySubscriptionGatewayError(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{FetchSubscriptionFunc: func(string) (*types.Subscription, error) {
		return nil, errors.New("The id provided does not exist")
	}}
	cb := types.Callback{SubscriptionID: "sub_x", PaymentID: "pay_1", Signature: "abc"}

	_, err := NewVerifier(gw, testSecret).Verify(context.Background(), cb)
	if !donateerrors.Is(err, donateerrors.ErrGateway) {
		t.Errorf("Expected gateway error, got %v", err)
	}
}

func TestVerifySubscriptionMissingFieldsSkipsGateway(t *testing.T) {
	t.Parallel()

	gw := &mockGateway{FetchSubscriptionFunc: func(string) (*types.Subscription, error) {
		t.Fatal("gateway must not be called")
		return nil, nil
	}}
	_, err := NewVerifier(gw, testSecret).Verify(context.Background(), types.Callback{SubscriptionID: "sub_1", PaymentID: "pay_1"})
	if !donateerrors.Is(err, donateerrors.ErrMissingField) {
		t.Errorf("Expected missing field, got %v", err)
	}
}
