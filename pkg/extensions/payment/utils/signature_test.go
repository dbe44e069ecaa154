package utils

import (
	"testing"

	"github.com/flaboy/aira-donate/pkg/errors"
)

const testSecret = "test_secret"

func TestVerifyOrderSignature(t *testing.T) {
	t.Parallel()

	sig := Sign("order_abc|pay_123", testSecret)

	ok, err := VerifyOrderSignature("order_abc", "pay_123", sig, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("Expected signature to verify")
	}

	ok, _ = VerifyOrderSignature("order_abc", "pay_123", sig, "other_secret")
	if ok {
		t.Error("Expected signature with wrong secret to fail")
	}

	// reversed concatenation belongs to subscriptions, not orders
	reversed := Sign("pay_123|order_abc", testSecret)
	ok, _ = VerifyOrderSignature("order_abc", "pay_123", reversed, testSecret)
	if ok {
		t.Error("Expected reversed payload to fail")
	}
}

func TestVerifyOrderSignatureSingleCharFlip(t *testing.T) {
	t.Parallel()

	sig := Sign("order_abc|pay_123", testSecret)
	for i := range sig {
		b := []byte(sig)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}
		ok, err := VerifyOrderSignature("order_abc", "pay_123", string(b), testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("Expected flipped signature at %d to fail", i)
		}
	}
}

func TestVerifySubscriptionSignature(t *testing.T) {
	t.Parallel()

	sig := Sign("pay_123|sub_456", testSecret)
	ok, err := VerifySubscriptionSignature("pay_123", "sub_456", sig, testSecret)
	if err != nil || !ok {
		t.Fatalf("Expected subscription signature to verify, got %v %v", ok, err)
	}

	ok, _ = VerifySubscriptionSignature("pay_123", "sub_456", Sign("sub_456|pay_123", testSecret), testSecret)
	if ok {
		t.Error("Expected order-style payload to fail for subscriptions")
	}
}

func TestVerifySignatureMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func() (bool, error)
	}{
		{"missing order", func() (bool, error) { return VerifyOrderSignature("", "pay_1", "sig", testSecret) }},
		{"missing payment", func() (bool, error) { return VerifyOrderSignature("order_1", "", "sig", testSecret) }},
		{"missing signature", func() (bool, error) { return VerifyOrderSignature("order_1", "pay_1", "", testSecret) }},
		{"missing secret", func() (bool, error) { return VerifyOrderSignature("order_1", "pay_1", "sig", "") }},
		{"missing subscription", func() (bool, error) { return VerifySubscriptionSignature("pay_1", "", "sig", testSecret) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.fn()
			if ok {
				t.Error("Expected false")
			}
			if !errors.Is(err, errors.ErrMissingField) {
				t.Errorf("Expected missing field error, got %v", err)
			}
		})
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign(string(body), "whsec")

	ok, err := VerifyWebhookSignature(body, sig, "whsec")
	if err != nil || !ok {
		t.Fatalf("Expected webhook signature to verify, got %v %v", ok, err)
	}
	ok, _ = VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "whsec")
	if ok {
		t.Error("Expected tampered body to fail")
	}
}
