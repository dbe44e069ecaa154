package payment

import (
	"context"
	"log/slog"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
)

// Verifier authenticates checkout callbacks. Client supplied status fields
// are never consulted.
type Verifier struct {
	gateway Gateway
	secret  string
}

func NewVerifier(gateway Gateway, secret string) *Verifier {
	return &Verifier{gateway: gateway, secret: secret}
}

// Verify returns false on a signature mismatch. For subscriptions the live
// gateway status must be active before the signature is checked.
func (v *Verifier) Verify(ctx context.Context, cb types.Callback) (bool, error) {
	if !cb.IsSubscription() {
		return utils.VerifyOrderSignature(cb.OrderID, cb.PaymentID, cb.Signature, v.secret)
	}

	if cb.PaymentID == "" {
		return false, errors.MissingField("razorpay_payment_id")
	}
	if cb.Signature == "" {
		return false, errors.MissingField("razorpay_signature")
	}

	sub, err := v.gateway.FetchSubscription(ctx, cb.SubscriptionID)
	if err != nil {
		slog.Error("[Verifier] FetchSubscription failed", "subscription_id", cb.SubscriptionID, "error", err)
		return false, errors.Gateway(err)
	}
	if sub.Status != types.SubscriptionActive {
		slog.Warn("[Verifier] Subscription not active", "subscription_id", cb.SubscriptionID, "status", sub.Status)
		return false, errors.Newf(errors.KindSubscriptionNotActive, "Subscription is not active (status: %s)", sub.Status)
	}

	return utils.VerifySubscriptionSignature(cb.PaymentID, cb.SubscriptionID, cb.Signature, v.secret)
}

// VerifyWebhook checks a server-to-server notification body.
func (v *Verifier) VerifyWebhook(body []byte, signature, webhookSecret string) (bool, error) {
	return utils.VerifyWebhookSignature(body, signature, webhookSecret)
}
