package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/flaboy/aira-donate/pkg/errors"
)

// Sign returns the hex encoded HMAC-SHA256 of payload.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func equalSignature(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}

// VerifyOrderSignature checks a checkout callback for a one-time order.
// Razorpay signs "{order_id}|{payment_id}".
func VerifyOrderSignature(orderID, paymentID, signature, secret string) (bool, error) {
	if err := requireFields(
		"razorpay_order_id", orderID,
		"razorpay_payment_id", paymentID,
		"razorpay_signature", signature,
		"secret", secret,
	); err != nil {
		return false, err
	}
	return equalSignature(Sign(orderID+"|"+paymentID, secret), signature), nil
}

// VerifySubscriptionSignature checks a checkout callback for a subscription.
// Razorpay signs "{payment_id}|{subscription_id}".
func VerifySubscriptionSignature(paymentID, subscriptionID, signature, secret string) (bool, error) {
	if err := requireFields(
		"razorpay_payment_id", paymentID,
		"razorpay_subscription_id", subscriptionID,
		"razorpay_signature", signature,
		"secret", secret,
	); err != nil {
		return false, err
	}
	return equalSignature(Sign(paymentID+"|"+subscriptionID, secret), signature), nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) (bool, error) {
	if signature == "" {
		return false, errors.MissingField("X-Razorpay-Signature")
	}
	if secret == "" {
		return false, errors.MissingField("webhook secret")
	}
	return equalSignature(Sign(string(body), secret), signature), nil
}

// requireFields takes name, value pairs and reports the first empty value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return errors.MissingField(pairs[i])
		}
	}
	return nil
}
