package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// POST webhooks/razorpay
func (s *Server) razorpayWebhook(c *gin.Context) error {
	if s.opts.WebhookSecret == "" {
		return errors.New(errors.KindNotFound, "Webhooks are not enabled")
	}
	body, err := c.GetRawData()
	if err != nil {
		return errors.New(errors.KindValidation, "Invalid request body")
	}

	ok, err := s.payments.Verifier().VerifyWebhook(body, c.GetHeader(razorpaySignatureHeader), s.opts.WebhookSecret)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("[Webhook] Signature mismatch")
		return errors.ErrSignatureMismatch
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return errors.New(errors.KindValidation, "Invalid request body")
	}
	ev := parseWebhook(raw)
	slog.Info("[Webhook] Received", "event", ev.Event, "payment_id", ev.PaymentID, "order_id", ev.OrderID, "subscription_id", ev.SubscriptionID)

	if err := s.payments.ApplyWebhook(c.Request.Context(), ev); err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
	return nil
}

// parseWebhook reads {event, payload:{payment:{entity}, subscription:{entity}}}.
func parseWebhook(raw map[string]interface{}) types.WebhookEvent {
	payload := cast.ToStringMap(raw["payload"])
	payment := entity(payload, "payment")
	subscription := entity(payload, "subscription")
	order := entity(payload, "order")

	ev := types.WebhookEvent{
		Event:          cast.ToString(raw["event"]),
		PaymentID:      cast.ToString(payment["id"]),
		OrderID:        cast.ToString(payment["order_id"]),
		SubscriptionID: cast.ToString(subscription["id"]),
		ErrorReason:    cast.ToString(payment["error_reason"]),
	}
	if ev.OrderID == "" {
		ev.OrderID = cast.ToString(order["id"])
	}
	if ev.SubscriptionID == "" {
		ev.SubscriptionID = cast.ToString(payment["subscription_id"])
	}
	return ev
}

func entity(payload map[string]interface{}, name string) map[string]interface{} {
	return cast.ToStringMap(cast.ToStringMap(payload[name])["entity"])
}
