package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/types"
	"github.com/valyala/fasthttp"
)

const SignatureHeader = "X-Donate-Signature"

// WebhookHandler POSTs donation events to an HTTP endpoint, signed with
// HMAC-SHA256 of the body when a secret is configured.
type WebhookHandler struct {
	url     string
	secret  string
	timeout time.Duration
}

func NewWebhookHandler(url, secret string, timeout time.Duration) *WebhookHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookHandler{url: url, secret: secret, timeout: timeout}
}

func (h *WebhookHandler) OnDonationCompleted(ctx context.Context, event *types.DonationEvent) error {
	return h.post(ctx, event)
}

func (h *WebhookHandler) OnDonationFailed(ctx context.Context, event *types.DonationEvent) error {
	return h.post(ctx, event)
}

func (h *WebhookHandler) post(ctx context.Context, event *types.DonationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Donate-Event", string(event.Type))
	if h.secret != "" {
		req.Header.Set(SignatureHeader, utils.Sign(string(body), h.secret))
	}
	req.SetBody(body)

	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("post %s webhook: %w", event.Type, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook %s returned status %d", h.url, resp.StatusCode())
	}

	slog.Info("[Events] Delivered webhook", "type", event.Type, "donation_id", event.DonationID)
	return nil
}
