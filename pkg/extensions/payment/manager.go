package payment

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/events"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/models"
	"github.com/flaboy/aira-donate/pkg/store"
	eventtypes "github.com/flaboy/aira-donate/pkg/types"
)

// DonationRepository is the persistence the reconciliation needs.
type DonationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	Get(ctx context.Context, id uint) (*models.Donation, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Donation, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Donation, error)
	AttachIntent(ctx context.Context, id uint, intent store.Intent) error
	UpdateStatus(ctx context.Context, id uint, upd store.StatusUpdate) (*models.Donation, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PaymentManager runs the donation reconciliation:
// pending record -> gateway intent -> checkout -> signature check -> completed | failed.
type PaymentManager struct {
	donations  DonationRepository
	plans      *PlanResolver
	intents    *IntentBuilder
	verifier   *Verifier
	ids        *utils.IDCodec
	events     *events.Dispatcher
	pendingTTL time.Duration
	now        func() time.Time
}

type ManagerOptions struct {
	Donations  DonationRepository
	Plans      *PlanResolver
	Intents    *IntentBuilder
	Verifier   *Verifier
	IDs        *utils.IDCodec
	Events     *events.Dispatcher
	PendingTTL time.Duration
}

// NewPaymentManager 创建支付管理器
func NewPaymentManager(opts ManagerOptions) *PaymentManager {
	return &PaymentManager{
		donations:  opts.Donations,
		plans:      opts.Plans,
		intents:    opts.Intents,
		verifier:   opts.Verifier,
		ids:        opts.IDs,
		events:     opts.Events,
		pendingTTL: opts.PendingTTL,
		now:        time.Now,
	}
}

func (pm *PaymentManager) Plans() *PlanResolver {
	return pm.plans
}

func (pm *PaymentManager) Intents() *IntentBuilder {
	return pm.intents
}

func (pm *PaymentManager) Verifier() *Verifier {
	return pm.verifier
}

func (pm *PaymentManager) IDs() *utils.IDCodec {
	return pm.ids
}

func (pm *PaymentManager) PublicID(d *models.Donation) string {
	return pm.ids.EncodeDonationID(d.ID)
}

type OneTimeResult struct {
	Donation *models.Donation
	Order    *types.Order
}

type SubscriptionResult struct {
	Donation     *models.Donation
	Plan         *types.Plan
	Subscription *types.Subscription
}

// StartOneTime creates a pending donation and the matching gateway order.
func (pm *PaymentManager) StartOneTime(ctx context.Context, in types.DonationInput) (*OneTimeResult, error) {
	if !utils.IsPositive(in.Amount) {
		return nil, errors.New(errors.KindInvalidAmount, "Invalid amount")
	}

	donation := newDonation(in, models.PaymentTypeOneTime)
	if err := pm.donations.Create(ctx, donation); err != nil {
		return nil, err
	}
	hashID := pm.PublicID(donation)

	notes := copyNotes(in.Notes)
	notes["donation_id"] = hashID
	notes["donor_email"] = donation.DonorEmail
	order, err := pm.intents.CreateOrder(ctx, types.OrderRequest{
		Amount:   donation.Amount,
		Currency: donation.Currency,
		Receipt:  hashID,
		Notes:    notes,
	})
	if err != nil {
		pm.markFailed(ctx, donation, models.FailureGatewayError, err)
		return nil, err
	}

	if err := pm.donations.AttachIntent(ctx, donation.ID, store.Intent{OrderID: order.ID}); err != nil {
		return nil, err
	}
	donation.OrderID = order.ID

	slog.Info("[PaymentManager] One-time donation awaiting checkout", "donation_id", hashID, "order_id", order.ID)
	return &OneTimeResult{Donation: donation, Order: order}, nil
}

// StartSubscription creates a pending monthly donation, resolves its plan and
// creates the gateway subscription. planID may name a plan the donor picked,
// which must be the known plan for the amount; otherwise the plan is resolved
// from the amount. The subscription id is stored before the donor pays.
func (pm *PaymentManager) StartSubscription(ctx context.Context, in types.DonationInput, planID string) (*SubscriptionResult, error) {
	if in.DonorName == "" {
		return nil, errors.MissingField("customerDetails.name")
	}
	if in.DonorEmail == "" {
		return nil, errors.MissingField("customerDetails.email")
	}
	if !in.Amount.IsInteger() {
		return nil, errors.New(errors.KindInvalidAmount, "Monthly amount must be a whole number")
	}
	amount := in.Amount.IntPart()
	if err := pm.plans.Validate(amount); err != nil {
		return nil, err
	}

	// a picked plan must bill exactly the recorded amount
	var plan *types.Plan
	if planID != "" {
		known, ok := pm.plans.Lookup(ctx, amount)
		if !ok || known.PlanID != planID {
			return nil, errors.Newf(errors.KindValidation, "Plan %s does not match amount ₹%d", planID, amount)
		}
		plan = known
	}

	donation := newDonation(in, models.PaymentTypeMonthlySIP)
	if err := pm.donations.Create(ctx, donation); err != nil {
		return nil, err
	}
	hashID := pm.PublicID(donation)

	if plan == nil {
		var err error
		plan, err = pm.plans.ResolvePlan(ctx, amount)
		if err != nil {
			pm.markFailed(ctx, donation, models.FailureGatewayError, err)
			return nil, err
		}
	}

	notes := copyNotes(in.Notes)
	notes["donation_id"] = hashID
	notes["amount"] = strconv.FormatInt(amount, 10)
	sub, err := pm.intents.CreateSubscription(ctx, types.SubscriptionRequest{
		PlanID: plan.PlanID,
		Customer: types.CustomerDetails{
			Name:    donation.DonorName,
			Email:   donation.DonorEmail,
			Contact: donation.DonorPhone,
		},
		Notes: notes,
	})
	if err != nil {
		pm.markFailed(ctx, donation, models.FailureGatewayError, err)
		return nil, err
	}

	intent := store.Intent{SubscriptionID: sub.ID, PlanID: plan.PlanID}
	if err := pm.donations.AttachIntent(ctx, donation.ID, intent); err != nil {
		return nil, err
	}
	donation.SubscriptionID = sub.ID
	donation.PlanID = plan.PlanID

	slog.Info("[PaymentManager] Subscription donation awaiting checkout",
		"donation_id", hashID, "subscription_id", sub.ID, "plan_id", plan.PlanID, "custom_plan", plan.IsCustom)
	return &SubscriptionResult{Donation: donation, Plan: plan, Subscription: sub}, nil
}

// Complete verifies a checkout callback and settles the donation it belongs
// to. A callback for an untracked payment is only verified.
func (pm *PaymentManager) Complete(ctx context.Context, cb types.Callback) (*types.VerifyResult, error) {
	donation, err := pm.findForCallback(ctx, cb)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if donation == nil && cb.DonationID != "" {
		return nil, errors.ErrNotFound
	}

	if donation != nil {
		if donation.Status.IsTerminal() {
			return nil, errors.InvalidTransition(string(donation.Status), string(models.DonationStatusCompleted))
		}
		// the ids stored at intent creation win over whatever the client sends
		if mismatch := bindStoredIDs(donation, &cb); mismatch {
			slog.Warn("[PaymentManager] Callback ids do not match donation", "donation_id", pm.PublicID(donation))
			pm.markFailed(ctx, donation, models.FailureSignatureMismatch, nil)
			return nil, errors.ErrSignatureMismatch
		}
	}

	ok, err := pm.verifier.Verify(ctx, cb)
	if err != nil {
		if errors.Is(err, errors.ErrMissingField) {
			return nil, err
		}
		if donation != nil {
			reason := models.FailureVerificationError
			if errors.Is(err, errors.ErrSubscriptionNotActive) {
				reason = models.FailureSubscriptionNotActive
			}
			pm.markFailed(ctx, donation, reason, err)
		}
		return nil, err
	}
	if !ok {
		slog.Warn("[PaymentManager] Signature mismatch", "payment_id", cb.PaymentID, "order_id", cb.OrderID, "subscription_id", cb.SubscriptionID)
		if donation != nil {
			pm.markFailed(ctx, donation, models.FailureSignatureMismatch, nil)
		}
		return nil, errors.ErrSignatureMismatch
	}

	result := &types.VerifyResult{Success: true, Message: "Payment verified successfully"}
	if donation == nil {
		slog.Info("[PaymentManager] Verified untracked payment", "payment_id", cb.PaymentID)
		return result, nil
	}

	updated, err := pm.donations.UpdateStatus(ctx, donation.ID, store.StatusUpdate{
		Status:         models.DonationStatusCompleted,
		PaymentID:      cb.PaymentID,
		SubscriptionID: cb.SubscriptionID,
	})
	if err != nil {
		return nil, err
	}
	pm.events.EmitDonationCompleted(ctx, pm.toEvent(updated))

	result.DonationID = pm.PublicID(updated)
	result.Status = string(updated.Status)
	slog.Info("[PaymentManager] Donation completed", "donation_id", result.DonationID, "payment_id", cb.PaymentID)
	return result, nil
}

// ApplyWebhook settles donations from verified server-to-server notifications.
// Notifications for donations already settled are ignored.
func (pm *PaymentManager) ApplyWebhook(ctx context.Context, ev types.WebhookEvent) error {
	var donation *models.Donation
	var err error
	switch {
	case ev.SubscriptionID != "":
		donation, err = pm.donations.FindBySubscriptionID(ctx, ev.SubscriptionID)
	case ev.OrderID != "":
		donation, err = pm.donations.FindByOrderID(ctx, ev.OrderID)
	default:
		slog.Info("[PaymentManager] Webhook without order or subscription", "event", ev.Event)
		return nil
	}
	if errors.Is(err, errors.ErrNotFound) {
		slog.Info("[PaymentManager] Webhook for untracked payment", "event", ev.Event, "order_id", ev.OrderID, "subscription_id", ev.SubscriptionID)
		return nil
	}
	if err != nil {
		return err
	}
	if donation.Status.IsTerminal() {
		return nil
	}

	switch ev.Event {
	case types.WebhookPaymentCaptured, types.WebhookOrderPaid, types.WebhookSubscriptionActivated, types.WebhookSubscriptionCharged:
		if ev.PaymentID == "" {
			return nil
		}
		updated, err := pm.donations.UpdateStatus(ctx, donation.ID, store.StatusUpdate{
			Status:         models.DonationStatusCompleted,
			PaymentID:      ev.PaymentID,
			SubscriptionID: ev.SubscriptionID,
		})
		if errors.Is(err, errors.ErrInvalidTransition) {
			return nil
		}
		if err != nil {
			return err
		}
		pm.events.EmitDonationCompleted(ctx, pm.toEvent(updated))
		slog.Info("[PaymentManager] Donation completed by webhook", "donation_id", pm.PublicID(updated), "event", ev.Event)
	case types.WebhookPaymentFailed, types.WebhookSubscriptionHalted, types.WebhookSubscriptionCancelled:
		pm.markFailed(ctx, donation, models.FailurePaymentFailed, nil)
	default:
		slog.Debug("[PaymentManager] Ignoring webhook event", "event", ev.Event)
	}
	return nil
}

// SweepAbandoned fails pending donations older than the configured TTL.
func (pm *PaymentManager) SweepAbandoned(ctx context.Context) (int64, error) {
	if pm.pendingTTL <= 0 {
		return 0, nil
	}
	return pm.donations.ExpireStale(ctx, pm.now().Add(-pm.pendingTTL))
}

func (pm *PaymentManager) findForCallback(ctx context.Context, cb types.Callback) (*models.Donation, error) {
	switch {
	case cb.DonationID != "":
		id, err := pm.ids.DecodeDonationID(cb.DonationID)
		if err != nil {
			return nil, errors.ErrNotFound
		}
		return pm.donations.Get(ctx, id)
	case cb.SubscriptionID != "":
		return pm.donations.FindBySubscriptionID(ctx, cb.SubscriptionID)
	case cb.OrderID != "":
		return pm.donations.FindByOrderID(ctx, cb.OrderID)
	}
	return nil, errors.ErrNotFound
}

// bindStoredIDs replaces the callback ids with the ones stored on the
// donation, so the verification mode follows the donation's payment type.
// It reports a conflict when the client names a different order or
// subscription, or an id of the other payment type.
func bindStoredIDs(d *models.Donation, cb *types.Callback) bool {
	if d.PaymentType == models.PaymentTypeMonthlySIP {
		if d.SubscriptionID == "" {
			return true
		}
		if cb.SubscriptionID != "" && cb.SubscriptionID != d.SubscriptionID {
			return true
		}
		cb.SubscriptionID = d.SubscriptionID
		cb.OrderID = ""
		return false
	}
	if d.OrderID == "" || cb.SubscriptionID != "" {
		return true
	}
	if cb.OrderID != "" && cb.OrderID != d.OrderID {
		return true
	}
	cb.OrderID = d.OrderID
	return false
}
