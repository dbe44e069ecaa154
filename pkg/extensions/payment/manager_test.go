package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	donateerrors "github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/events"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/models"
	"github.com/flaboy/aira-donate/pkg/store"
	"github.com/flaboy/aira-donate/pkg/testutil"
	eventtypes "github.com/flaboy/aira-donate/pkg/types"
	"github.com/shopspring/decimal"
)

type recordingHandler struct {
	mu        sync.Mutex
	completed []*eventtypes.DonationEvent
	failed    []*eventtypes.DonationEvent
}

func (r *recordingHandler) OnDonationCompleted(_ context.Context, e *eventtypes.DonationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, e)
	return nil
}

func (r *recordingHandler) OnDonationFailed(_ context.Context, e *eventtypes.DonationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, e)
	return nil
}

type fixture struct {
	manager   *PaymentManager
	donations *store.DonationStore
	gateway   *mockGateway
	events    *recordingHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gw := &mockGateway{
		CreateOrderFunc: func(amountMinor int64, currency, receipt string, _ map[string]string) (*types.Order, error) {
			return &types.Order{ID: "order_" + receipt, Amount: amountMinor, Currency: currency, Receipt: receipt, Status: "created"}, nil
		},
		CreatePlanFunc: func(req types.CreatePlanRequest) (string, error) {
			return "plan_custom", nil
		},
		CreateSubscriptionFunc: func(planID string, totalCount int, _ bool, notes map[string]string) (*types.Subscription, error) {
			return &types.Subscription{ID: "sub_" + notes["donation_id"], PlanID: planID, Status: types.SubscriptionCreated, TotalCount: totalCount}, nil
		},
		FetchSubscriptionFunc: func(id string) (*types.Subscription, error) {
			return &types.Subscription{ID: id, Status: types.SubscriptionActive}, nil
		},
	}
	ids, err := utils.NewIDCodec("test")
	if err != nil {
		t.Fatalf("NewIDCodec failed: %v", err)
	}
	recorder := &recordingHandler{}
	donations := store.NewDonationStore(testutil.OpenDB(t))
	m := NewPaymentManager(ManagerOptions{
		Donations:  donations,
		Plans:      NewPlanResolver(gw, testPlans, nil, 50, "INR"),
		Intents:    NewIntentBuilder(gw, "INR"),
		Verifier:   NewVerifier(gw, testSecret),
		IDs:        ids,
		Events:     events.NewDispatcher(recorder),
		PendingTTL: 48 * time.Hour,
	})
	return &fixture{manager: m, donations: donations, gateway: gw, events: recorder}
}

func donor(amount string) types.DonationInput {
	return types.DonationInput{
		DonorName:  "Asha Rao",
		DonorEmail: "asha@example.org",
		DonorPhone: "9999999999",
		PanCard:    "abcde1234f",
		Amount:     decimal.RequireFromString(amount),
	}
}

func (f *fixture) status(t *testing.T, id uint) *models.Donation {
	t.Helper()
	d, err := f.donations.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return d
}

func TestOneTimeDonationCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("500"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}
	if started.Order.Amount != 50000 {
		t.Errorf("Expected 50000 paise, got %d", started.Order.Amount)
	}
	pending := f.status(t, started.Donation.ID)
	if pending.Status != models.DonationStatusPending || pending.OrderID != started.Order.ID {
		t.Fatalf("Expected pending donation with order id, got %+v", pending)
	}
	if pending.PanCard != "ABCDE1234F" || !pending.ReceiveUpdates {
		t.Errorf("Unexpected donor defaults %+v", pending)
	}

	result, err := f.manager.Complete(ctx, types.Callback{
		OrderID:   started.Order.ID,
		PaymentID: "pay_1",
		Signature: utils.Sign(started.Order.ID+"|pay_1", testSecret),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !result.Success || result.Status != "completed" || result.DonationID != f.manager.PublicID(pending) {
		t.Errorf("Unexpected result %+v", result)
	}

	done := f.status(t, started.Donation.ID)
	if done.Status != models.DonationStatusCompleted || done.PaymentIDValue() != "pay_1" || done.CompletedAt == nil {
		t.Errorf("Expected completed donation, got %+v", done)
	}
	if len(f.events.completed) != 1 || f.events.completed[0].PaymentID != "pay_1" {
		t.Errorf("Expected one completed event, got %v", f.events.completed)
	}

	// replaying the same callback never changes a settled donation
	_, err = f.manager.Complete(ctx, types.Callback{
		OrderID:   started.Order.ID,
		PaymentID: "pay_1",
		Signature: utils.Sign(started.Order.ID+"|pay_1", testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition on replay, got %v", err)
	}
	if len(f.events.completed) != 1 {
		t.Error("Expected no second completed event")
	}
}

func TestTamperedSignatureFailsDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("250"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}
	sig := []byte(utils.Sign(started.Order.ID+"|pay_9", testSecret))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	_, err = f.manager.Complete(ctx, types.Callback{
		DonationID: f.manager.PublicID(started.Donation),
		OrderID:    started.Order.ID,
		PaymentID:  "pay_9",
		Signature:  string(sig),
	})
	if !donateerrors.Is(err, donateerrors.ErrSignatureMismatch) {
		t.Fatalf("Expected signature mismatch, got %v", err)
	}

	failed := f.status(t, started.Donation.ID)
	if failed.Status != models.DonationStatusFailed || failed.FailureReason != models.FailureSignatureMismatch {
		t.Errorf("Expected failed donation, got %+v", failed)
	}
	if failed.PaymentID != nil {
		t.Error("Expected no payment id on a failed signature")
	}
	if len(f.events.failed) != 1 {
		t.Errorf("Expected one failed event, got %d", len(f.events.failed))
	}
}

func TestCallbackOrderMismatchFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("100"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}

	// a valid signature for someone else's order
	_, err = f.manager.Complete(ctx, types.Callback{
		DonationID: f.manager.PublicID(started.Donation),
		OrderID:    "order_other",
		PaymentID:  "pay_2",
		Signature:  utils.Sign("order_other|pay_2", testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrSignatureMismatch) {
		t.Fatalf("Expected signature mismatch, got %v", err)
	}
	if d := f.status(t, started.Donation.ID); d.Status != models.DonationStatusFailed {
		t.Errorf("Expected failed, got %s", d.Status)
	}
}

func TestCompleteMissingFieldKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("100"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}

	_, err = f.manager.Complete(ctx, types.Callback{OrderID: started.Order.ID, PaymentID: "pay_3"})
	if !donateerrors.Is(err, donateerrors.ErrMissingField) {
		t.Fatalf("Expected missing field, got %v", err)
	}
	if d := f.status(t, started.Donation.ID); d.Status != models.DonationStatusPending {
		t.Errorf("Expected pending, got %s", d.Status)
	}
}

func TestStartOneTimeGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.CreateOrderFunc = func(int64, string, string, map[string]string) (*types.Order, error) {
		return nil, errors.New("Authentication failed")
	}

	_, err := f.manager.StartOneTime(context.Background(), donor("100"))
	if !donateerrors.Is(err, donateerrors.ErrGateway) {
		t.Fatalf("Expected gateway error, got %v", err)
	}

	page, err := f.donations.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.TotalCount != 1 || page.Items[0].Status != models.DonationStatusFailed || page.Items[0].FailureReason != models.FailureGatewayError {
		t.Errorf("Expected one failed donation, got %+v", page.Items)
	}
}

func TestStartOneTimeRejectsAmountBeforeStorage(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.StartOneTime(context.Background(), donor("0"))
	if !donateerrors.Is(err, donateerrors.ErrInvalidAmount) {
		t.Fatalf("Expected invalid amount, got %v", err)
	}
	page, _ := f.donations.List(context.Background(), 1, 10)
	if page.TotalCount != 0 {
		t.Errorf("Expected nothing stored, got %d", page.TotalCount)
	}
}

func TestSubscriptionDonationCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartSubscription(ctx, donor("750"), "")
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}
	if !started.Plan.IsCustom || started.Plan.PlanID != "plan_custom" {
		t.Errorf("Expected custom plan, got %+v", started.Plan)
	}
	pending := f.status(t, started.Donation.ID)
	if pending.SubscriptionID != started.Subscription.ID || pending.PlanID != "plan_custom" || pending.PaymentType != models.PaymentTypeMonthlySIP {
		t.Fatalf("Expected subscription stored before payment, got %+v", pending)
	}

	result, err := f.manager.Complete(ctx, types.Callback{
		SubscriptionID: started.Subscription.ID,
		PaymentID:      "pay_sub_1",
		Signature:      utils.Sign("pay_sub_1|"+started.Subscription.ID, testSecret),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Status != "completed" {
		t.Errorf("Expected completed, got %+v", result)
	}
	if len(f.events.completed) != 1 || f.events.completed[0].PaymentType != "monthly_sip" {
		t.Errorf("Unexpected events %v", f.events.completed)
	}
}

func TestSubscriptionUsesPredefinedPlan(t *testing.T) {
	f := newFixture(t)

	started, err := f.manager.StartSubscription(context.Background(), donor("500"), "")
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}
	if started.Plan.PlanID != "plan_500" || f.gateway.PlanCalls() != 0 {
		t.Errorf("Expected predefined plan without gateway call, got %+v", started.Plan)
	}
}

func TestSubscriptionNotActiveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.FetchSubscriptionFunc = func(id string) (*types.Subscription, error) {
		return &types.Subscription{ID: id, Status: types.SubscriptionCreated}, nil
	}

	started, err := f.manager.StartSubscription(ctx, donor("100"), "")
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}
	_, err = f.manager.Complete(ctx, types.Callback{
		SubscriptionID: started.Subscription.ID,
		PaymentID:      "pay_sub_2",
		Signature:      utils.Sign("pay_sub_2|"+started.Subscription.ID, testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrSubscriptionNotActive) {
		t.Fatalf("Expected not active, got %v", err)
	}
	d := f.status(t, started.Donation.ID)
	if d.Status != models.DonationStatusFailed || d.FailureReason != models.FailureSubscriptionNotActive {
		t.Errorf("Expected failed donation, got %+v", d)
	}
}

func TestStartSubscriptionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.StartSubscription(ctx, donor("30"), ""); !donateerrors.Is(err, donateerrors.ErrBelowMinimum) {
		t.Errorf("Expected below minimum, got %v", err)
	}
	if _, err := f.manager.StartSubscription(ctx, donor("99.50"), ""); !donateerrors.Is(err, donateerrors.ErrInvalidAmount) {
		t.Errorf("Expected invalid amount, got %v", err)
	}
	in := donor("100")
	in.DonorEmail = ""
	if _, err := f.manager.StartSubscription(ctx, in, ""); !donateerrors.Is(err, donateerrors.ErrMissingField) {
		t.Errorf("Expected missing field, got %v", err)
	}
	page, _ := f.donations.List(ctx, 1, 10)
	if page.TotalCount != 0 {
		t.Errorf("Expected nothing stored, got %d", page.TotalCount)
	}
}

func TestUntrackedCallbackIsOnlyVerified(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Complete(context.Background(), types.Callback{
		OrderID:   "order_elsewhere",
		PaymentID: "pay_x",
		Signature: utils.Sign("order_elsewhere|pay_x", testSecret),
	})
	if err != nil || !result.Success || result.DonationID != "" {
		t.Errorf("Expected bare verification, got %+v, %v", result, err)
	}

	_, err = f.manager.Complete(context.Background(), types.Callback{
		DonationID: "dn-unknown",
		OrderID:    "order_elsewhere",
		PaymentID:  "pay_x",
		Signature:  utils.Sign("order_elsewhere|pay_x", testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrNotFound) {
		t.Errorf("Expected not found for unknown donation id, got %v", err)
	}
}

func TestApplyWebhookIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("100"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}
	ev := types.WebhookEvent{Event: types.WebhookPaymentCaptured, PaymentID: "pay_w", OrderID: started.Order.ID}
	for i := 0; i < 2; i++ {
		if err := f.manager.ApplyWebhook(ctx, ev); err != nil {
			t.Fatalf("ApplyWebhook failed: %v", err)
		}
	}
	d := f.status(t, started.Donation.ID)
	if d.Status != models.DonationStatusCompleted || d.PaymentIDValue() != "pay_w" {
		t.Errorf("Expected completed donation, got %+v", d)
	}
	if len(f.events.completed) != 1 {
		t.Errorf("Expected one completed event, got %d", len(f.events.completed))
	}

	// a later failure notice does not undo the completion
	fail := types.WebhookEvent{Event: types.WebhookPaymentFailed, PaymentID: "pay_w2", OrderID: started.Order.ID}
	if err := f.manager.ApplyWebhook(ctx, fail); err != nil {
		t.Fatalf("ApplyWebhook failed: %v", err)
	}
	if d := f.status(t, started.Donation.ID); d.Status != models.DonationStatusCompleted {
		t.Errorf("Expected completed, got %s", d.Status)
	}

	if err := f.manager.ApplyWebhook(ctx, types.WebhookEvent{Event: types.WebhookOrderPaid, OrderID: "order_unknown", PaymentID: "pay_u"}); err != nil {
		t.Errorf("Expected untracked webhook to be ignored, got %v", err)
	}
}

func TestApplyWebhookFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartSubscription(ctx, donor("100"), "")
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}
	ev := types.WebhookEvent{Event: types.WebhookSubscriptionHalted, SubscriptionID: started.Subscription.ID}
	if err := f.manager.ApplyWebhook(ctx, ev); err != nil {
		t.Fatalf("ApplyWebhook failed: %v", err)
	}
	d := f.status(t, started.Donation.ID)
	if d.Status != models.DonationStatusFailed || d.FailureReason != models.FailurePaymentFailed {
		t.Errorf("Expected failed donation, got %+v", d)
	}
}

func TestSweepAbandoned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("100"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}

	n, err := f.manager.SweepAbandoned(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Expected fresh donation to survive, got %d, %v", n, err)
	}

	f.manager.now = func() time.Time { return time.Now().Add(49 * time.Hour) }
	n, err = f.manager.SweepAbandoned(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Expected one expired donation, got %d, %v", n, err)
	}
	d := f.status(t, started.Donation.ID)
	if d.Status != models.DonationStatusFailed || d.FailureReason != models.FailureExpired {
		t.Errorf("Expected expired donation, got %+v", d)
	}
}

func TestOneTimeRejectsSubscriptionCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("1000"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}

	// a genuine signature for the donor's own small subscription
	_, err = f.manager.Complete(ctx, types.Callback{
		DonationID:     f.manager.PublicID(started.Donation),
		SubscriptionID: "sub_own",
		PaymentID:      "pay_own",
		Signature:      utils.Sign("pay_own|sub_own", testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrSignatureMismatch) {
		t.Fatalf("Expected signature mismatch, got %v", err)
	}

	d := f.status(t, started.Donation.ID)
	if d.Status == models.DonationStatusCompleted {
		t.Fatal("One-time donation must not complete on a subscription payment")
	}
	if d.SubscriptionID != "" || d.PaymentID != nil {
		t.Errorf("Expected no foreign ids on the donation, got %+v", d)
	}
	if len(f.events.completed) != 0 {
		t.Errorf("Expected no completed event, got %d", len(f.events.completed))
	}
}

func TestSubscriptionIgnoresOrderCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartSubscription(ctx, donor("100"), "")
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}

	// an order signature cannot settle a subscription donation
	_, err = f.manager.Complete(ctx, types.Callback{
		DonationID: f.manager.PublicID(started.Donation),
		OrderID:    "order_own",
		PaymentID:  "pay_own",
		Signature:  utils.Sign("order_own|pay_own", testSecret),
	})
	if !donateerrors.Is(err, donateerrors.ErrSignatureMismatch) {
		t.Fatalf("Expected signature mismatch, got %v", err)
	}
	if d := f.status(t, started.Donation.ID); d.Status == models.DonationStatusCompleted {
		t.Error("Subscription donation must not complete on an order payment")
	}
}

func TestSubscriptionPlanMustMatchAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartSubscription(ctx, donor("100000"), testPlans[100])
	if !donateerrors.Is(err, donateerrors.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	_, err = f.manager.StartSubscription(ctx, donor("750"), "plan_someone_else")
	if !donateerrors.Is(err, donateerrors.ErrValidation) {
		t.Fatalf("Expected validation error for unknown plan, got %v", err)
	}
	page, _ := f.donations.List(ctx, 1, 10)
	if page.TotalCount != 0 {
		t.Errorf("Expected nothing stored, got %d", page.TotalCount)
	}

	started, err := f.manager.StartSubscription(ctx, donor("500"), testPlans[500])
	if err != nil {
		t.Fatalf("StartSubscription failed: %v", err)
	}
	if started.Donation.PlanID != "plan_500" || !started.Donation.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected donation %+v", started.Donation)
	}
}

func TestConcurrentCallbacksCompleteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.manager.StartOneTime(ctx, donor("300"))
	if err != nil {
		t.Fatalf("StartOneTime failed: %v", err)
	}
	cb := types.Callback{
		OrderID:   started.Order.ID,
		PaymentID: "pay_race",
		Signature: utils.Sign(started.Order.ID+"|pay_race", testSecret),
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Complete(ctx, cb)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !donateerrors.Is(err, donateerrors.ErrInvalidTransition):
			t.Errorf("Expected invalid transition for losers, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one success, got %d", succeeded)
	}
	if len(f.events.completed) != 1 {
		t.Errorf("Expected one completed event, got %d", len(f.events.completed))
	}
	if d := f.status(t, started.Donation.ID); d.Status != models.DonationStatusCompleted || d.PaymentIDValue() != "pay_race" {
		t.Errorf("Expected completed donation, got %+v", d)
	}
}
