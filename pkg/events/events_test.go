package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/utils"
	"github.com/flaboy/aira-donate/pkg/types"
	"github.com/shopspring/decimal"
)

type recordingHandler struct {
	completed []*types.DonationEvent
	failed    []*types.DonationEvent
	err       error
}

func (r *recordingHandler) OnDonationCompleted(_ context.Context, e *types.DonationEvent) error {
	r.completed = append(r.completed, e)
	return r.err
}

func (r *recordingHandler) OnDonationFailed(_ context.Context, e *types.DonationEvent) error {
	r.failed = append(r.failed, e)
	return r.err
}

func TestDispatcherFansOut(t *testing.T) {
	t.Parallel()

	broken := &recordingHandler{err: errors.New("down")}
	ok := &recordingHandler{}
	d := NewDispatcher(broken, ok)

	d.EmitDonationCompleted(context.Background(), &types.DonationEvent{DonationID: "dn-1"})
	d.EmitDonationFailed(context.Background(), &types.DonationEvent{DonationID: "dn-2"})

	if len(ok.completed) != 1 || ok.completed[0].Type != types.DonationCompleted {
		t.Errorf("Expected one completed event, got %v", ok.completed)
	}
	if len(ok.failed) != 1 || ok.failed[0].Type != types.DonationFailed {
		t.Errorf("Expected one failed event, got %v", ok.failed)
	}
	if len(broken.completed) != 1 {
		t.Error("Expected failing handler to still be called")
	}

	var nilDispatcher *Dispatcher
	nilDispatcher.EmitDonationCompleted(context.Background(), &types.DonationEvent{})
}

type fakeSQS struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSHandler(t *testing.T) {
	t.Parallel()

	client := &fakeSQS{}
	h := NewSQSHandler(client, "https://sqs.ap-south-1.amazonaws.com/123/receipts")

	event := &types.DonationEvent{
		Type:       types.DonationCompleted,
		DonationID: "dn-abc",
		Amount:     decimal.NewFromInt(500),
		Currency:   "INR",
	}
	if err := h.OnDonationCompleted(context.Background(), event); err != nil {
		t.Fatalf("OnDonationCompleted failed: %v", err)
	}

	if aws.ToString(client.input.QueueUrl) != "https://sqs.ap-south-1.amazonaws.com/123/receipts" {
		t.Errorf("Unexpected queue %s", aws.ToString(client.input.QueueUrl))
	}
	var got types.DonationEvent
	if err := json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &got); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if got.DonationID != "dn-abc" || !got.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected body %+v", got)
	}
	if aws.ToString(client.input.MessageAttributes["event_type"].StringValue) != "donation.completed" {
		t.Error("Expected event_type attribute")
	}
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	var gotSig, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotEvent = r.Header.Get("X-Donate-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := NewWebhookHandler(srv.URL, "hook_secret", time.Second)
	event := &types.DonationEvent{Type: types.DonationFailed, DonationID: "dn-x", FailureReason: "signature_mismatch"}
	if err := h.OnDonationFailed(context.Background(), event); err != nil {
		t.Fatalf("OnDonationFailed failed: %v", err)
	}

	if gotEvent != "donation.failed" {
		t.Errorf("Expected event header, got '%s'", gotEvent)
	}
	if gotSig != utils.Sign(string(gotBody), "hook_secret") {
		t.Error("Expected body signature header")
	}
}

func TestWebhookHandlerErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewWebhookHandler(srv.URL, "", time.Second)
	if err := h.OnDonationCompleted(context.Background(), &types.DonationEvent{}); err == nil {
		t.Error("Expected error for 500 response")
	}
}
