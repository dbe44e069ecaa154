package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/flaboy/aira-donate/pkg/types"
)

// SQSAPI is the part of the SQS client used to publish events.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSHandler publishes donation events to a queue consumed by the receipt mailer.
type SQSHandler struct {
	client   SQSAPI
	queueURL string
}

func NewSQSHandler(client SQSAPI, queueURL string) *SQSHandler {
	return &SQSHandler{client: client, queueURL: queueURL}
}

// NewSQSClient uses static credentials when given, otherwise the default AWS chain.
func NewSQSClient(ctx context.Context, region, accessKey, secret string) (*sqs.Client, error) {
	var cfg aws.Config
	var err error

	if accessKey != "" && secret != "" {
		cfg, err = awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(region),
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secret, "")),
		)
	} else {
		cfg, err = awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

func (h *SQSHandler) OnDonationCompleted(ctx context.Context, event *types.DonationEvent) error {
	return h.publish(ctx, event)
}

func (h *SQSHandler) OnDonationFailed(ctx context.Context, event *types.DonationEvent) error {
	return h.publish(ctx, event)
}

func (h *SQSHandler) publish(ctx context.Context, event *types.DonationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	out, err := h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Type)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s to sqs: %w", event.Type, err)
	}
	slog.Info("[Events] Published to SQS", "type", event.Type, "donation_id", event.DonationID, "message_id", aws.ToString(out.MessageId))
	return nil
}
