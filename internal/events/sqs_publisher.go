package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher forwards outbox entries to a queue for downstream consumers.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher wraps the SQS client. It returns nil when no queue is configured.
func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	if client == nil || queueURL == "" {
		return nil
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

type envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  string          `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

func (p *SQSPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	body, err := json.Marshal(envelope{
		ID:          entry.ID.String(),
		Type:        entry.Type,
		AggregateID: entry.AggregateID,
		OccurredAt:  entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Data:        entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(entry.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	return nil
}

var _ DeliveryHandler = (*SQSPublisher)(nil)
