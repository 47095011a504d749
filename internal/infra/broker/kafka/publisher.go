package kafka

import (
	"context"
	"encoding/json"

	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/shared"
)

// EventPublisher emits booking lifecycle events to a Kafka topic, keyed by
// booking ID so events for one booking stay ordered within a partition.
type EventPublisher struct {
	producer *Producer
	topic    string
}

func NewEventPublisher(producer *Producer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

func (p *EventPublisher) PublishBookingEvent(ctx context.Context, evt shared.BookingEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errs.Wrap(err, "failed to encode booking event")
	}
	headers := map[string]string{"event_type": string(evt.EventType)}
	return p.producer.Publish(ctx, p.topic, evt.BookingID.String(), payload, headers)
}

// NoopPublisher satisfies the publisher port when Kafka is disabled (tests,
// local development without a broker).
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingEvent(context.Context, shared.BookingEvent) error {
	return nil
}
