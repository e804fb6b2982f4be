// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/pkg/events"
	"lab-compare-be/pkg/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventRelay forwards outcome events to an external bus (NATS in production).
type EventRelay interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	metrics    *metrics.IntakeMetrics
	relay      EventRelay
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	metrics *metrics.IntakeMetrics,
	relay EventRelay,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		metrics:    metrics,
		relay:      relay,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIntakeOutcomeMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal outcome message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.observe(payload)

	if cs.relay != nil {
		evt := events.BaseEvent{
			Type: payload.Type,
			Data: map[string]interface{}{
				"user_id":     payload.UserID,
				"documents":   payload.Documents,
				"reason":      payload.Reason,
				"duration_ms": payload.DurationMs,
			},
			OccurredAt: payload.OccurredAt,
		}
		relayCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.relay.Publish(relayCtx, evt)
		cancel()
		if err != nil {
			// The relay is best effort; metrics are already recorded.
			log.Printf("[WARN] Failed to relay outcome %s: %v", payload.Type, err)
		}
	}

	msg.Ack()
}

func (cs *consumerService) observe(payload dto.PublishIntakeOutcomeMessage) {
	switch payload.Type {
	case dto.IntakeOutcomeSessionStarted:
		cs.metrics.SessionStarted()
	case dto.IntakeOutcomeSessionExpired:
		cs.metrics.SessionExpired()
	case dto.IntakeOutcomeDocumentReceived:
		cs.metrics.DocumentReceived()
	case dto.IntakeOutcomeComparisonComplete:
		cs.metrics.ComparisonFinished("", time.Duration(payload.DurationMs)*time.Millisecond)
	case dto.IntakeOutcomeComparisonFailed:
		cs.metrics.ComparisonFinished(payload.Reason, time.Duration(payload.DurationMs)*time.Millisecond)
	}
}
