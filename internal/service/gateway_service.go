package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/pkg/events"
	pktNats "lab-compare-be/pkg/nats"
)

const gatewayModule = "GatewayService"

// EventSubscriber registers durable handlers on the event bus.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

// IGatewayService bridges an external chat gateway (e.g. a messenger bot
// process) that speaks IntakeFrame over the event bus.
type IGatewayService interface {
	Start() error
}

type gatewayService struct {
	subscriber EventSubscriber
	publisher  EventRelay
	dispatcher IDispatcherService
	logger     logger.ILogger
}

func NewGatewayService(subscriber EventSubscriber, publisher EventRelay, dispatcher IDispatcherService, log logger.ILogger) IGatewayService {
	return &gatewayService{
		subscriber: subscriber,
		publisher:  publisher,
		dispatcher: dispatcher,
		logger:     log,
	}
}

func (g *gatewayService) Start() error {
	subject := events.Subject(events.TypeIntakeInbound)
	if err := g.subscriber.Subscribe(subject, "intake-gateway-worker", g.handleEvent); err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	g.logger.Info(gatewayModule, "Gateway listening", map[string]interface{}{"subject": subject})
	return nil
}

// handleEvent never asks for redelivery: replaying a processed event would
// advance the session twice.
func (g *gatewayService) handleEvent(_ context.Context, event events.Event) error {
	raw, err := json.Marshal(event.Payload())
	if err != nil {
		g.logger.Warn(gatewayModule, "Unreadable inbound event", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var frame dto.IntakeFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.UserID == "" {
		g.logger.Warn(gatewayModule, "Malformed inbound frame", map[string]interface{}{"type": frame.Type})
		return nil
	}

	intakeEvent, err := frame.ToEvent(frame.UserID, time.Now())
	if err != nil {
		g.logger.Warn(gatewayModule, "Rejected inbound frame", map[string]interface{}{
			"user_id": frame.UserID,
			"error":   err.Error(),
		})
		return nil
	}

	// Acked right away: a comparison outlives the bus ack window, and the
	// dispatcher already keeps this user's events in order.
	done := g.dispatcher.Submit(context.Background(), intakeEvent, &busReplier{publisher: g.publisher})
	go func() {
		if err := <-done; err != nil {
			g.logger.Warn(gatewayModule, "Reply to gateway failed", map[string]interface{}{
				"user_id": frame.UserID,
				"error":   err.Error(),
			})
		}
	}()
	return nil
}

// busReplier publishes replies as INTAKE_REPLY events for the gateway.
type busReplier struct {
	publisher EventRelay
}

func (r *busReplier) SendText(ctx context.Context, userID, text string) error {
	return r.publisher.Publish(ctx, events.BaseEvent{
		Type: events.TypeIntakeReply,
		Data: map[string]interface{}{
			"user_id": userID,
			"text":    text,
		},
		OccurredAt: time.Now(),
	})
}
