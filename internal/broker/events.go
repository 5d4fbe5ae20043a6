package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishInvoiceCreated publishes InvoiceCreated event
func (ep *EventPublisher) PublishInvoiceCreated(ctx context.Context, event *models.InvoiceCreatedEvent) error {
	key := fmt.Sprintf("invoice-%s", event.InvoiceNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnCreated publishes ReturnCreated event
func (ep *EventPublisher) PublishReturnCreated(ctx context.Context, event *models.ReturnCreatedEvent) error {
	key := fmt.Sprintf("invoice-%s", event.InvoiceNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPointsRedeemed publishes PointsRedeemed event
func (ep *EventPublisher) PublishPointsRedeemed(ctx context.Context, event *models.PointsRedeemedEvent) error {
	key := fmt.Sprintf("customer-%s", event.CustomerPhone)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPointsEarned publishes PointsEarned event
func (ep *EventPublisher) PublishPointsEarned(ctx context.Context, event *models.PointsEarnedEvent) error {
	key := fmt.Sprintf("customer-%s", event.CustomerPhone)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRegisterOpened publishes RegisterOpened event
func (ep *EventPublisher) PublishRegisterOpened(ctx context.Context, event *models.RegisterOpenedEvent) error {
	key := fmt.Sprintf("register-%s", event.Date)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRegisterClosed publishes RegisterClosed event
func (ep *EventPublisher) PublishRegisterClosed(ctx context.Context, event *models.RegisterClosedEvent) error {
	key := fmt.Sprintf("register-%s", event.Date)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onInvoiceCreated func(context.Context, *models.InvoiceCreatedEvent) error
	onReturnCreated  func(context.Context, *models.ReturnCreatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnInvoiceCreated registers a handler for InvoiceCreated events
func (eh *EventHandler) OnInvoiceCreated(handler func(context.Context, *models.InvoiceCreatedEvent) error) {
	eh.onInvoiceCreated = handler
}

// OnReturnCreated registers a handler for ReturnCreated events
func (eh *EventHandler) OnReturnCreated(handler func(context.Context, *models.ReturnCreatedEvent) error) {
	eh.onReturnCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeInvoiceCreated:
		if eh.onInvoiceCreated != nil {
			var event models.InvoiceCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InvoiceCreated event: %w", err)
			}
			return eh.onInvoiceCreated(ctx, &event)
		}

	case models.EventTypeReturnCreated:
		if eh.onReturnCreated != nil {
			var event models.ReturnCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnCreated event: %w", err)
			}
			return eh.onReturnCreated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
