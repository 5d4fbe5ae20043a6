package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHandlerRoutesInvoiceCreated(t *testing.T) {
	handler := NewEventHandler()

	var received *models.InvoiceCreatedEvent
	handler.OnInvoiceCreated(func(ctx context.Context, event *models.InvoiceCreatedEvent) error {
		received = event
		return nil
	})

	event := &models.InvoiceCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-123",
			EventType: models.EventTypeInvoiceCreated,
			Timestamp: time.Now(),
		},
		InvoiceNumber:   "INV-20260828-AB12CD34",
		CustomerPhone:   "9876543210",
		TotalFinalPrice: decimal.NewFromInt(2000),
		PaymentMethod:   models.PaymentMethodCash,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = handler.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)

	require.NotNil(t, received)
	assert.Equal(t, "evt-123", received.EventID)
	assert.Equal(t, "INV-20260828-AB12CD34", received.InvoiceNumber)
	assert.True(t, received.TotalFinalPrice.Equal(decimal.NewFromInt(2000)))
}

func TestEventHandlerIgnoresUnknownType(t *testing.T) {
	handler := NewEventHandler()

	called := false
	handler.OnInvoiceCreated(func(ctx context.Context, event *models.InvoiceCreatedEvent) error {
		called = true
		return nil
	})

	payload, err := json.Marshal(models.BaseEvent{
		EventID:   "evt-456",
		EventType: "SomethingElse",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	err = handler.HandleMessage(context.Background(), kafka.Message{Value: payload})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestEventHandlerRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
