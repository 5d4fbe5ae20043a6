package worker

import (
	"context"
	"log"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/store"
)

// LoyaltyWorker accrues loyalty points asynchronously from the event stream.
// Checkout publishes InvoiceCreated and returns immediately; the credit lands
// here. The event claim in processed_events commits inside the same
// transaction as the credit, so Kafka redelivery is a no-op.
type LoyaltyWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	loyalty      *service.LoyaltyService
}

// NewLoyaltyWorker creates a new loyalty worker
func NewLoyaltyWorker(
	consumer *broker.Consumer,
	store *store.Store,
	loyalty *service.LoyaltyService,
) *LoyaltyWorker {
	w := &LoyaltyWorker{
		consumer: consumer,
		store:    store,
		loyalty:  loyalty,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnInvoiceCreated(w.handleInvoiceCreated)
	w.eventHandler = eventHandler

	return w
}

// handleInvoiceCreated credits points for one consumed invoice event
func (w *LoyaltyWorker) handleInvoiceCreated(ctx context.Context, event *models.InvoiceCreatedEvent) error {
	// Anonymous sales earn nothing
	if event.CustomerPhone == "" {
		return nil
	}

	// Cheap pre-check; the transactional claim inside Earn is authoritative
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Skipping already processed event: %s", event.EventID)
		return nil
	}

	points, err := w.loyalty.Earn(ctx, event.CustomerPhone, event.InvoiceNumber, event.TotalFinalPrice, event.EventID)
	if err != nil {
		log.Printf("Failed to accrue points for invoice %s: %v", event.InvoiceNumber, err)
		return err
	}

	log.Printf("Accrued %d points for invoice %s", points, event.InvoiceNumber)
	return nil
}

// Start starts the loyalty worker
func (w *LoyaltyWorker) Start(ctx context.Context) error {
	log.Println("Starting loyalty worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the loyalty worker
func (w *LoyaltyWorker) Stop() error {
	log.Println("Stopping loyalty worker...")
	return w.consumer.Close()
}
