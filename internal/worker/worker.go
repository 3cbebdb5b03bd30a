package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
)

// PaymentWorker applies asynchronous gateway payment notifications to
// orders: confirming them as paid or cancelling and restocking.
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, checkoutService *service.CheckoutService) *PaymentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentNotified(checkoutService.HandlePaymentNotification)

	return &PaymentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *PaymentWorker) Start(ctx context.Context) error {
	log.Println("Starting payment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PaymentWorker) Stop() error {
	log.Println("Stopping payment worker...")
	return w.consumer.Close()
}

// CatalogWorker drops the local catalog cache when another instance
// publishes a catalog mutation, keeping multi-process caches consistent.
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewCatalogWorker creates a new catalog cache invalidation worker
func NewCatalogWorker(consumer *broker.Consumer, catalogService *service.CatalogService) *CatalogWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnCatalogChanged(func(ctx context.Context, event *models.CatalogChangedEvent) error {
		return catalogService.InvalidateCache(ctx)
	})

	return &CatalogWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	log.Println("Starting catalog worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	log.Println("Stopping catalog worker...")
	return w.consumer.Close()
}
