package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationWorker consumes order lifecycle events and dispatches the
// matching customer emails. Sending is simulated by logging; there is no
// retry queue, a failed send is dropped.
type NotificationWorker struct {
	consumer *broker.Consumer
	logger   *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch base.EventType {
	case models.EventTypeOrderCreated:
		var event models.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderCreated event: %w", err)
		}
		w.sendEmail(event.UserID, "order confirmation",
			fmt.Sprintf("order %s placed, total %d", event.OrderID, event.TotalAmount))

	case models.EventTypeOrderCancelled:
		var event models.OrderCancelledEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
		}
		w.sendEmail(event.UserID, "order cancelled",
			fmt.Sprintf("order %s cancelled by %s", event.OrderID, event.CancelledBy))

	case models.EventTypeOrderStatusChanged:
		var event models.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
		}
		w.sendEmail(event.UserID, "order update",
			fmt.Sprintf("order %s is now %s", event.OrderID, event.To))

	default:
		w.logger.Debug("Ignoring event", zap.String("event_type", base.EventType))
	}

	return nil
}

// sendEmail stands in for a real mail provider integration.
func (w *NotificationWorker) sendEmail(userID, subject, body string) {
	w.logger.Info("Sending email",
		zap.String("user_id", userID),
		zap.String("subject", subject),
		zap.String("body", body))
}
