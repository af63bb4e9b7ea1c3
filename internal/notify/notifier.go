package notify

import (
	"context"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"

	"github.com/google/uuid"
)

// Publisher implements the order flows' Notifier by publishing lifecycle
// events; the notification worker turns them into customer emails.
type Publisher struct {
	events *broker.EventPublisher
}

// NewPublisher creates a new notification publisher
func NewPublisher(events *broker.EventPublisher) *Publisher {
	return &Publisher{events: events}
}

// NotifyOrderCreated publishes an OrderCreated event
func (p *Publisher) NotifyOrderCreated(ctx context.Context, order *models.Order) error {
	items := make([]models.LineItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.LineItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return p.events.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	})
}

// NotifyOrderCancelled publishes an OrderCancelled event
func (p *Publisher) NotifyOrderCancelled(ctx context.Context, order *models.Order) error {
	event := &models.OrderCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   order.ID,
		UserID:    order.UserID,
	}
	if order.CancelledBy != nil {
		event.CancelledBy = *order.CancelledBy
	}
	if order.CancellationReason != nil {
		event.Reason = *order.CancellationReason
	}
	return p.events.PublishOrderCancelled(ctx, event)
}

// NotifyOrderStatusChanged publishes an OrderStatusChanged event
func (p *Publisher) NotifyOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return p.events.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   order.ID,
		UserID:    order.UserID,
		From:      from,
		To:        order.Status,
	})
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
