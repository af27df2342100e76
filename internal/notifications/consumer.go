package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/idempotency"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/payloads"
)

const domainNotificationConsumer = "domain-notifications"

// Consumer watches domain events and materializes in-app notification rows
// for the buyers and farmers each event concerns.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !handledEventTypes[eventType] {
		c.logg.Info(logCtx, "skipping event without notification fan-out")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, domainNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	rows, err := c.buildNotifications(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, domainNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	if err := c.repo.Create(ctx, rows); err != nil {
		c.logg.Error(logCtx, "notification fan-out failed", err)
		_ = c.idempotency.Delete(ctx, domainNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{"count": len(rows)}), "notifications created")
	return processResult{ack: true}
}

var handledEventTypes = map[enums.OutboxEventType]bool{
	enums.EventOrderCreated:          true,
	enums.EventOrderStatusChanged:    true,
	enums.EventPaymentSucceeded:      true,
	enums.EventOrderRefunded:         true,
	enums.EventNotificationRequested: true,
}

func (c *Consumer) buildNotifications(eventType enums.OutboxEventType, data json.RawMessage) ([]models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		rows := make([]models.Notification, 0, len(payload.FarmerIDs))
		for _, farmerID := range payload.FarmerIDs {
			rows = append(rows, models.Notification{
				UserID:  farmerID,
				Type:    enums.NotificationOrderPlaced,
				Title:   "New order received",
				Body:    fmt.Sprintf("Order %s includes your produce. Total order value: %s.", shortID(payload.OrderID), payload.TotalAmount),
				OrderID: &payload.OrderID,
			})
		}
		return rows, nil

	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  payload.BuyerID,
			Type:    enums.NotificationOrderStatus,
			Title:   "Order status updated",
			Body:    fmt.Sprintf("Order %s moved from %s to %s.", shortID(payload.OrderID), payload.FromStatus, payload.ToStatus),
			OrderID: &payload.OrderID,
		}}, nil

	case enums.EventPaymentSucceeded:
		var payload payloads.PaymentSucceededEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  payload.BuyerID,
			Type:    enums.NotificationPaymentUpdate,
			Title:   "Payment received",
			Body:    fmt.Sprintf("Your payment of %s for order %s went through.", payload.Amount, shortID(payload.OrderID)),
			OrderID: &payload.OrderID,
		}}, nil

	case enums.EventOrderRefunded:
		var payload payloads.OrderRefundedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  payload.BuyerID,
			Type:    enums.NotificationRefundIssued,
			Title:   "Refund issued",
			Body:    fmt.Sprintf("A refund of %s was issued for order %s.", payload.Amount, shortID(payload.OrderID)),
			OrderID: &payload.OrderID,
		}}, nil

	case enums.EventNotificationRequested:
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []models.Notification{{
			UserID:  payload.UserID,
			Type:    payload.Type,
			Title:   payload.Title,
			Body:    payload.Body,
			OrderID: payload.OrderID,
		}}, nil
	}
	return nil, fmt.Errorf("unhandled event type %s", eventType)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
