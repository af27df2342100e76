package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/idempotency"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/payloads"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{seen: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[key], nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = "1"
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "fb:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.seen, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, db *gorm.DB) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(newMemoryIdempotencyStore(), time.Hour)
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "test"})
	consumer, err := NewConsumer(NewRepository(db), &pubsub.Subscriber{}, manager, logg)
	require.NoError(t, err)
	return consumer
}

func domainMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Attributes: map[string]string{"event_type": string(eventType)},
		Data:       envelope,
	}
}

func TestConsumerFansOutOrderCreatedToFarmers(t *testing.T) {
	db := setupNotificationsTestDB(t)
	consumer := newTestConsumer(t, db)
	orderID := uuid.New()
	farmerA := uuid.New()
	farmerB := uuid.New()

	msg := domainMessage(t, enums.EventOrderCreated, uuid.New(), payloads.OrderCreatedEvent{
		OrderID:     orderID,
		BuyerID:     uuid.New(),
		FarmerIDs:   []uuid.UUID{farmerA, farmerB},
		TotalAmount: decimal.NewFromInt(90),
		ItemCount:   2,
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.False(t, result.nack)

	var rows []models.Notification
	require.NoError(t, db.Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.NotificationOrderPlaced, row.Type)
		require.NotNil(t, row.OrderID)
		assert.Equal(t, orderID, *row.OrderID)
	}
}

func TestConsumerSkipsDuplicateEvents(t *testing.T) {
	db := setupNotificationsTestDB(t)
	consumer := newTestConsumer(t, db)
	eventID := uuid.New()
	orderID := uuid.New()

	payload := payloads.OrderStatusChangedEvent{
		OrderID:    orderID,
		BuyerID:    uuid.New(),
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusConfirmed,
		ChangedAt:  time.Now().UTC(),
	}

	first := consumer.process(context.Background(), domainMessage(t, enums.EventOrderStatusChanged, eventID, payload))
	assert.True(t, first.ack)
	second := consumer.process(context.Background(), domainMessage(t, enums.EventOrderStatusChanged, eventID, payload))
	assert.True(t, second.ack)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConsumerAcksUnhandledEventTypes(t *testing.T) {
	db := setupNotificationsTestDB(t)
	consumer := newTestConsumer(t, db)

	msg := domainMessage(t, enums.EventWalletDeposited, uuid.New(), payloads.WalletDepositedEvent{
		WalletID: uuid.New(),
		UserID:   uuid.New(),
		Amount:   decimal.NewFromInt(10),
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConsumerNotifiesBuyerOnRefund(t *testing.T) {
	db := setupNotificationsTestDB(t)
	consumer := newTestConsumer(t, db)
	buyerID := uuid.New()
	orderID := uuid.New()

	msg := domainMessage(t, enums.EventOrderRefunded, uuid.New(), payloads.OrderRefundedEvent{
		PaymentID:      uuid.New(),
		OrderID:        orderID,
		BuyerID:        buyerID,
		Amount:         decimal.NewFromInt(25),
		TotalRefunded:  decimal.NewFromInt(25),
		ResultingState: enums.OrderPaymentStatusRefunded,
		RefundedAt:     time.Now().UTC(),
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)

	var row models.Notification
	require.NoError(t, db.First(&row, "user_id = ?", buyerID).Error)
	assert.Equal(t, enums.NotificationRefundIssued, row.Type)
}
