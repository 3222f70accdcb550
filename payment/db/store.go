package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrOrderNotFound = errors.New("payment order not found")

// Fields is a partial update, keyed by column name.
type Fields map[string]any

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, order *PaymentOrder) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order %s: %w", order.OrderID, err)
	}
	return nil
}

// InsertIfAbsent creates the order unless a record with the same id exists.
func (s *Store) InsertIfAbsent(ctx context.Context, order *PaymentOrder) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(order)
	if result.Error != nil {
		return false, fmt.Errorf("insert order %s: %w", order.OrderID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) Get(ctx context.Context, orderID string) (*PaymentOrder, error) {
	var order PaymentOrder
	err := s.db.WithContext(ctx).First(&order, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &order, nil
}

func (s *Store) Exists(ctx context.Context, orderID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&PaymentOrder{}).Where("order_id = ?", orderID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count order %s: %w", orderID, err)
	}
	return n > 0, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]PaymentOrder, error) {
	var orders []PaymentOrder
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	return orders, nil
}

// Transition moves an order to status `to` only when its current status is one of
// `from`, writing fields in the same statement. It reports false without error when
// the order exists but is in another status.
func (s *Store) Transition(ctx context.Context, orderID string, to Status, from []Status, fields Fields) (bool, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	result := s.db.WithContext(ctx).
		Model(&PaymentOrder{}).
		Where("order_id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("transition order %s to %s: %w", orderID, to, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	exists, err := s.Exists(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

// RecordEvent journals a webhook delivery. It returns false when the event id was
// already processed; a previously received but unprocessed event is handed out again.
func (s *Store) RecordEvent(ctx context.Context, event *WebhookEvent) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return false, fmt.Errorf("record event %s: %w", event.EventID, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var existing WebhookEvent
	if err := s.db.WithContext(ctx).First(&existing, "event_id = ?", event.EventID).Error; err != nil {
		return false, fmt.Errorf("load event %s: %w", event.EventID, err)
	}
	return existing.ProcessedAt == nil, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Update("processed_at", at).Error
	if err != nil {
		return fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	return nil
}
