package order

import (
	"context"
	"time"

	"go-checkout/payment/db"
)

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]any
}

type GatewayOrder struct {
	ID        string
	Amount    int64
	Currency  string
	Receipt   string
	Notes     map[string]any
	CreatedAt time.Time
}

// Gateway mints orders on the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	// ListOrders returns up to count orders created at or after from, skipping the first skip.
	ListOrders(ctx context.Context, from time.Time, count, skip int) ([]GatewayOrder, error)
}

type Store interface {
	Create(ctx context.Context, order *db.PaymentOrder) error
	InsertIfAbsent(ctx context.Context, order *db.PaymentOrder) (bool, error)
	Get(ctx context.Context, orderID string) (*db.PaymentOrder, error)
	ListByUser(ctx context.Context, userID string) ([]db.PaymentOrder, error)
	Transition(ctx context.Context, orderID string, to db.Status, from []db.Status, fields db.Fields) (bool, error)
}

// EventStore journals webhook deliveries by gateway event id.
type EventStore interface {
	RecordEvent(ctx context.Context, event *db.WebhookEvent) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string, at time.Time) error
}
