package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-checkout/payment/db"
	"go-checkout/payment/db/dbtest"
	"go-checkout/payment/order"

	"github.com/stretchr/testify/require"
)

const (
	keySecret     = "test_key_secret"
	webhookSecret = "test_webhook_secret"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fakeGateway mints sequential order ids and keeps what it created.
type fakeGateway struct {
	mu      sync.Mutex
	orders  []order.GatewayOrder
	err     error
	listErr error
	calls   int
}

func (g *fakeGateway) CreateOrder(_ context.Context, req order.OrderRequest) (*order.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	o := order.GatewayOrder{
		ID:        fmt.Sprintf("order_%d", len(g.orders)+1),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Notes:     req.Notes,
		CreatedAt: fixedNow,
	}
	g.orders = append(g.orders, o)
	return &o, nil
}

func (g *fakeGateway) ListOrders(_ context.Context, from time.Time, count, skip int) ([]order.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var matched []order.GatewayOrder
	for _, o := range g.orders {
		if !o.CreatedAt.Before(from) {
			matched = append(matched, o)
		}
	}
	if skip >= len(matched) {
		return nil, nil
	}
	end := skip + count
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

// failingCreateStore loses every Create, as if the database went away after the
// gateway call.
type failingCreateStore struct {
	*db.Store
}

func (failingCreateStore) Create(context.Context, *db.PaymentOrder) error {
	return errors.New("connection reset")
}

func newStore(t *testing.T) *db.Store {
	return db.NewStore(dbtest.Open(t))
}

func newService(gw order.Gateway, store order.Store) *order.Service {
	return order.NewService(gw, store, nil, order.Options{
		KeySecret:       keySecret,
		MinAmount:       100,
		DefaultCurrency: "INR",
		Now:             clock,
	})
}

func mustGet(t *testing.T, store *db.Store, id string) *db.PaymentOrder {
	t.Helper()
	o, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return o
}
