package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-checkout/payment/order"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrMissingCredentials = errors.New("razorpay credentials not configured")

// Razorpay adapts the Razorpay SDK to order.Gateway. The SDK takes no context, so
// ctx is only checked before each call.
type Razorpay struct {
	client *razorpay.Client
}

func NewRazorpay(keyID, keySecret string) (*Razorpay, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrMissingCredentials
	}
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret)}, nil
}

func (r *Razorpay) CreateOrder(ctx context.Context, req order.OrderRequest) (*order.GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := req.Notes
	if notes == nil {
		notes = map[string]any{}
	}
	body, err := r.client.Order.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, err
	}

	o, err := parseOrder(body)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Razorpay) ListOrders(ctx context.Context, from time.Time, count, skip int) ([]order.GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := r.client.Order.All(map[string]interface{}{
		"from":  from.Unix(),
		"count": count,
		"skip":  skip,
	}, nil)
	if err != nil {
		return nil, err
	}
	return parseCollection(body)
}

func parseCollection(body map[string]interface{}) ([]order.GatewayOrder, error) {
	raw, ok := body["items"]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected items type %T", raw)
	}

	orders := make([]order.GatewayOrder, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected order type %T", item)
		}
		o, err := parseOrder(m)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func parseOrder(m map[string]interface{}) (order.GatewayOrder, error) {
	id, _ := m["id"].(string)
	if id == "" {
		return order.GatewayOrder{}, errors.New("gateway order without id")
	}

	o := order.GatewayOrder{
		ID:     id,
		Amount: toInt64(m["amount"]),
	}
	o.Currency, _ = m["currency"].(string)
	o.Receipt, _ = m["receipt"].(string)

	// empty notes come back as [] instead of {}
	if notes, ok := m["notes"].(map[string]interface{}); ok {
		o.Notes = notes
	}
	if ts := toInt64(m["created_at"]); ts > 0 {
		o.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return o, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
