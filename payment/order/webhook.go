package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-checkout/payment/db"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"
)

type EventKind string

const (
	EventPaymentCaptured EventKind = "payment.captured"
	EventPaymentFailed   EventKind = "payment.failed"
	EventOrderPaid       EventKind = "order.paid"
)

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type OrderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Status     string `json:"status"`
	Receipt    string `json:"receipt"`
}

type WebhookEvent struct {
	Event     EventKind `json:"event"`
	AccountID string    `json:"account_id"`
	CreatedAt int64     `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (e *WebhookEvent) payment() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

func (e *WebhookEvent) orderID() string {
	if p := e.payment(); p != nil && p.OrderID != "" {
		return p.OrderID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}

// WebhookResult is what the endpoint answers the gateway. Anything but 2xx makes
// the gateway redeliver.
type WebhookResult struct {
	Status  int
	Message string
}

type transitionFunc func(ctx context.Context, event *WebhookEvent) error

// WebhookHandler applies gateway events to orders. Every transition is a conditional
// update, so redelivered or reordered events converge on the same record.
type WebhookHandler struct {
	store       Store
	events      EventStore
	secret      string
	logger      *zap.Logger
	now         func() time.Time
	transitions map[EventKind]transitionFunc
}

// NewWebhookHandler builds the handler. events may be nil, deliveries are then not
// journaled and deduplication relies on the transitions alone.
func NewWebhookHandler(store Store, events EventStore, secret string, logger *zap.Logger, now func() time.Time) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	h := &WebhookHandler{
		store:  store,
		events: events,
		secret: secret,
		logger: logger,
		now:    now,
	}
	h.transitions = map[EventKind]transitionFunc{
		EventPaymentCaptured: h.paymentCaptured,
		EventPaymentFailed:   h.paymentFailed,
		EventOrderPaid:       h.orderPaid,
	}
	return h
}

func (h *WebhookHandler) Handle(ctx context.Context, body []byte, signature, eventID string) WebhookResult {
	if signature == "" {
		return WebhookResult{http.StatusBadRequest, "Missing signature"}
	}
	if !VerifyWebhookSignature(h.secret, body, signature) {
		h.logger.Warn("webhook signature mismatch", zap.String("event_id", eventID))
		return WebhookResult{http.StatusBadRequest, "Invalid signature"}
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("malformed webhook body", zap.String("event_id", eventID), zap.Error(err))
		return WebhookResult{http.StatusBadRequest, "Malformed payload"}
	}

	log := h.logger.With(
		zap.String("event", string(event.Event)),
		zap.String("event_id", eventID),
		zap.String("order_id", event.orderID()))

	journaled := eventID != "" && h.events != nil
	if journaled {
		first, err := h.events.RecordEvent(ctx, &db.WebhookEvent{
			EventID:    eventID,
			Event:      string(event.Event),
			OrderID:    event.orderID(),
			Payload:    body,
			ReceivedAt: h.now().UTC(),
		})
		if err != nil {
			log.Error("journaling webhook", zap.Error(err))
			return WebhookResult{http.StatusInternalServerError, "Error processing webhook"}
		}
		if !first {
			log.Info("duplicate webhook delivery ignored")
			return WebhookResult{http.StatusOK, "OK"}
		}
	}

	apply, ok := h.transitions[event.Event]
	if !ok {
		log.Info("unhandled webhook event")
	} else if err := apply(ctx, &event); err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			// redelivery succeeds once the reconciler has restored the order
			log.Warn("webhook for unknown order")
		} else {
			log.Error("applying webhook", zap.Error(err))
		}
		return WebhookResult{http.StatusInternalServerError, "Error processing webhook"}
	}

	if journaled {
		if err := h.events.MarkEventProcessed(ctx, eventID, h.now().UTC()); err != nil {
			// the transition is already applied and replaying it is a no-op
			log.Warn("marking webhook processed", zap.Error(err))
		}
	}
	return WebhookResult{http.StatusOK, "OK"}
}

func (h *WebhookHandler) paymentCaptured(ctx context.Context, event *WebhookEvent) error {
	p := event.payment()
	if p == nil || p.OrderID == "" {
		h.logger.Warn("payment.captured without order id")
		return nil
	}

	fields := db.Fields{"captured_at": h.now().UTC()}
	if p.ID != "" {
		fields["payment_id"] = p.ID
	}
	applied, err := h.store.Transition(ctx, p.OrderID, db.StatusCaptured,
		[]db.Status{db.StatusCreated, db.StatusSuccess, db.StatusFailed}, fields)
	if err != nil {
		return err
	}
	h.logger.Info("payment captured",
		zap.String("order_id", p.OrderID), zap.String("payment_id", p.ID), zap.Bool("applied", applied))
	return nil
}

func (h *WebhookHandler) paymentFailed(ctx context.Context, event *WebhookEvent) error {
	p := event.payment()
	if p == nil || p.OrderID == "" {
		h.logger.Warn("payment.failed without order id")
		return nil
	}

	reason := p.ErrorDescription
	if reason == "" {
		reason = p.ErrorCode
	}
	fields := db.Fields{"failure_reason": reason}
	if p.ID != "" {
		fields["payment_id"] = p.ID
	}
	// CAPTURED is terminal and FAILED keeps its first reason
	applied, err := h.store.Transition(ctx, p.OrderID, db.StatusFailed,
		[]db.Status{db.StatusCreated, db.StatusSuccess}, fields)
	if err != nil {
		return err
	}
	h.logger.Info("payment failed",
		zap.String("order_id", p.OrderID), zap.String("reason", reason), zap.Bool("applied", applied))
	return nil
}

// orderPaid only logs. payment.captured drives the status.
func (h *WebhookHandler) orderPaid(_ context.Context, event *WebhookEvent) error {
	h.logger.Info("order paid", zap.String("order_id", event.orderID()))
	return nil
}
