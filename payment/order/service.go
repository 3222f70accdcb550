package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-checkout/payment/db"
	"go-checkout/utils"

	"go.uber.org/zap"
)

const (
	DefaultMinAmount = 100 // minor units
	DefaultCurrency  = "INR"

	// notes key carrying the creating principal, read back by the reconciler
	userIDNote = "user_id"
)

type Options struct {
	KeySecret       string
	MinAmount       int64
	DefaultCurrency string
	Now             func() time.Time
}

// Service creates orders and records client side payment verification.
type Service struct {
	gateway         Gateway
	store           Store
	logger          *zap.Logger
	keySecret       string
	minAmount       int64
	defaultCurrency string
	now             func() time.Time
}

func NewService(gateway Gateway, store Store, logger *zap.Logger, opts Options) *Service {
	if opts.MinAmount <= 0 {
		opts.MinAmount = DefaultMinAmount
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:         gateway,
		store:           store,
		logger:          logger,
		keySecret:       opts.KeySecret,
		minAmount:       opts.MinAmount,
		defaultCurrency: strings.ToUpper(opts.DefaultCurrency),
		now:             opts.Now,
	}
}

type CreateOrderRequest struct {
	Amount   int64          `json:"amount"` // minor units, e.g. 49900 for 499.00 INR
	Currency string         `json:"currency"`
	Receipt  string         `json:"receipt"`
	Notes    map[string]any `json:"notes"`
}

type CreatedOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (s *Service) CreateOrder(ctx context.Context, identity string, req CreateOrderRequest) (*CreatedOrder, error) {
	if identity == "" {
		return nil, newError(Unauthenticated, "User must be logged in", nil)
	}
	if req.Amount < s.minAmount {
		return nil, newError(InvalidArgument, "Invalid amount", nil)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	receipt := req.Receipt
	if receipt == "" {
		receipt = utils.GenerateReceipt()
	}
	notes := make(map[string]any, len(req.Notes)+1)
	for k, v := range req.Notes {
		notes[k] = v
	}
	notes[userIDNote] = identity

	gwOrder, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   req.Amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("user_id", identity), zap.Int64("amount", req.Amount), zap.Error(err))
		return nil, newError(Internal, err.Error(), err)
	}

	record := &db.PaymentOrder{
		OrderID:   gwOrder.ID,
		UserID:    identity,
		Amount:    gwOrder.Amount,
		Currency:  gwOrder.Currency,
		Receipt:   gwOrder.Receipt,
		Notes:     notes,
		Status:    db.StatusCreated,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		// The gateway holds an order with no local record. The reconciler restores it.
		s.logger.Error("order created on gateway but not persisted",
			zap.String("order_id", gwOrder.ID), zap.String("user_id", identity), zap.Error(err))
		return nil, newError(Internal, "Failed to record order", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", record.OrderID), zap.String("user_id", identity),
		zap.Int64("amount", record.Amount), zap.String("currency", record.Currency))

	return &CreatedOrder{ID: record.OrderID, Amount: record.Amount, Currency: record.Currency}, nil
}

// VerifyPaymentRequest uses the field names the checkout hands back to the client.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type Verification struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

// VerifyPayment records the client's claim that it paid. The webhook stays
// authoritative: a record the webhook already advanced is left as is.
func (s *Service) VerifyPayment(ctx context.Context, identity string, req VerifyPaymentRequest) (*Verification, error) {
	if identity == "" {
		return nil, newError(Unauthenticated, "User must be logged in", nil)
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, newError(InvalidArgument, "Missing required fields", nil)
	}

	log := s.logger.With(zap.String("order_id", req.OrderID), zap.String("payment_id", req.PaymentID))

	if !VerifyPaymentSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		// a forged claim revokes an earlier client verification, CAPTURED stays
		_, err := s.store.Transition(ctx, req.OrderID, db.StatusFailed,
			[]db.Status{db.StatusCreated, db.StatusSuccess},
			db.Fields{"failure_reason": "Invalid signature"})
		if err != nil && !errors.Is(err, db.ErrOrderNotFound) {
			log.Error("recording failed verification", zap.Error(err))
			return nil, newError(Internal, "Failed to update order", err)
		}
		log.Warn("payment signature mismatch", zap.String("user_id", identity))
		return nil, newError(PermissionDenied, "Invalid payment signature", nil)
	}

	applied, err := s.store.Transition(ctx, req.OrderID, db.StatusSuccess,
		[]db.Status{db.StatusCreated},
		db.Fields{
			"payment_id":  req.PaymentID,
			"signature":   req.Signature,
			"verified_at": s.now().UTC(),
		})
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, newError(NotFound, "Order not found", err)
	}
	if err != nil {
		log.Error("recording verified payment", zap.Error(err))
		return nil, newError(Internal, "Failed to update order", err)
	}
	if !applied {
		log.Info("order already advanced past CREATED, verification not recorded")
	} else {
		log.Info("payment verified")
	}

	return &Verification{Success: true, Verified: true}, nil
}

// GetOrder returns an order owned by identity. Orders of other principals are
// reported as not found.
func (s *Service) GetOrder(ctx context.Context, identity, orderID string) (*db.PaymentOrder, error) {
	if identity == "" {
		return nil, newError(Unauthenticated, "User must be logged in", nil)
	}
	if orderID == "" {
		return nil, newError(InvalidArgument, "Missing order id", nil)
	}

	order, err := s.store.Get(ctx, orderID)
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, newError(NotFound, "Order not found", err)
	}
	if err != nil {
		return nil, newError(Internal, "Failed to load order", err)
	}
	if order.UserID != identity {
		return nil, newError(NotFound, "Order not found", nil)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, identity string) ([]db.PaymentOrder, error) {
	if identity == "" {
		return nil, newError(Unauthenticated, "User must be logged in", nil)
	}
	orders, err := s.store.ListByUser(ctx, identity)
	if err != nil {
		return nil, newError(Internal, "Failed to fetch payments", err)
	}
	return orders, nil
}
