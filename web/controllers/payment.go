package controllers

import (
	"net/http"
	"time"

	"go-checkout/payment/db"
	"go-checkout/payment/order"
	"go-checkout/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// gateway webhooks are small, anything bigger is not from the gateway
const maxWebhookBody = 1 << 20

type PaymentController struct {
	Orders   *order.Service
	Webhooks *order.WebhookHandler
	Logger   *zap.Logger
}

func (pc *PaymentController) fail(c *gin.Context, err error) {
	kind := order.KindOf(err)
	if kind == order.Internal {
		pc.Logger.Error("payment request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(kind.HTTPStatus(), gin.H{
		"error": order.Message(err),
		"code":  kind,
	})
}

func (pc *PaymentController) CreateOrder(c *gin.Context) {
	user := middleware.Identity(c)

	var req order.CreateOrderRequest
	// an anonymous caller gets Unauthenticated from the service whatever the body
	if err := c.ShouldBindJSON(&req); err != nil && user != "" {
		pc.fail(c, &order.Error{Kind: order.InvalidArgument, Message: "Invalid amount", Err: err})
		return
	}

	created, err := pc.Orders.CreateOrder(c.Request.Context(), user, req)
	if err != nil {
		pc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   created,
	})
}

func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	user := middleware.Identity(c)

	var req order.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && user != "" {
		pc.fail(c, &order.Error{Kind: order.InvalidArgument, Message: "Missing required fields", Err: err})
		return
	}

	res, err := pc.Orders.VerifyPayment(c.Request.Context(), user, req)
	if err != nil {
		pc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Webhook answers the gateway with plain status codes only.
func (pc *PaymentController) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid body")
		return
	}

	res := pc.Webhooks.Handle(c.Request.Context(), body,
		c.GetHeader(order.SignatureHeader), c.GetHeader(order.EventIDHeader))
	c.String(res.Status, res.Message)
}

type paymentView struct {
	OrderID       string     `json:"order_id"`
	Status        db.Status  `json:"status"`
	Amount        int64      `json:"amount"`
	DisplayAmount string     `json:"display_amount"`
	Currency      string     `json:"currency"`
	Receipt       string     `json:"receipt"`
	PaymentID     string     `json:"payment_id,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"`
}

// currencies without a minor unit
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
}

func displayAmount(amount int64, currency string) string {
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(amount).String()
	}
	return decimal.New(amount, -2).StringFixed(2)
}

func newPaymentView(o db.PaymentOrder) paymentView {
	return paymentView{
		OrderID:       o.OrderID,
		Status:        o.Status,
		Amount:        o.Amount,
		DisplayAmount: displayAmount(o.Amount, o.Currency),
		Currency:      o.Currency,
		Receipt:       o.Receipt,
		PaymentID:     o.PaymentID,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		VerifiedAt:    o.VerifiedAt,
		CapturedAt:    o.CapturedAt,
	}
}

func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	o, err := pc.Orders.GetOrder(c.Request.Context(), middleware.Identity(c), c.Param("order_id"))
	if err != nil {
		pc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentView(*o))
}

func (pc *PaymentController) ListPayments(c *gin.Context) {
	orders, err := pc.Orders.ListOrders(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		pc.fail(c, err)
		return
	}

	payments := make([]paymentView, 0, len(orders))
	for _, o := range orders {
		payments = append(payments, newPaymentView(o))
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// RegisterRoutes mounts the payment endpoints. The webhook is left out of the rate
// limiter, the gateway retries on 429.
func (pc *PaymentController) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc, limiter gin.HandlerFunc) {
	r.POST("/payment/order", limiter, auth, pc.CreateOrder)
	r.POST("/payment/verify", limiter, auth, pc.VerifyPayment)
	r.GET("/payment/status/:order_id", limiter, auth, pc.GetPaymentStatus)
	r.GET("/payment/list", limiter, auth, pc.ListPayments)
	r.POST("/payment/webhook", pc.Webhook)
}
