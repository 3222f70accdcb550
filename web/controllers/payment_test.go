package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-checkout/payment/db"
	"go-checkout/payment/db/dbtest"
	"go-checkout/payment/order"
	"go-checkout/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	jwtSecret     = "jwt-secret"
	keySecret     = "key-secret"
	webhookSecret = "webhook-secret"
)

type stubGateway struct{ n int }

func (g *stubGateway) CreateOrder(_ context.Context, req order.OrderRequest) (*order.GatewayOrder, error) {
	g.n++
	return &order.GatewayOrder{
		ID:       fmt.Sprintf("order_%d", g.n),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	}, nil
}

func (g *stubGateway) ListOrders(context.Context, time.Time, int, int) ([]order.GatewayOrder, error) {
	return nil, nil
}

type testServer struct {
	router *gin.Engine
	store  *db.Store
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	store := db.NewStore(dbtest.Open(t))
	pc := &PaymentController{
		Orders:   order.NewService(&stubGateway{}, store, nil, order.Options{KeySecret: keySecret}),
		Webhooks: order.NewWebhookHandler(store, store, webhookSecret, nil, nil),
		Logger:   zap.NewNop(),
	}
	r := gin.New()
	pc.RegisterRoutes(r, middleware.Authenticate(jwtSecret), func(c *gin.Context) { c.Next() })
	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := middleware.IssueToken(jwtSecret, user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestCreateOrderEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 49900})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"id": "order_1", "amount": float64(49900), "currency": "INR"}, body["order"])

	w = s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"error": "Invalid amount", "code": "invalid-argument"}, decodeBody(t, w))

	w = s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": "lots"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/payment/order", "", gin.H{"amount": 49900})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, w)["code"])
}

func TestVerifyEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 49900}).Code)

	w := s.do(t, http.MethodPost, "/payment/verify", "", gin.H{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  order.PaymentSignature(keySecret, "order_1", "pay_1"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/payment/verify", "user_1", gin.H{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "0000",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid payment signature", decodeBody(t, w)["error"])

	w = s.do(t, http.MethodPost, "/payment/verify", "user_1", gin.H{"razorpay_order_id": "order_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEndpointSuccess(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 49900}).Code)

	w := s.do(t, http.MethodPost, "/payment/verify", "user_1", gin.H{
		"razorpay_order_id":   "order_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  order.PaymentSignature(keySecret, "order_1", "pay_1"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "verified": true}, decodeBody(t, w))

	w = s.do(t, http.MethodGet, "/payment/status/order_1", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "SUCCESS", body["status"])
	assert.Equal(t, "499.00", body["display_amount"])
	assert.Equal(t, "pay_1", body["payment_id"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/payment/status/order_1", "user_2", nil).Code)
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 49900}).Code)

	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}}`)
	post := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set("x-razorpay-signature", signature)
		}
		req.Header.Set("x-razorpay-event-id", "evt_1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := post(payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing signature", w.Body.String())

	w = post(payload, order.Sign("wrong", payload))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid signature", w.Body.String())

	got, err := s.store.Get(context.Background(), "order_1")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCreated, got.Status)

	w = post(payload, order.Sign(webhookSecret, payload))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	got, err = s.store.Get(context.Background(), "order_1")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCaptured, got.Status)
}

func TestListEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 49900}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/payment/order", "user_1", gin.H{"amount": 1000, "currency": "JPY"}).Code)

	w := s.do(t, http.MethodGet, "/payment/list", "user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payments := decodeBody(t, w)["payments"].([]any)
	assert.Len(t, payments, 2)

	w = s.do(t, http.MethodGet, "/payment/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisplayAmount(t *testing.T) {
	assert.Equal(t, "499.00", displayAmount(49900, "INR"))
	assert.Equal(t, "1.00", displayAmount(100, "USD"))
	assert.Equal(t, "0.05", displayAmount(5, "INR"))
	assert.Equal(t, "1000", displayAmount(1000, "JPY"))
}
