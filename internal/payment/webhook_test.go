package payment_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/order"
	"github.com/noah-isme/miniapp-shop/internal/payment"
	"github.com/noah-isme/miniapp-shop/internal/repo"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

const webhookSecret = "whsec-test"

func newWebhook(t *testing.T) (payment.Webhook, *repo.OrderMem) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repo.NewOrderMem()
	svc := &shipment.Service{
		Store:  store,
		Router: carrier.NewRouter(carrier.NewJNE(carrier.JNEConfig{})),
		Logger: zerolog.Nop(),
	}
	return payment.Webhook{
		Secret:    webhookSecret,
		Shipments: svc,
		Replay:    rdb,
		ReplayTTL: time.Hour,
		Logger:    zerolog.Nop(),
	}, store
}

func seedPendingOrder(t *testing.T, store *repo.OrderMem) order.Order {
	t.Helper()
	o := order.Order{
		UserID:   uuid.New(),
		Number:   order.NewNumber(time.Now()),
		Status:   order.StatusPendingPayment,
		Currency: "IDR",
		Subtotal: 90000,
		Total:    105000,
	}
	require.NoError(t, store.CreateOrder(context.Background(), &o))
	return o
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h payment.Webhook, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookAppliesPayment(t *testing.T) {
	t.Parallel()
	h, store := newWebhook(t)
	o := seedPendingOrder(t, store)

	body := []byte(fmt.Sprintf(`{"orderId":%q,"status":"PAID","transactionId":"TRX-1"}`, o.ID))
	rec := postWebhook(h, body, sign(body))
	require.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := store.FindOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, stored.Status)
	require.Equal(t, "TRX-1", stored.PaymentID)
	require.True(t, carrier.IsJNEFormat(stored.TrackingNumber))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()
	h, store := newWebhook(t)
	o := seedPendingOrder(t, store)

	body := []byte(fmt.Sprintf(`{"orderId":%q,"status":"PAID"}`, o.ID))
	rec := postWebhook(h, body, "deadbeef")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(h, body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	stored, err := store.FindOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPendingPayment, stored.Status)
}

func TestWebhookRejectsReplay(t *testing.T) {
	t.Parallel()
	h, store := newWebhook(t)
	o := seedPendingOrder(t, store)

	body := []byte(fmt.Sprintf(`{"orderId":%q,"status":"PAID","transactionId":"TRX-2"}`, o.ID))
	sig := sign(body)

	rec := postWebhook(h, body, sig)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = postWebhook(h, body, sig)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestWebhookDeclinedIsProcessed(t *testing.T) {
	t.Parallel()
	h, store := newWebhook(t)
	o := seedPendingOrder(t, store)

	body := []byte(fmt.Sprintf(`{"orderId":%q,"status":"FAILED"}`, o.ID))
	rec := postWebhook(h, body, sign(body))
	require.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := store.FindOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPaymentFailed, stored.Status)
}

func TestWebhookUnknownOrder(t *testing.T) {
	t.Parallel()
	h, _ := newWebhook(t)

	body := []byte(fmt.Sprintf(`{"orderId":%q,"status":"PAID"}`, uuid.New()))
	rec := postWebhook(h, body, sign(body))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookInvalidBody(t *testing.T) {
	t.Parallel()
	h, _ := newWebhook(t)

	body := []byte(`{"orderId":"not-a-uuid","status":"PAID"}`)
	rec := postWebhook(h, body, sign(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = []byte(`{malformed`)
	rec = postWebhook(h, body, sign(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
