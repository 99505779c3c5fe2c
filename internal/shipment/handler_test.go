package shipment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/common"
	"github.com/noah-isme/miniapp-shop/internal/order"
	"github.com/noah-isme/miniapp-shop/internal/payment"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

func trackingRequest(t *testing.T, userID uuid.UUID, orderID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/orders/"+orderID+"/tracking", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != uuid.Nil {
		ctx = common.WithUserID(ctx, userID.String())
	}
	return req.WithContext(ctx)
}

func TestGetTrackingStatusMapping(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, &payment.Mock{})
	h := &shipment.Handler{Svc: svc}

	pending := seedOrder(t, store, order.StatusPendingPayment)

	cases := []struct {
		name     string
		userID   uuid.UUID
		orderID  string
		wantCode int
		wantBody string
	}{
		{"unknown order", pending.UserID, uuid.NewString(), http.StatusNotFound, "NOT_FOUND"},
		{"foreign order", uuid.New(), pending.ID.String(), http.StatusNotFound, "NOT_FOUND"},
		{"premature tracking", pending.UserID, pending.ID.String(), http.StatusBadRequest, "TRACKING_NOT_AVAILABLE"},
		{"bad order id", pending.UserID, "nope", http.StatusBadRequest, "BAD_REQUEST"},
		{"unauthenticated", uuid.Nil, pending.ID.String(), http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetTracking(rec, trackingRequest(t, tc.userID, tc.orderID))
			require.Equal(t, tc.wantCode, rec.Code)
			require.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestGetTrackingSuccessPayload(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, &payment.Mock{})
	h := &shipment.Handler{Svc: svc}

	o := seedOrder(t, store, order.StatusPendingPayment)
	_, err := svc.ConfirmPayment(context.Background(), o.ID)
	require.NoError(t, err)
	_, err = svc.MarkShipped(context.Background(), o.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.GetTracking(rec, trackingRequest(t, o.UserID, o.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			TrackingNumber string           `json:"trackingNumber"`
			Carrier        string           `json:"carrier"`
			Status         string           `json:"status"`
			Source         string           `json:"source"`
			Events         []map[string]any `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "jne", body.Data.Carrier)
	require.Equal(t, "synthetic", body.Data.Source)
	require.NotEmpty(t, body.Data.TrackingNumber)
	require.GreaterOrEqual(t, len(body.Data.Events), 4)
}

func TestPayEndpoint(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, &payment.Mock{})
	h := &shipment.Handler{Svc: svc}

	o := seedOrder(t, store, order.StatusPendingPayment)
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/"+o.ID.String()+"/pay", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", o.ID.String())
	ctx := common.WithUserID(context.WithValue(req.Context(), chi.RouteCtxKey, rctx), o.UserID.String())

	rec := httptest.NewRecorder()
	h.Pay(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"PAID"`)

	// Paying twice is a state conflict.
	rec = httptest.NewRecorder()
	h.Pay(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_STATE")
}
