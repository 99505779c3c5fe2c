package shipment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/order"
	"github.com/noah-isme/miniapp-shop/internal/payment"
	"github.com/noah-isme/miniapp-shop/internal/repo"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

func TestRefreshMarksDeliveredFromLiveStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"result": {
				"number": "123456789012",
				"status": "DELIVERED",
				"list": [{"status": "DELIVERED", "time": "2024-05-01 10:00:00", "location": "Bandung", "context": "Received by resident"}]
			}
		}`))
	}))
	t.Cleanup(server.Close)

	store := repo.NewOrderMem()
	jne := carrier.NewJNE(carrier.JNEConfig{BaseURL: server.URL, Timeout: time.Second})
	svc := &shipment.Service{
		Store:     store,
		Router:    carrier.NewRouter(jne),
		Processor: &payment.Mock{},
		Logger:    zerolog.Nop(),
	}
	shipped := seedOrder(t, store, order.StatusShipped)
	shipped.TrackingNumber = "123456789012"
	require.NoError(t, store.SaveOrder(context.Background(), &shipped))

	refresher := &shipment.Refresher{Svc: svc, Logger: zerolog.Nop()}
	require.NoError(t, refresher.RefreshOnce(context.Background()))

	stored, err := store.FindOrder(context.Background(), shipped.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusDelivered, stored.Status)
}

func TestRefreshIgnoresSyntheticResults(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, &payment.Mock{})
	shipped := seedOrder(t, store, order.StatusShipped)
	shipped.TrackingNumber = "123456789012"
	require.NoError(t, store.SaveOrder(context.Background(), &shipped))

	refresher := &shipment.Refresher{Svc: svc, Logger: zerolog.Nop()}
	require.NoError(t, refresher.RefreshOnce(context.Background()))

	stored, err := store.FindOrder(context.Background(), shipped.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusShipped, stored.Status, "synthetic tracking must never advance an order")
}

func TestRefreshSkipsInTransitOrders(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "result": {"number": "123456789012", "status": "IN_TRANSIT", "list": []}}`))
	}))
	t.Cleanup(server.Close)

	store := repo.NewOrderMem()
	jne := carrier.NewJNE(carrier.JNEConfig{BaseURL: server.URL, Timeout: time.Second})
	svc := &shipment.Service{
		Store:  store,
		Router: carrier.NewRouter(jne),
		Logger: zerolog.Nop(),
	}
	shipped := seedOrder(t, store, order.StatusShipped)
	shipped.TrackingNumber = "123456789012"
	require.NoError(t, store.SaveOrder(context.Background(), &shipped))

	refresher := &shipment.Refresher{Svc: svc, Logger: zerolog.Nop()}
	require.NoError(t, refresher.RefreshOnce(context.Background()))

	stored, err := store.FindOrder(context.Background(), shipped.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusShipped, stored.Status)
}
