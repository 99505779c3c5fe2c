package shipment

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/order"
)

// Refresher advances shipped orders whose carrier reports delivery. It is
// driven periodically by the worker.
type Refresher struct {
	Svc       *Service
	Logger    zerolog.Logger
	BatchSize int32
}

func (r *Refresher) batch() int32 {
	if r.BatchSize <= 0 {
		return 100
	}
	return r.BatchSize
}

// RefreshOnce scans one batch of shipped orders and marks delivered the ones
// whose live tracking status says so. Synthetic results never advance an
// order: they are placeholders, not carrier facts.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	orders, err := r.Svc.Store.ListOrdersByStatus(ctx, order.StatusShipped, r.batch())
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.TrackingNumber == "" {
			continue
		}
		result, err := r.Svc.Router.Track(ctx, o.TrackingNumber, "")
		if err != nil {
			r.Logger.Warn().Err(err).
				Str("order_id", o.ID.String()).
				Str("tracking_number", o.TrackingNumber).
				Msg("tracking refresh failed")
			continue
		}
		if result.Source != carrier.SourceLive || !isDeliveredStatus(result.Status) {
			continue
		}
		if _, err := r.Svc.MarkDelivered(ctx, o.ID); err != nil {
			r.Logger.Warn().Err(err).
				Str("order_id", o.ID.String()).
				Msg("mark delivered from refresh")
			continue
		}
		r.Logger.Info().
			Str("order_id", o.ID.String()).
			Str("tracking_number", o.TrackingNumber).
			Msg("order delivered per carrier tracking")
	}
	return nil
}

func isDeliveredStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "DELIVERED", "POD":
		return true
	default:
		return false
	}
}
