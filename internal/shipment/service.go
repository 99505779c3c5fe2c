package shipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/events"
	"github.com/noah-isme/miniapp-shop/internal/obs"
	"github.com/noah-isme/miniapp-shop/internal/order"
)

// Confirmation is the payment processor's verdict for an order.
type Confirmation struct {
	Success       bool
	TransactionID string
}

// Processor abstracts the external payment processor.
type Processor interface {
	Confirm(ctx context.Context, o order.Order) (Confirmation, error)
}

// Service owns the order shipment lifecycle: it validates transitions,
// assigns tracking numbers on payment and serves tracking queries through
// the carrier router. Defined once over the storage-agnostic order.Store so
// both persistence backends share a single set of business rules.
type Service struct {
	Store     order.Store
	Router    *carrier.Router
	Processor Processor
	Events    *events.Bus
	Logger    zerolog.Logger
	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

const deliveryEstimate = 72 * time.Hour

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ConfirmPayment drives PENDING_PAYMENT -> PAID. On success it records the
// payment id, sets the delivery estimate and assigns a fresh tracking number
// from the primary carrier. A processor rejection moves the order to
// PAYMENT_FAILED and returns ErrPaymentDeclined.
func (s *Service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	ctx, span := otel.Tracer("shipment.Service").Start(ctx, "Shipment.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Status != order.StatusPendingPayment {
		return order.Order{}, fmt.Errorf("%w: cannot pay order in status %s", ErrInvalidTransition, o.Status)
	}

	conf, err := s.Processor.Confirm(ctx, o)
	if err != nil || !conf.Success {
		recordConfirm("declined")
		o.Status = order.StatusPaymentFailed
		if saveErr := s.Store.SaveOrder(ctx, &o); saveErr != nil {
			return order.Order{}, saveErr
		}
		s.emit(ctx, events.TopicPaymentFailed, o)
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
		}
		return o, ErrPaymentDeclined
	}

	return s.applyPayment(ctx, o, conf)
}

// ApplyPaymentResult applies an already-verified processor confirmation,
// e.g. one delivered through the payment webhook.
func (s *Service) ApplyPaymentResult(ctx context.Context, orderID uuid.UUID, conf Confirmation) (order.Order, error) {
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Status != order.StatusPendingPayment {
		return order.Order{}, fmt.Errorf("%w: cannot pay order in status %s", ErrInvalidTransition, o.Status)
	}
	if !conf.Success {
		recordConfirm("declined")
		o.Status = order.StatusPaymentFailed
		if err := s.Store.SaveOrder(ctx, &o); err != nil {
			return order.Order{}, err
		}
		s.emit(ctx, events.TopicPaymentFailed, o)
		return o, ErrPaymentDeclined
	}
	return s.applyPayment(ctx, o, conf)
}

func (s *Service) applyPayment(ctx context.Context, o order.Order, conf Confirmation) (order.Order, error) {
	now := s.clock()
	eta := now.Add(deliveryEstimate)

	o.Status = order.StatusPaid
	o.PaymentID = conf.TransactionID
	o.EstimatedDelivery = &eta
	o.TrackingNumber = s.Router.Primary().GenerateTrackingNumber()

	if err := s.Store.SaveOrder(ctx, &o); err != nil {
		return order.Order{}, err
	}
	recordConfirm("success")
	s.Logger.Info().
		Str("order_id", o.ID.String()).
		Str("tracking_number", o.TrackingNumber).
		Msg("payment confirmed, tracking number assigned")
	s.emit(ctx, events.TopicOrderPaid, o)
	return o, nil
}

// MarkShipped drives PAID -> SHIPPED. A tracking number that no longer
// passes the carrier's format check (legacy data, another carrier's scheme)
// is regenerated rather than rejected: shipment is never blocked by a
// cosmetic format mismatch.
func (s *Service) MarkShipped(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Status != order.StatusPaid {
		return order.Order{}, fmt.Errorf("%w: cannot ship order in status %s", ErrInvalidTransition, o.Status)
	}

	primary := s.Router.Primary()
	if !primary.Matches(o.TrackingNumber) {
		regenerated := primary.GenerateTrackingNumber()
		s.Logger.Warn().
			Str("order_id", o.ID.String()).
			Str("old_tracking_number", o.TrackingNumber).
			Str("new_tracking_number", regenerated).
			Msg("tracking number failed format check, regenerated before shipping")
		if obs.TrackingNumberRegenerated != nil {
			obs.TrackingNumberRegenerated.Inc()
		}
		o.TrackingNumber = regenerated
	}

	o.Status = order.StatusShipped
	if err := s.Store.SaveOrder(ctx, &o); err != nil {
		return order.Order{}, err
	}
	s.emit(ctx, events.TopicShipmentShipped, o)
	return o, nil
}

// MarkDelivered drives SHIPPED -> DELIVERED.
func (s *Service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Status != order.StatusShipped {
		return order.Order{}, fmt.Errorf("%w: cannot deliver order in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = order.StatusDelivered
	if err := s.Store.SaveOrder(ctx, &o); err != nil {
		return order.Order{}, err
	}
	s.emit(ctx, events.TopicShipmentDelivered, o)
	return o, nil
}

// Cancel moves any pre-delivered order to CANCELED. Terminal states
// (DELIVERED and the side states) rank outside the cancellable window.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if rank := order.Rank(o.Status); rank < 0 || rank >= order.Rank(order.StatusDelivered) {
		return order.Order{}, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = order.StatusCanceled
	if err := s.Store.SaveOrder(ctx, &o); err != nil {
		return order.Order{}, err
	}
	s.emit(ctx, events.TopicOrderCanceled, o)
	return o, nil
}

// Tracking serves a tracking query for the given user's order. The carrier
// is always re-derived from the number's shape by the router, so historical
// orders are never locked to a stale carrier detection.
func (s *Service) Tracking(ctx context.Context, userID, orderID uuid.UUID) (carrier.Result, error) {
	ctx, span := otel.Tracer("shipment.Service").Start(ctx, "Shipment.Tracking")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	o, err := s.Store.FindOrderForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			recordTrackingRequest("not_found")
			return carrier.Result{}, ErrOrderNotFound
		}
		return carrier.Result{}, err
	}
	if (o.Status != order.StatusShipped && o.Status != order.StatusDelivered) || o.TrackingNumber == "" {
		recordTrackingRequest("unavailable")
		return carrier.Result{}, fmt.Errorf("%w: order status %s", ErrTrackingNotAvailable, o.Status)
	}

	result, err := s.Router.Track(ctx, o.TrackingNumber, "")
	if err != nil {
		span.RecordError(err)
		recordTrackingRequest("error")
		return carrier.Result{}, err
	}
	recordTrackingRequest("success")
	return result, nil
}

func (s *Service) findOrder(ctx context.Context, id uuid.UUID) (order.Order, error) {
	o, err := s.Store.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return order.Order{}, ErrOrderNotFound
		}
		return order.Order{}, err
	}
	return o, nil
}

func (s *Service) emit(ctx context.Context, topic string, o order.Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":     o.ID.String(),
		"orderNumber": o.Number,
		"status":      string(o.Status),
	}
	if o.TrackingNumber != "" {
		payload["trackingNumber"] = o.TrackingNumber
	}
	if _, err := s.Events.Emit(ctx, topic, o.ID, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func recordConfirm(result string) {
	if obs.PaymentConfirmTotal != nil {
		obs.PaymentConfirmTotal.WithLabelValues(result).Inc()
	}
}

func recordTrackingRequest(result string) {
	if obs.TrackingRequestTotal != nil {
		obs.TrackingRequestTotal.WithLabelValues(result).Inc()
	}
}
