package shipment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
	"github.com/noah-isme/miniapp-shop/internal/common"
	"github.com/noah-isme/miniapp-shop/internal/order"
)

// Handler exposes the shipment lifecycle and tracking endpoints.
type Handler struct {
	Svc *Service
}

// Pay confirms payment for the authenticated user's order.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	if _, err := h.Svc.Store.FindOrderForUser(r.Context(), orderID, userID); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	o, err := h.Svc.ConfirmPayment(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentDeclined):
			common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", "payment was declined", map[string]any{
				"status": string(o.Status),
			})
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		case errors.Is(err, ErrOrderNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to confirm payment", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": serialiseOrder(o)})
}

// GetTracking returns normalized tracking data for the authenticated user's order.
func (h *Handler) GetTracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	result, err := h.Svc.Tracking(r.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrTrackingNotAvailable):
			common.JSONError(w, http.StatusBadRequest, "TRACKING_NOT_AVAILABLE", "tracking is not available for this order yet", nil)
		case errors.Is(err, carrier.ErrCarrierUnavailable):
			common.JSONError(w, http.StatusBadGateway, "CARRIER_UNAVAILABLE", "carrier is unavailable", nil)
		case errors.Is(err, carrier.ErrCarrierUndetermined):
			common.JSONError(w, http.StatusUnprocessableEntity, "CARRIER_UNDETERMINED", "could not determine carrier for tracking number", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to fetch tracking", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": serialiseTracking(result)})
}

// AdminShip marks a paid order as shipped.
func (h *Handler) AdminShip(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Svc.MarkShipped)
}

// AdminDeliver marks a shipped order as delivered.
func (h *Handler) AdminDeliver(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Svc.MarkDelivered)
}

func (h *Handler) adminTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (order.Order, error)) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := fn(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": serialiseOrder(o)})
}

func serialiseOrder(o order.Order) map[string]any {
	data := map[string]any{
		"id":          o.ID.String(),
		"orderNumber": o.Number,
		"status":      string(o.Status),
		"currency":    o.Currency,
		"subtotal":    o.Subtotal,
		"shippingFee": o.ShippingFee,
		"total":       o.Total,
	}
	if o.TrackingNumber != "" {
		data["trackingNumber"] = o.TrackingNumber
	}
	if o.EstimatedDelivery != nil {
		data["estimatedDelivery"] = o.EstimatedDelivery.UTC().Format(timeLayout)
	}
	if o.PaymentID != "" {
		data["paymentId"] = o.PaymentID
	}
	return data
}

func serialiseTracking(res carrier.Result) map[string]any {
	events := make([]map[string]any, 0, len(res.Events))
	for _, ev := range res.Events {
		events = append(events, map[string]any{
			"status":      ev.Status,
			"timestamp":   ev.Timestamp,
			"location":    ev.Location,
			"description": ev.Description,
		})
	}
	data := map[string]any{
		"trackingNumber": res.TrackingNumber,
		"carrier":        string(res.Carrier),
		"carrierName":    res.CarrierName,
		"status":         res.Status,
		"source":         string(res.Source),
		"events":         events,
	}
	if res.EstimatedDelivery != nil {
		data["estimatedDelivery"] = res.EstimatedDelivery.UTC().Format(timeLayout)
	}
	return data
}

const timeLayout = time.RFC3339

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.Nil, false
	}
	return id, true
}
