package checkout

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/common"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

type checkoutRequest struct {
	AddressID string `json:"addressId"`
}

// Checkout handles POST /v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	var req checkoutRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid address id", nil)
		return
	}
	o, err := h.Svc.Checkout(r.Context(), userID, addressID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
		case errors.Is(err, ErrAddressRequired):
			common.JSONError(w, http.StatusBadRequest, "ADDRESS_REQUIRED", "a valid shipping address is required", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}
