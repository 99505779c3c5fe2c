package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/miniapp-shop/internal/common"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

// Webhook handles payment provider callbacks. Signatures are HMAC-SHA256
// over the raw body, delivered in the X-Signature header as lowercase hex.
type Webhook struct {
	Secret    string
	Shipments *shipment.Service
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

type webhookPayload struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

// Handle processes POST /v1/payments/webhook.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" || h.Shipments == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	if !h.verifySignature(body, r.Header.Get("X-Signature")) {
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:payment:%s", common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", "replay guard unavailable", nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid payload", nil)
		return
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ORDER_ID", "invalid order identifier", nil)
		return
	}
	conf := shipment.Confirmation{
		Success:       normaliseStatus(payload.Status),
		TransactionID: payload.TransactionID,
	}
	o, err := h.Shipments.ApplyPaymentResult(r.Context(), orderID, conf)
	if err != nil {
		switch {
		case errors.Is(err, shipment.ErrOrderNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, shipment.ErrPaymentDeclined):
			// Declined is a processed result, not a transport failure.
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, shipment.ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to apply payment result", nil)
		}
		return
	}
	h.Logger.Info().
		Str("order_id", o.ID.String()).
		Str("status", string(o.Status)).
		Msg("payment webhook applied")
	w.WriteHeader(http.StatusNoContent)
}

func (h Webhook) verifySignature(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func normaliseStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SUCCESS", "SETTLED":
		return true
	default:
		return false
	}
}
