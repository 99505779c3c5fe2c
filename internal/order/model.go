package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the order lifecycle. The happy path is monotonic
// (PENDING_PAYMENT -> PAID -> SHIPPED -> DELIVERED); CANCELED and
// PAYMENT_FAILED are terminal side states.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCanceled       Status = "CANCELED"
	StatusPaymentFailed  Status = "PAYMENT_FAILED"
)

// Rank orders the happy-path statuses so monotonicity checks are cheap.
// Terminal side states rank negative.
func Rank(s Status) int {
	switch s {
	case StatusPendingPayment:
		return 0
	case StatusPaid:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusCanceled, StatusPaymentFailed:
		return -1
	default:
		return -2
	}
}

// Item is a purchased line item, snapshotted at checkout time.
type Item struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Qty       int32     `json:"qty"`
	UnitPrice int64     `json:"unitPrice"`
	Subtotal  int64     `json:"subtotal"`
}

// Address is the shipping address snapshot stored with the order.
type Address struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Province     string `json:"province"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	AddressLine  string `json:"addressLine"`
}

// Order is the commerce entity. The shipment state machine mutates only
// Status, TrackingNumber, EstimatedDelivery and PaymentID; the carrier is
// never persisted as authoritative: it is re-derived from the tracking
// number shape at query time.
type Order struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"userId"`
	Number            string     `json:"orderNumber"`
	Status            Status     `json:"status"`
	Currency          string     `json:"currency"`
	Subtotal          int64      `json:"subtotal"`
	ShippingFee       int64      `json:"shippingFee"`
	Total             int64      `json:"total"`
	Items             []Item     `json:"items"`
	ShippingAddress   Address    `json:"shippingAddress"`
	TrackingNumber    string     `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	PaymentID         string     `json:"paymentId"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ErrNotFound is returned by stores when no order matches.
var ErrNotFound = errors.New("order: not found")

// Store is the narrow, storage-agnostic persistence contract. Both backends
// implement only this interface; all business rules live in one place above
// it. Implementations must provide per-order read-modify-write atomicity
// (a guarded UPDATE or a mutex).
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (Order, error)
	FindOrderForUser(ctx context.Context, id, userID uuid.UUID) (Order, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, int64, error)
	ListOrdersByStatus(ctx context.Context, status Status, limit int32) ([]Order, error)
	SaveOrder(ctx context.Context, o *Order) error
}

// NewNumber generates a human-readable order number, unique for practical
// purposes and immutable after creation.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("MS-%s-%04d", now.UTC().Format("20060102-150405"), rand.Intn(10000))
}
