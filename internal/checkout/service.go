package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/miniapp-shop/internal/address"
	"github.com/noah-isme/miniapp-shop/internal/cart"
	"github.com/noah-isme/miniapp-shop/internal/events"
	"github.com/noah-isme/miniapp-shop/internal/order"
)

// ErrEmptyCart is returned when checking out an empty cart.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// ErrAddressRequired is returned when no shipping address was chosen.
var ErrAddressRequired = errors.New("checkout: shipping address is required")

// Service converts a cart into a PENDING_PAYMENT order with snapshotted
// items, address and shipping fee.
type Service struct {
	Carts     *cart.Service
	Addresses address.Store
	Orders    order.Store
	Events    *events.Bus
	Logger    zerolog.Logger

	Currency              string
	FlatShippingFee       int64
	FreeShippingThreshold int64
	Now                   func() time.Time
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ShippingFee applies the flat-fee rule with a free-shipping threshold.
func (s *Service) ShippingFee(subtotal int64) int64 {
	if s.FreeShippingThreshold > 0 && subtotal >= s.FreeShippingThreshold {
		return 0
	}
	return s.FlatShippingFee
}

// Checkout creates an order from the user's current cart and clears the cart.
func (s *Service) Checkout(ctx context.Context, userID, addressID uuid.UUID) (order.Order, error) {
	c, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Items) == 0 {
		return order.Order{}, ErrEmptyCart
	}
	if addressID == uuid.Nil {
		return order.Order{}, ErrAddressRequired
	}
	addr, err := s.Addresses.GetAddress(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return order.Order{}, ErrAddressRequired
		}
		return order.Order{}, fmt.Errorf("load address: %w", err)
	}

	items := make([]order.Item, 0, len(c.Items))
	var subtotal int64
	for _, it := range c.Items {
		line := int64(it.Qty) * it.UnitPrice
		subtotal += line
		items = append(items, order.Item{
			ProductID: it.ProductID,
			Title:     it.Title,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  line,
		})
	}
	fee := s.ShippingFee(subtotal)

	o := order.Order{
		UserID:      userID,
		Number:      order.NewNumber(s.clock()),
		Status:      order.StatusPendingPayment,
		Currency:    s.Currency,
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal + fee,
		Items:       items,
		ShippingAddress: order.Address{
			ReceiverName: addr.ReceiverName,
			Phone:        addr.Phone,
			Province:     addr.Province,
			City:         addr.City,
			PostalCode:   addr.PostalCode,
			AddressLine:  addr.AddressLine,
		},
	}
	if err := s.Orders.CreateOrder(ctx, &o); err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	if err := s.Carts.Clear(ctx, userID); err != nil {
		// The order exists; a stale cart is recoverable.
		s.Logger.Warn().Err(err).Str("user_id", userID.String()).Msg("clear cart after checkout")
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, o.ID, map[string]any{
			"orderId":     o.ID.String(),
			"orderNumber": o.Number,
			"total":       o.Total,
		}); err != nil {
			s.Logger.Error().Err(err).Msg("emit order created event")
		}
	}
	return o, nil
}
