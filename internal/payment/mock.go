package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/order"
	"github.com/noah-isme/miniapp-shop/internal/shipment"
)

// Mock is an in-process payment processor used in development and tests.
// It approves every order unless Decline is set.
type Mock struct {
	Decline bool
}

// Confirm implements shipment.Processor.
func (m *Mock) Confirm(_ context.Context, o order.Order) (shipment.Confirmation, error) {
	if m.Decline {
		return shipment.Confirmation{Success: false}, nil
	}
	return shipment.Confirmation{
		Success:       true,
		TransactionID: fmt.Sprintf("MOCK-%s", uuid.NewString()),
	}, nil
}
