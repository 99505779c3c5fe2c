package shipment

import "errors"

var (
	// ErrOrderNotFound is returned when the order does not exist or does not
	// belong to the requesting user.
	ErrOrderNotFound = errors.New("shipment: order not found")
	// ErrTrackingNotAvailable is returned when the order has not shipped yet
	// or carries no tracking number.
	ErrTrackingNotAvailable = errors.New("shipment: tracking not available")
	// ErrInvalidTransition is returned when a lifecycle transition would
	// break the state machine.
	ErrInvalidTransition = errors.New("shipment: invalid status transition")
	// ErrPaymentDeclined is returned when the payment processor rejects the
	// confirmation; the order moves to PAYMENT_FAILED.
	ErrPaymentDeclined = errors.New("shipment: payment declined")
)
