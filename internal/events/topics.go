package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated      = "order.created"
	TopicOrderPaid         = "order.paid"
	TopicOrderCanceled     = "order.canceled"
	TopicPaymentFailed     = "payment.failed"
	TopicShipmentShipped   = "shipment.shipped"
	TopicShipmentDelivered = "shipment.delivered"
)
