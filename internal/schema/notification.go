package schema

import "time"

// NotificationType classifies customer-facing notifications.
type NotificationType string

const (
	// NotificationOrderStatus marks a fulfillment/payment status announcement.
	NotificationOrderStatus NotificationType = "order_status"
	// NotificationPayment marks a payment reminder or confirmation.
	NotificationPayment NotificationType = "payment"
	// NotificationGeneral marks free-form staff messages.
	NotificationGeneral NotificationType = "general"
)

// CustomerNotification is a message addressed to a single customer,
// usually produced when an order status transition succeeds.
type CustomerNotification struct {
	ID         string           `json:"id"`
	CustomerID string           `json:"customerId"`
	OrderID    string           `json:"orderId"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Read       bool             `json:"read"`
	SenderName string           `json:"senderName"`
}
