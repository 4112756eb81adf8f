package events

import (
	"encoding/json"
	"time"
)

// Source is the CloudEvents source attribute for everything this service publishes.
const Source = "service-checkout"

// Checkout event types.
const (
	OrderCreated  = "checkout.order.created"
	PaymentPaid   = "checkout.payment.paid"
	PaymentFailed = "checkout.payment.failed"
)

// OrderCreatedEvent is published after the gateway accepted an order.
type OrderCreatedEvent struct {
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id,omitempty"`
	TripID          string    `json:"trip_id,omitempty"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Receipt         string    `json:"receipt,omitempty"`
	BookingRecorded bool      `json:"booking_recorded"`
	PaymentRecorded bool      `json:"payment_recorded"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// PaymentPaidEvent is published once per order after a verified confirmation.
type PaymentPaidEvent struct {
	OrderID         string    `json:"order_id"`
	PaymentID       string    `json:"payment_id"`
	UserID          string    `json:"user_id,omitempty"`
	TripID          string    `json:"trip_id,omitempty"`
	Amount          *int64    `json:"amount,omitempty"`
	Currency        string    `json:"currency,omitempty"`
	BookingRecorded bool      `json:"booking_recorded"`
	PaymentRecorded bool      `json:"payment_recorded"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// PaymentFailedEvent is published when checkout reports a failed payment.
type PaymentFailedEvent struct {
	OrderID         string          `json:"order_id"`
	UserID          string          `json:"user_id"`
	TripID          string          `json:"trip_id,omitempty"`
	Failure         json.RawMessage `json:"failure,omitempty"`
	BookingRecorded bool            `json:"booking_recorded"`
	PaymentRecorded bool            `json:"payment_recorded"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
