package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Payment records the financial outcome for a booking. Its ID is the gateway order id.
type Payment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	PaymentID *string         `json:"paymentId"`
	TripID    string          `json:"tripId,omitempty"`
	TripTitle string          `json:"tripTitle,omitempty"`
	UserID    string          `json:"userId"`
	Status    PaymentStatus   `json:"status"`
	Amount    *int64          `json:"amount,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	Date      string          `json:"date"`
	Signature *string         `json:"signature"`
	Failure   json.RawMessage `json:"failure"`
}

// ErrPaymentInvariant is wrapped by Validate.
var ErrPaymentInvariant = errors.New("payment invariant violated")

func newPayment(orderID string, trip *TripRef, userID string, status PaymentStatus, at time.Time) Payment {
	p := Payment{
		ID:      orderID,
		OrderID: orderID,
		UserID:  userID,
		Status:  status,
		Date:    Timestamp(at),
	}
	if trip != nil {
		p.TripID = trip.ID
		p.TripTitle = trip.DisplayTitle()
	}
	return p
}

// NewCreatedPayment is the record written when the gateway order is created.
func NewCreatedPayment(orderID string, trip *TripRef, userID string, amount int64, currency string, at time.Time) Payment {
	p := newPayment(orderID, trip, userID, PaymentCreated, at)
	p.Amount = &amount
	p.Currency = currency
	return p
}

// NewPaidPayment is the record written after a verified gateway confirmation.
// amount may be nil when the caller did not echo it back.
func NewPaidPayment(orderID string, trip *TripRef, userID string, amount *int64, currency, paymentID, signature string, at time.Time) Payment {
	p := newPayment(orderID, trip, userID, PaymentPaid, at)
	p.Amount = amount
	p.Currency = currency
	p.PaymentID = &paymentID
	p.Signature = &signature
	return p
}

// NewFailedPayment is the record written when checkout reports a failure.
func NewFailedPayment(orderID string, trip *TripRef, userID string, failure json.RawMessage, at time.Time) Payment {
	p := newPayment(orderID, trip, userID, PaymentFailed, at)
	if len(failure) > 0 && !bytes.Equal(bytes.TrimSpace(failure), []byte("null")) {
		p.Failure = failure
	}
	return p
}

// Validate checks that paymentId/signature appear only when paid and failure only when failed.
func (p Payment) Validate() error {
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrPaymentInvariant, p.Status)
	}
	paid := p.Status == PaymentPaid
	if paid && (p.PaymentID == nil || p.Signature == nil) {
		return fmt.Errorf("%w: paid payment needs paymentId and signature", ErrPaymentInvariant)
	}
	if !paid && (p.PaymentID != nil || p.Signature != nil) {
		return fmt.Errorf("%w: paymentId and signature are only set when paid", ErrPaymentInvariant)
	}
	if p.Status != PaymentFailed && len(p.Failure) > 0 {
		return fmt.Errorf("%w: failure is only set when failed", ErrPaymentInvariant)
	}
	return nil
}

// Fields returns the document attributes written for this payment. paymentId, signature and
// failure are always present (null unless owned by the status); amount, currency and trip
// fields are omitted when unknown so an update keeps the stored values.
// failure is stored as JSON text so string-typed document attributes can hold it.
func (p Payment) Fields() map[string]any {
	f := map[string]any{
		"orderId":   p.OrderID,
		"paymentId": nil,
		"userId":    p.UserID,
		"status":    string(p.Status),
		"date":      p.Date,
		"signature": nil,
		"failure":   nil,
	}
	if p.PaymentID != nil {
		f["paymentId"] = *p.PaymentID
	}
	if p.Signature != nil {
		f["signature"] = *p.Signature
	}
	if len(p.Failure) > 0 {
		f["failure"] = string(p.Failure)
	}
	if p.Amount != nil {
		f["amount"] = *p.Amount
	}
	if p.Currency != "" {
		f["currency"] = p.Currency
	}
	if p.TripID != "" {
		f["tripId"] = p.TripID
	}
	if p.TripTitle != "" {
		f["tripTitle"] = p.TripTitle
	}
	return f
}

// DecodePayment rebuilds a payment from stored attributes. failure may be stored as JSON
// text or as a nested object; both decode to the same raw JSON.
func DecodePayment(id string, data map[string]any) (Payment, error) {
	var p Payment
	if err := remarshal(data, &p); err != nil {
		return Payment{}, fmt.Errorf("decode payment %s: %w", id, err)
	}
	p.ID = id

	if len(p.Failure) > 0 && p.Failure[0] == '"' {
		var text string
		if err := json.Unmarshal(p.Failure, &text); err != nil {
			return Payment{}, fmt.Errorf("decode payment %s failure: %w", id, err)
		}
		p.Failure = json.RawMessage(text)
	}
	if bytes.Equal(p.Failure, []byte("null")) {
		p.Failure = nil
	}
	return p, nil
}
