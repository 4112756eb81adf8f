package checkout

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout matches the ISO-8601 form the storefront writes (millisecond precision, UTC "Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Booking records a user's reservation of a trip. Its ID is the gateway order id.
type Booking struct {
	ID        string        `json:"id"`
	TripID    string        `json:"tripId,omitempty"`
	TripTitle string        `json:"tripTitle,omitempty"`
	UserID    string        `json:"userId"`
	Status    BookingStatus `json:"status"`
	Date      string        `json:"date"`
}

// NewBooking builds a booking keyed by orderID. A nil trip leaves the trip fields unset so an
// update does not overwrite what an earlier write stored.
func NewBooking(orderID string, trip *TripRef, userID string, status BookingStatus, at time.Time) Booking {
	b := Booking{
		ID:     orderID,
		UserID: userID,
		Status: status,
		Date:   Timestamp(at),
	}
	if trip != nil {
		b.TripID = trip.ID
		b.TripTitle = trip.DisplayTitle()
	}
	return b
}

// Fields returns the document attributes written for this booking.
func (b Booking) Fields() map[string]any {
	f := map[string]any{
		"userId": b.UserID,
		"status": string(b.Status),
		"date":   b.Date,
	}
	if b.TripID != "" {
		f["tripId"] = b.TripID
	}
	if b.TripTitle != "" {
		f["tripTitle"] = b.TripTitle
	}
	return f
}

// DecodeBooking rebuilds a booking from stored attributes.
func DecodeBooking(id string, data map[string]any) (Booking, error) {
	var b Booking
	if err := remarshal(data, &b); err != nil {
		return Booking{}, fmt.Errorf("decode booking %s: %w", id, err)
	}
	b.ID = id
	return b, nil
}

func remarshal(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
