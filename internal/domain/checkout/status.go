package checkout

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingPending BookingStatus = "pending"
	BookingCreated BookingStatus = "created"
	BookingPaid    BookingStatus = "paid"
	BookingFailed  BookingStatus = "failed"
)

// IsTerminal reports whether no operation moves the booking out of s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingPaid || s == BookingFailed
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingCreated, BookingPaid, BookingFailed:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no operation moves the payment out of s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentCreated, PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}
