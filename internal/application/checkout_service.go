package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Darshan-360/service-checkout/internal/adapter"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/events"
	"github.com/Darshan-360/service-checkout/internal/platform/apperror"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/Darshan-360/service-checkout/internal/signature"
	"go.uber.org/zap"
)

// Client error messages. They are part of the wire contract.
const (
	MsgAmountRequired   = "amount required"
	MsgInvalidPayload   = "invalid payload"
	MsgInvalidSignature = "invalid signature"
)

// CreateOrderRequest is the DTO for create-order.
type CreateOrderRequest struct {
	Amount   *int64            `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Receipt  string            `json:"receipt,omitempty"`
	Trip     *checkout.TripRef `json:"trip,omitempty"`
	UserID   string            `json:"userId,omitempty"`
}

// CreateOrderResult is the gateway order plus which records the server wrote.
type CreateOrderResult struct {
	adapter.Order
	ServerCreatesBookings bool `json:"serverCreatesBookings"`
	ServerCreatesPayments bool `json:"serverCreatesPayments"`
}

// OrderRef is the order handle echoed back by the client.
type OrderRef struct {
	ID       string `json:"id"`
	Amount   *int64 `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// GatewayConfirmation is what the hosted checkout hands the client on success.
type GatewayConfirmation struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id,omitempty"`
	Signature string `json:"razorpay_signature"`
}

// VerifyPaymentRequest is the DTO for verify-payment.
type VerifyPaymentRequest struct {
	Order    *OrderRef            `json:"order"`
	Razorpay *GatewayConfirmation `json:"razorpay"`
	Trip     *checkout.TripRef    `json:"trip,omitempty"`
	UserID   string               `json:"userId,omitempty"`
}

// RecordFailureRequest is the DTO for record-payment-failure.
type RecordFailureRequest struct {
	Order   *OrderRef         `json:"order"`
	Trip    *checkout.TripRef `json:"trip"`
	UserID  string            `json:"userId"`
	Failure json.RawMessage   `json:"failure,omitempty"`
}

// RecordResult reports which records verify-payment or record-payment-failure wrote.
type RecordResult struct {
	OK               bool   `json:"ok"`
	BookingID        string `json:"bookingId"`
	Recorded         bool   `json:"recorded"`
	PaymentID        string `json:"paymentId"`
	PaymentsRecorded bool   `json:"paymentsRecorded"`
}

// CheckoutService reconciles gateway orders with the booking and payment records.
// Store failures are reported through the result flags, never as errors.
type CheckoutService struct {
	orders    *OrderService
	store     *repository.RecordStore
	verifier  *signature.Verifier
	publisher events.Publisher
	once      events.OnceGuard
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService. A nil publisher drops events and a nil
// guard falls back to an in-process one.
func NewCheckoutService(
	orders *OrderService,
	store *repository.RecordStore,
	verifier *signature.Verifier,
	publisher events.Publisher,
	once events.OnceGuard,
	logger *zap.Logger,
) *CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if once == nil {
		once = events.NewMemoryOnceGuard()
	}
	return &CheckoutService{
		orders:    orders,
		store:     store,
		verifier:  verifier,
		publisher: publisher,
		once:      once,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder creates a gateway order and, when the trip and user are known, writes the pending
// booking and created payment under the order id.
func (s *CheckoutService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.Amount == nil || *req.Amount == 0 {
		return nil, apperror.NewValidationError(MsgAmountRequired)
	}
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	order, err := s.orders.CreateOrder(ctx, *req.Amount, currency, req.Receipt)
	if err != nil {
		return nil, err
	}

	result := &CreateOrderResult{Order: *order}
	if req.Trip != nil && req.UserID != "" {
		at := s.now()
		booking := s.store.CreateOrUpdateBooking(ctx,
			checkout.NewBooking(order.ID, req.Trip, req.UserID, checkout.BookingPending, at))
		payment := s.store.CreateOrUpdatePayment(ctx,
			checkout.NewCreatedPayment(order.ID, req.Trip, req.UserID, *req.Amount, currency, at))
		result.ServerCreatesBookings = booking.OK()
		result.ServerCreatesPayments = payment.OK()
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.Bool("booking_recorded", result.ServerCreatesBookings),
		zap.Bool("payment_recorded", result.ServerCreatesPayments),
	)

	_ = s.publish(ctx, events.OrderCreated, order.ID, events.OrderCreatedEvent{
		OrderID:         order.ID,
		UserID:          req.UserID,
		TripID:          tripID(req.Trip),
		Amount:          *req.Amount,
		Currency:        currency,
		Receipt:         req.Receipt,
		BookingRecorded: result.ServerCreatesBookings,
		PaymentRecorded: result.ServerCreatesPayments,
		OccurredAt:      s.now(),
	})
	return result, nil
}

// VerifyPayment checks the gateway signature and marks the booking and payment paid. Nothing is
// written when the signature does not match.
func (s *CheckoutService) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*RecordResult, error) {
	if req.Order == nil || req.Order.ID == "" || req.Razorpay == nil ||
		req.Razorpay.PaymentID == "" || req.Razorpay.Signature == "" {
		return nil, apperror.NewValidationError(MsgInvalidPayload)
	}
	orderID := req.Order.ID
	confirmation := req.Razorpay

	if !s.verifier.Verify(orderID, confirmation.PaymentID, confirmation.Signature) {
		s.logger.Warn("rejected payment confirmation with bad signature",
			zap.String("order_id", orderID),
			zap.String("payment_id", confirmation.PaymentID),
		)
		return nil, apperror.NewValidationError(MsgInvalidSignature)
	}

	result := &RecordResult{OK: true, BookingID: orderID, PaymentID: orderID}
	if req.UserID != "" {
		at := s.now()
		booking := s.store.CreateOrUpdateBooking(ctx,
			checkout.NewBooking(orderID, req.Trip, req.UserID, checkout.BookingPaid, at))
		payment := s.store.CreateOrUpdatePayment(ctx,
			checkout.NewPaidPayment(orderID, req.Trip, req.UserID, req.Order.Amount, req.Order.Currency,
				confirmation.PaymentID, confirmation.Signature, at))
		applyOutcome(result, booking, payment)
	} else {
		s.logger.Warn("verified payment without user, skipping server records", zap.String("order_id", orderID))
	}

	s.logger.Info("payment verified",
		zap.String("order_id", orderID),
		zap.String("payment_id", confirmation.PaymentID),
		zap.Bool("booking_recorded", result.Recorded),
		zap.Bool("payment_recorded", result.PaymentsRecorded),
	)

	first, err := s.once.First(ctx, "paid:"+orderID)
	if err != nil {
		s.logger.Warn("once guard unavailable, publishing paid event anyway",
			zap.String("order_id", orderID), zap.Error(err))
		first = true
	}
	if first {
		err := s.publish(ctx, events.PaymentPaid, orderID, events.PaymentPaidEvent{
			OrderID:         orderID,
			PaymentID:       confirmation.PaymentID,
			UserID:          req.UserID,
			TripID:          tripID(req.Trip),
			Amount:          req.Order.Amount,
			Currency:        req.Order.Currency,
			BookingRecorded: result.Recorded,
			PaymentRecorded: result.PaymentsRecorded,
			OccurredAt:      s.now(),
		})
		if err != nil {
			// Let the next verification of this order publish again.
			if rerr := s.once.Release(ctx, "paid:"+orderID); rerr != nil {
				s.logger.Warn("failed to release paid event claim",
					zap.String("order_id", orderID), zap.Error(rerr))
			}
		}
	} else {
		s.logger.Info("duplicate verification, paid event already published", zap.String("order_id", orderID))
	}
	return result, nil
}

// RecordPaymentFailure marks the booking and payment failed. A payment that is already paid is
// left as is.
func (s *CheckoutService) RecordPaymentFailure(ctx context.Context, req RecordFailureRequest) (*RecordResult, error) {
	if req.Order == nil || req.Order.ID == "" || req.Trip == nil || req.UserID == "" {
		return nil, apperror.NewValidationError(MsgInvalidPayload)
	}
	orderID := req.Order.ID

	if existing, err := s.store.FindPayment(ctx, orderID); err == nil && existing.Status == checkout.PaymentPaid {
		s.logger.Warn("ignoring failure reported after payment was verified",
			zap.String("order_id", orderID),
			zap.ByteString("failure", req.Failure),
		)
		return &RecordResult{OK: true, BookingID: orderID, Recorded: true, PaymentID: orderID, PaymentsRecorded: true}, nil
	}

	at := s.now()
	booking := s.store.CreateOrUpdateBooking(ctx,
		checkout.NewBooking(orderID, req.Trip, req.UserID, checkout.BookingFailed, at))
	failed := checkout.NewFailedPayment(orderID, req.Trip, req.UserID, req.Failure, at)
	payment := s.store.CreateOrUpdatePayment(ctx, failed)

	result := &RecordResult{OK: true, BookingID: orderID, PaymentID: orderID}
	applyOutcome(result, booking, payment)

	s.logger.Info("payment failure recorded",
		zap.String("order_id", orderID),
		zap.Bool("booking_recorded", result.Recorded),
		zap.Bool("payment_recorded", result.PaymentsRecorded),
	)

	_ = s.publish(ctx, events.PaymentFailed, orderID, events.PaymentFailedEvent{
		OrderID:         orderID,
		UserID:          req.UserID,
		TripID:          tripID(req.Trip),
		Failure:         failed.Failure,
		BookingRecorded: result.Recorded,
		PaymentRecorded: result.PaymentsRecorded,
		OccurredAt:      s.now(),
	})
	return result, nil
}

// GetBooking retrieves a booking by order id.
func (s *CheckoutService) GetBooking(ctx context.Context, orderID string) (*checkout.Booking, error) {
	return s.store.FindBooking(ctx, orderID)
}

// GetPayment retrieves a payment by order id.
func (s *CheckoutService) GetPayment(ctx context.Context, orderID string) (*checkout.Payment, error) {
	return s.store.FindPayment(ctx, orderID)
}

// ListUserBookings returns a user's bookings, newest first.
func (s *CheckoutService) ListUserBookings(ctx context.Context, userID string) ([]checkout.Booking, error) {
	if userID == "" {
		return nil, apperror.NewValidationError("userId required")
	}
	return s.store.ListBookingsByUser(ctx, userID)
}

// publish logs and returns a publisher error. Callers never fail the request on it.
func (s *CheckoutService) publish(ctx context.Context, eventType, orderID string, data any) error {
	err := s.publisher.Publish(ctx, eventType, orderID, data)
	if err != nil {
		s.logger.Error("failed to publish checkout event",
			zap.String("type", eventType),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	return err
}

func applyOutcome(result *RecordResult, booking, payment repository.Result) {
	result.Recorded = booking.OK()
	result.PaymentsRecorded = payment.OK()
	if booking.OK() && booking.Document.ID != "" {
		result.BookingID = booking.Document.ID
	}
	if payment.OK() && payment.Document.ID != "" {
		result.PaymentID = payment.Document.ID
	}
}

func tripID(trip *checkout.TripRef) string {
	if trip == nil {
		return ""
	}
	return trip.ID
}
