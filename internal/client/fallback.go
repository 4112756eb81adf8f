package client

import (
	"context"
	"time"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"go.uber.org/zap"
)

// FallbackReport describes what the fallback writer did after one operation.
type FallbackReport struct {
	BookingAttempted bool
	BookingWritten   bool
	BookingShadowed  bool
	BookingErr       error

	PaymentAttempted bool
	PaymentWritten   bool
	PaymentErr       error
}

// Wrote reports whether anything reached the store or the shadow copy.
func (r FallbackReport) Wrote() bool {
	return r.BookingWritten || r.BookingShadowed || r.PaymentWritten
}

// FallbackWriter writes, with the user's own store session, the records the server reported it
// did not write. It never returns errors: failures end up in the report and the log.
type FallbackWriter struct {
	store  *repository.RecordStore
	shadow ShadowStore
	logger *zap.Logger
	now    func() time.Time
}

// NewFallbackWriter creates a writer. store should be scoped to the signed-in user; shadow may
// be nil to disable local copies.
func NewFallbackWriter(store *repository.RecordStore, shadow ShadowStore, logger *zap.Logger) *FallbackWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackWriter{store: store, shadow: shadow, logger: logger, now: time.Now}
}

// AfterCreateOrder writes the pending booking and created payment the server skipped.
func (w *FallbackWriter) AfterCreateOrder(ctx context.Context, req application.CreateOrderRequest, res *application.CreateOrderResult) FallbackReport {
	if res == nil || res.ID == "" || req.Trip == nil || req.UserID == "" {
		return FallbackReport{}
	}
	at := w.now()

	var booking *checkout.Booking
	if !res.ServerCreatesBookings {
		b := checkout.NewBooking(res.ID, req.Trip, req.UserID, checkout.BookingPending, at)
		booking = &b
	}
	var payment *checkout.Payment
	if !res.ServerCreatesPayments {
		currency := res.Currency
		if currency == "" {
			currency = application.DefaultCurrency
		}
		p := checkout.NewCreatedPayment(res.ID, req.Trip, req.UserID, res.Amount, currency, at)
		payment = &p
	}
	return w.write(ctx, booking, payment)
}

// AfterVerify writes the paid records the server skipped. Nothing is written unless the server
// verified the signature and answered ok.
func (w *FallbackWriter) AfterVerify(ctx context.Context, req application.VerifyPaymentRequest, res *application.RecordResult) FallbackReport {
	if res == nil || !res.OK || req.Order == nil || req.Razorpay == nil || req.UserID == "" {
		return FallbackReport{}
	}
	at := w.now()
	orderID := req.Order.ID

	var booking *checkout.Booking
	if !res.Recorded {
		b := checkout.NewBooking(orderID, req.Trip, req.UserID, checkout.BookingPaid, at)
		booking = &b
	}
	var payment *checkout.Payment
	if !res.PaymentsRecorded {
		p := checkout.NewPaidPayment(orderID, req.Trip, req.UserID, req.Order.Amount, req.Order.Currency,
			req.Razorpay.PaymentID, req.Razorpay.Signature, at)
		payment = &p
	}
	return w.write(ctx, booking, payment)
}

// AfterFailure writes the failed records the server skipped. A nil res means the server could
// not be reached, so both records are attempted.
func (w *FallbackWriter) AfterFailure(ctx context.Context, req application.RecordFailureRequest, res *application.RecordResult) FallbackReport {
	if req.Order == nil || req.Order.ID == "" || req.UserID == "" {
		return FallbackReport{}
	}
	if res == nil {
		res = &application.RecordResult{}
	}
	at := w.now()
	orderID := req.Order.ID

	var booking *checkout.Booking
	if !res.Recorded {
		b := checkout.NewBooking(orderID, req.Trip, req.UserID, checkout.BookingFailed, at)
		booking = &b
	}
	var payment *checkout.Payment
	if !res.PaymentsRecorded {
		if w.alreadyPaid(ctx, orderID) {
			w.logger.Info("payment already paid, skipping failure fallback", zap.String("order_id", orderID))
			booking = nil
		} else {
			p := checkout.NewFailedPayment(orderID, req.Trip, req.UserID, req.Failure, at)
			payment = &p
		}
	}
	return w.write(ctx, booking, payment)
}

func (w *FallbackWriter) alreadyPaid(ctx context.Context, orderID string) bool {
	if w.store == nil {
		return false
	}
	p, err := w.store.FindPayment(ctx, orderID)
	return err == nil && p.Status == checkout.PaymentPaid
}

func (w *FallbackWriter) write(ctx context.Context, booking *checkout.Booking, payment *checkout.Payment) FallbackReport {
	var report FallbackReport

	if booking != nil {
		report.BookingAttempted = true
		res := w.writeBooking(ctx, *booking)
		report.BookingWritten = res.OK()
		if !res.OK() {
			report.BookingErr = res.Err
			w.logger.Warn("fallback booking write failed",
				zap.String("order_id", booking.ID), zap.String("outcome", string(res.Outcome)), zap.Error(res.Err))
			report.BookingShadowed = w.saveShadow(ctx, *booking)
		}
	}

	if payment != nil {
		report.PaymentAttempted = true
		res := w.writePayment(ctx, *payment)
		report.PaymentWritten = res.OK()
		if !res.OK() {
			report.PaymentErr = res.Err
			w.logger.Warn("fallback payment write failed",
				zap.String("order_id", payment.ID), zap.String("outcome", string(res.Outcome)), zap.Error(res.Err))
		}
	}
	return report
}

func (w *FallbackWriter) writeBooking(ctx context.Context, b checkout.Booking) repository.Result {
	if w.store == nil {
		return repository.Result{Outcome: repository.OutcomeNotConfigured, Err: repository.ErrStoreNotConfigured}
	}
	return w.store.CreateOrUpdateBooking(ctx, b)
}

func (w *FallbackWriter) writePayment(ctx context.Context, p checkout.Payment) repository.Result {
	if w.store == nil {
		return repository.Result{Outcome: repository.OutcomeNotConfigured, Err: repository.ErrStoreNotConfigured}
	}
	return w.store.CreateOrUpdatePayment(ctx, p)
}

func (w *FallbackWriter) saveShadow(ctx context.Context, b checkout.Booking) bool {
	if w.shadow == nil {
		return false
	}
	if err := w.shadow.Save(ctx, b); err != nil {
		w.logger.Warn("shadow booking save failed", zap.String("order_id", b.ID), zap.Error(err))
		return false
	}
	return true
}
