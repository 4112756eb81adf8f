package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

// scriptedDocuments returns queued errors from Update and Create before delegating to memory.
type scriptedDocuments struct {
	*MemoryDocuments
	updateErrs []error
	createErrs []error
	updates    int
	creates    int
}

func (s *scriptedDocuments) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	s.updates++
	if len(s.updateErrs) > 0 {
		err := s.updateErrs[0]
		s.updateErrs = s.updateErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.MemoryDocuments.Update(ctx, collection, id, data)
}

func (s *scriptedDocuments) Create(ctx context.Context, collection, id string, data map[string]any, permissions []string) (*Document, error) {
	s.creates++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.MemoryDocuments.Create(ctx, collection, id, data, permissions)
}

func newStore(docs Documents) *RecordStore {
	return NewRecordStore(docs, "bookings", "payments", nil)
}

func TestCreateOrUpdate_CreatesWithOwnerPermissions(t *testing.T) {
	mem := NewMemoryDocuments()
	store := newStore(mem)

	res := store.CreateOrUpdate(context.Background(), KindBooking, "order_abc", map[string]any{"status": "pending"}, "u1")

	require.True(t, res.OK())
	doc, err := mem.Get(context.Background(), "bookings", "order_abc")
	require.NoError(t, err)
	assert.Equal(t, []string{`read("user:u1")`, `update("user:u1")`}, doc.Permissions)
	assert.Equal(t, "pending", doc.Data["status"])
}

func TestCreateOrUpdate_UpdateKeepsOmittedFields(t *testing.T) {
	mem := NewMemoryDocuments()
	store := newStore(mem)
	ctx := context.Background()

	pending := checkout.NewBooking("order_abc", &checkout.TripRef{ID: "t1", Title: "Goa"}, "u1", checkout.BookingPending, at)
	require.True(t, store.CreateOrUpdateBooking(ctx, pending).OK())

	paid := checkout.NewBooking("order_abc", nil, "u1", checkout.BookingPaid, at.Add(time.Minute))
	res := store.CreateOrUpdateBooking(ctx, paid)
	require.True(t, res.OK())

	got, err := store.FindBooking(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, checkout.BookingPaid, got.Status)
	assert.Equal(t, "t1", got.TripID)
	assert.Equal(t, "Goa", got.TripTitle)
	assert.Equal(t, 1, mem.Count("bookings"))
}

func TestCreateOrUpdate_ConcurrentCreatorWins(t *testing.T) {
	mem := NewMemoryDocuments()
	_, err := mem.Create(context.Background(), "payments", "order_abc", map[string]any{"status": "created"}, nil)
	require.NoError(t, err)

	docs := &scriptedDocuments{
		MemoryDocuments: mem,
		updateErrs:      []error{ErrDocumentNotFound},
	}
	res := newStore(docs).CreateOrUpdate(context.Background(), KindPayment, "order_abc", map[string]any{"status": "paid"}, "u1")

	require.True(t, res.OK())
	assert.Equal(t, 2, docs.updates)
	assert.Equal(t, 1, docs.creates)
	assert.Equal(t, "paid", res.Document.Data["status"])
}

func TestCreateOrUpdate_ConflictWhenRetryMisses(t *testing.T) {
	docs := &scriptedDocuments{
		MemoryDocuments: NewMemoryDocuments(),
		updateErrs:      []error{ErrDocumentNotFound, ErrDocumentNotFound},
		createErrs:      []error{ErrDocumentExists},
	}
	res := newStore(docs).CreateOrUpdate(context.Background(), KindBooking, "order_abc", map[string]any{}, "u1")

	assert.Equal(t, OutcomeConflict, res.Outcome)
	assert.False(t, res.OK())
}

func TestCreateOrUpdate_BackendFailures(t *testing.T) {
	boom := errors.New("connection reset")

	updateFails := &scriptedDocuments{MemoryDocuments: NewMemoryDocuments(), updateErrs: []error{boom}}
	res := newStore(updateFails).CreateOrUpdate(context.Background(), KindBooking, "order_abc", map[string]any{}, "u1")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 0, updateFails.creates, "create is only tried after not-found")

	createFails := &scriptedDocuments{MemoryDocuments: NewMemoryDocuments(), createErrs: []error{boom}}
	res = newStore(createFails).CreateOrUpdate(context.Background(), KindBooking, "order_abc", map[string]any{}, "u1")
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestCreateOrUpdate_NotConfigured(t *testing.T) {
	res := NewRecordStore(nil, "bookings", "payments", nil).CreateOrUpdate(context.Background(), KindBooking, "order_abc", nil, "u1")
	assert.Equal(t, OutcomeNotConfigured, res.Outcome)

	noPayments := NewRecordStore(NewMemoryDocuments(), "bookings", "", nil)
	assert.True(t, noPayments.Configured(KindBooking))
	assert.False(t, noPayments.Configured(KindPayment))
	assert.Equal(t, OutcomeNotConfigured, noPayments.CreateOrUpdate(context.Background(), KindPayment, "order_abc", nil, "u1").Outcome)
}

func TestCreateOrUpdatePayment_RejectsInvariantViolation(t *testing.T) {
	mem := NewMemoryDocuments()
	p := checkout.NewCreatedPayment("order_abc", nil, "u1", 100, "INR", at)
	sig := "sig"
	p.Signature = &sig

	res := newStore(mem).CreateOrUpdatePayment(context.Background(), p)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, checkout.ErrPaymentInvariant)
	assert.Equal(t, 0, mem.Count("payments"))
}

func TestPaymentLifecycle_FailureClearedOnPaid(t *testing.T) {
	store := newStore(NewMemoryDocuments())
	ctx := context.Background()
	amount := int64(100000)

	failed := checkout.NewFailedPayment("order_abc", nil, "u1", json.RawMessage(`{"code":"BAD_REQUEST_ERROR"}`), at)
	require.True(t, store.CreateOrUpdatePayment(ctx, failed).OK())

	paid := checkout.NewPaidPayment("order_abc", nil, "u1", &amount, "INR", "pay_1", "sig", at)
	require.True(t, store.CreateOrUpdatePayment(ctx, paid).OK())

	got, err := store.FindPayment(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentPaid, got.Status)
	assert.Nil(t, got.Failure)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pay_1", *got.PaymentID)
	assert.NoError(t, got.Validate())
}

func TestFind_MapsErrors(t *testing.T) {
	_, err := newStore(NewMemoryDocuments()).FindBooking(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = NewRecordStore(nil, "", "", nil).FindPayment(context.Background(), "order_abc")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestListBookingsByUser(t *testing.T) {
	mem := NewMemoryDocuments()
	clock := at
	mem.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	store := newStore(mem)
	ctx := context.Background()

	require.True(t, store.CreateOrUpdateBooking(ctx, checkout.NewBooking("order_1", nil, "u1", checkout.BookingPending, at)).OK())
	require.True(t, store.CreateOrUpdateBooking(ctx, checkout.NewBooking("order_2", nil, "u2", checkout.BookingPending, at)).OK())
	require.True(t, store.CreateOrUpdateBooking(ctx, checkout.NewBooking("order_3", nil, "u1", checkout.BookingPaid, at)).OK())

	got, err := store.ListBookingsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "order_3", got[0].ID)
	assert.Equal(t, "order_1", got[1].ID)
}
