package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/platform/apperror"
	"go.uber.org/zap"
)

// Kind selects the collection a record belongs to.
type Kind string

const (
	KindBooking Kind = "booking"
	KindPayment Kind = "payment"
)

// Outcome classifies a CreateOrUpdate attempt.
type Outcome string

const (
	OutcomeRecorded      Outcome = "recorded"
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeConflict      Outcome = "conflict"
	OutcomeFailed        Outcome = "failed"
)

// ErrStoreNotConfigured is reported when no backend or collection is set for a kind.
var ErrStoreNotConfigured = errors.New("record store not configured")

// Result is what CreateOrUpdate returns. Only OutcomeRecorded carries a Document.
type Result struct {
	Outcome  Outcome
	Document *Document
	Err      error
}

// OK reports whether the record was written.
func (r Result) OK() bool {
	return r.Outcome == OutcomeRecorded
}

// RecordStore writes bookings and payments to a Documents backend with create-or-update semantics.
type RecordStore struct {
	docs        Documents
	collections map[Kind]string
	logger      *zap.Logger
}

// NewRecordStore creates a RecordStore. docs may be nil, in which case every write reports
// OutcomeNotConfigured.
func NewRecordStore(docs Documents, bookingsCollection, paymentsCollection string, logger *zap.Logger) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{
		docs: docs,
		collections: map[Kind]string{
			KindBooking: bookingsCollection,
			KindPayment: paymentsCollection,
		},
		logger: logger,
	}
}

// Configured reports whether writes of kind can reach a backend.
func (s *RecordStore) Configured(kind Kind) bool {
	return s.docs != nil && s.collections[kind] != ""
}

// CreateOrUpdate updates the record, creating it with owner permissions when it does not exist.
// A create that loses to a concurrent creator is retried as an update once.
func (s *RecordStore) CreateOrUpdate(ctx context.Context, kind Kind, id string, fields map[string]any, ownerUserID string) Result {
	if !s.Configured(kind) {
		return Result{Outcome: OutcomeNotConfigured, Err: ErrStoreNotConfigured}
	}
	collection := s.collections[kind]
	log := s.logger.With(zap.String("kind", string(kind)), zap.String("id", id))

	doc, err := s.docs.Update(ctx, collection, id, fields)
	if err == nil {
		return Result{Outcome: OutcomeRecorded, Document: doc}
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		log.Warn("record update failed", zap.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	doc, err = s.docs.Create(ctx, collection, id, fields, OwnerPermissions(ownerUserID))
	if err == nil {
		return Result{Outcome: OutcomeRecorded, Document: doc}
	}
	if !errors.Is(err, ErrDocumentExists) {
		log.Warn("record create failed", zap.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	doc, err = s.docs.Update(ctx, collection, id, fields)
	if err == nil {
		return Result{Outcome: OutcomeRecorded, Document: doc}
	}
	if errors.Is(err, ErrDocumentNotFound) {
		log.Warn("record vanished between create and update")
		return Result{Outcome: OutcomeConflict, Err: err}
	}
	log.Warn("record retry update failed", zap.Error(err))
	return Result{Outcome: OutcomeFailed, Err: err}
}

// CreateOrUpdateBooking writes b under its order id.
func (s *RecordStore) CreateOrUpdateBooking(ctx context.Context, b checkout.Booking) Result {
	return s.CreateOrUpdate(ctx, KindBooking, b.ID, b.Fields(), b.UserID)
}

// CreateOrUpdatePayment writes p under its order id after checking its invariant.
func (s *RecordStore) CreateOrUpdatePayment(ctx context.Context, p checkout.Payment) Result {
	if err := p.Validate(); err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return s.CreateOrUpdate(ctx, KindPayment, p.ID, p.Fields(), p.UserID)
}

// FindBooking retrieves a booking by order id.
func (s *RecordStore) FindBooking(ctx context.Context, id string) (*checkout.Booking, error) {
	doc, err := s.get(ctx, KindBooking, "Booking", id)
	if err != nil {
		return nil, err
	}
	b, err := checkout.DecodeBooking(doc.ID, doc.Data)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindPayment retrieves a payment by order id.
func (s *RecordStore) FindPayment(ctx context.Context, id string) (*checkout.Payment, error) {
	doc, err := s.get(ctx, KindPayment, "Payment", id)
	if err != nil {
		return nil, err
	}
	p, err := checkout.DecodePayment(doc.ID, doc.Data)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBookingsByUser returns the user's bookings, newest first.
func (s *RecordStore) ListBookingsByUser(ctx context.Context, userID string) ([]checkout.Booking, error) {
	if !s.Configured(KindBooking) {
		return nil, apperror.NewUnavailableError(ErrStoreNotConfigured.Error())
	}
	docs, err := s.docs.ListByField(ctx, s.collections[KindBooking], "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}

	bookings := make([]checkout.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := checkout.DecodeBooking(doc.ID, doc.Data)
		if err != nil {
			s.logger.Warn("skipping undecodable booking", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (s *RecordStore) get(ctx context.Context, kind Kind, entity, id string) (*Document, error) {
	if !s.Configured(kind) {
		return nil, apperror.NewUnavailableError(ErrStoreNotConfigured.Error())
	}
	doc, err := s.docs.Get(ctx, s.collections[kind], id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, apperror.NewNotFoundError(entity, id)
		}
		return nil, err
	}
	return doc, nil
}
