package client

import (
	"context"

	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"go.uber.org/zap"
)

// BookingLister shows a user's bookings from the store merged with their shadow copies.
type BookingLister struct {
	store  *repository.RecordStore
	shadow ShadowStore
	logger *zap.Logger
}

func NewBookingLister(store *repository.RecordStore, shadow ShadowStore, logger *zap.Logger) *BookingLister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingLister{store: store, shadow: shadow, logger: logger}
}

// ListBookings returns stored bookings first, then shadow bookings whose id the store does not
// have. A store error is logged and the shadow copies are still returned.
func (l *BookingLister) ListBookings(ctx context.Context, userID string) []checkout.Booking {
	var remote []checkout.Booking
	if l.store != nil {
		var err error
		remote, err = l.store.ListBookingsByUser(ctx, userID)
		if err != nil {
			l.logger.Warn("listing stored bookings failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	var local []checkout.Booking
	if l.shadow != nil {
		var err error
		local, err = l.shadow.ListByUser(ctx, userID)
		if err != nil {
			l.logger.Warn("listing shadow bookings failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return mergeBookings(remote, local)
}

func mergeBookings(remote, local []checkout.Booking) []checkout.Booking {
	seen := make(map[string]struct{}, len(remote))
	out := make([]checkout.Booking, 0, len(remote)+len(local))
	for _, b := range remote {
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	for _, b := range local {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out
}
