package client

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	_ "github.com/mattn/go-sqlite3"
)

// ShadowStore keeps local copies of bookings the document store refused, so the user's own
// booking list still shows them. It is never a source of truth.
type ShadowStore interface {
	Save(ctx context.Context, b checkout.Booking) error
	ListByUser(ctx context.Context, userID string) ([]checkout.Booking, error)
}

// SQLiteShadowStore persists shadow bookings in a local SQLite file.
type SQLiteShadowStore struct {
	db *sql.DB
}

// NewSQLiteShadowStore opens (and creates if needed) the shadow database at path.
func NewSQLiteShadowStore(path string) (*SQLiteShadowStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	store := &SQLiteShadowStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteShadowStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS shadow_bookings (
			user_id    TEXT NOT NULL,
			id         TEXT NOT NULL,
			trip_id    TEXT NOT NULL DEFAULT '',
			trip_title TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			date       TEXT NOT NULL,
			saved_at   INTEGER NOT NULL,
			PRIMARY KEY (user_id, id)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate shadow store: %w", err)
	}
	return nil
}

// Save upserts b under its user and order id.
func (s *SQLiteShadowStore) Save(ctx context.Context, b checkout.Booking) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shadow_bookings (user_id, id, trip_id, trip_title, status, date, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			trip_id    = CASE WHEN excluded.trip_id = '' THEN trip_id ELSE excluded.trip_id END,
			trip_title = CASE WHEN excluded.trip_title = '' THEN trip_title ELSE excluded.trip_title END,
			status     = excluded.status,
			date       = excluded.date,
			saved_at   = excluded.saved_at
	`, b.UserID, b.ID, b.TripID, b.TripTitle, string(b.Status), b.Date, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save shadow booking %s: %w", b.ID, err)
	}
	return nil
}

// ListByUser returns the user's shadow bookings, most recently saved first.
func (s *SQLiteShadowStore) ListByUser(ctx context.Context, userID string) ([]checkout.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trip_id, trip_title, user_id, status, date
		FROM shadow_bookings
		WHERE user_id = ?
		ORDER BY saved_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shadow bookings: %w", err)
	}
	defer rows.Close()

	var out []checkout.Booking
	for rows.Next() {
		var b checkout.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.TripID, &b.TripTitle, &b.UserID, &status, &b.Date); err != nil {
			return nil, err
		}
		b.Status = checkout.BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteShadowStore) Close() error {
	return s.db.Close()
}
