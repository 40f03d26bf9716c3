// Package bookings keeps the durable log of confirmed booking requests and
// serves the aggregate views the admin dashboard reads. The log is append
// mostly: the dialogue engine inserts one row per confirmed request and the
// stats endpoint aggregates over them.
package bookings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
)

var bookingsTracer = otel.Tracer("vitrine.internal.bookings")

// Record is one logged booking request as stored in Postgres.
type Record struct {
	ID           string    `json:"id"`
	BusinessSlug string    `json:"business_slug"`
	BusinessName string    `json:"business_name"`
	ContactEmail string    `json:"contact_email"`
	Service      string    `json:"service"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// DayCount is the number of bookings logged on one calendar day (UTC).
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// ServiceCount is the number of bookings requesting one service.
type ServiceCount struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

// Store persists booking records in Postgres via database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a booking store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("bookings: db cannot be nil")
	}
	return &Store{db: db, now: time.Now}
}

// Insert logs a confirmed booking and returns the generated row id.
func (s *Store) Insert(ctx context.Context, booking chat.Booking) (string, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.insert")
	defer span.End()
	span.SetAttributes(attribute.String("vitrine.business_slug", booking.BusinessSlug))

	id := uuid.NewString()
	createdAt := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, business_slug, business_name, contact_email, service, booking_date, booking_time, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, booking.BusinessSlug, booking.BusinessName, booking.ContactEmail,
		booking.Service, booking.Date, booking.Time, booking.SessionID, createdAt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("bookings: insert booking: %w", err)
	}
	return id, nil
}

// CountByDay returns per-day booking counts for a business inside [start, end).
// Days without bookings are absent from the result; callers zero-fill.
func (s *Store) CountByDay(ctx context.Context, slug string, start, end time.Time) ([]DayCount, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.count_by_day")
	defer span.End()
	span.SetAttributes(attribute.String("vitrine.business_slug", slug))

	rows, err := s.db.QueryContext(ctx, `
		SELECT TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*) AS count
		FROM bookings
		WHERE business_slug = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY day ORDER BY day ASC`, slug, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: count by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("bookings: scan day count: %w", err)
		}
		out = append(out, dc)
	}
	if out == nil {
		out = []DayCount{}
	}
	return out, rows.Err()
}

// TopServices returns the most requested services for a business inside
// [start, end), most requested first, ties broken alphabetically.
func (s *Store) TopServices(ctx context.Context, slug string, start, end time.Time, limit int) ([]ServiceCount, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.top_services")
	defer span.End()
	span.SetAttributes(attribute.String("vitrine.business_slug", slug))

	rows, err := s.db.QueryContext(ctx, `
		SELECT service, COUNT(*) AS count
		FROM bookings
		WHERE business_slug = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY service ORDER BY count DESC, service ASC LIMIT $4`, slug, start, end, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: top services: %w", err)
	}
	defer rows.Close()

	var out []ServiceCount
	for rows.Next() {
		var sc ServiceCount
		if err := rows.Scan(&sc.Service, &sc.Count); err != nil {
			return nil, fmt.Errorf("bookings: scan service count: %w", err)
		}
		out = append(out, sc)
	}
	if out == nil {
		out = []ServiceCount{}
	}
	return out, rows.Err()
}

// Recent returns the latest booking records for a business, newest first.
func (s *Store) Recent(ctx context.Context, slug string, limit int) ([]Record, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.recent")
	defer span.End()
	span.SetAttributes(attribute.String("vitrine.business_slug", slug))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_slug, business_name, contact_email, service, booking_date, booking_time, session_id, created_at
		FROM bookings
		WHERE business_slug = $1 ORDER BY created_at DESC LIMIT $2`, slug, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: recent bookings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.BusinessSlug, &rec.BusinessName, &rec.ContactEmail,
			&rec.Service, &rec.Date, &rec.Time, &rec.SessionID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []Record{}
	}
	return out, rows.Err()
}
