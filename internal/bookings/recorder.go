package bookings

import (
	"context"
	"fmt"

	"github.com/vitrineapp/vitrine-ai-platform/internal/archive"
	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Recorder writes accepted bookings to the durable log and, when configured,
// to the S3 archive. It backs the dialogue engine's recording hook, so a
// failure here never blocks the reply: the engine logs and moves on, and the
// archive leg is best effort even relative to the database write.
type Recorder struct {
	store   *Store
	archive *archive.Store
	logger  *logging.Logger
}

// NewRecorder creates a booking recorder. Both the store and the archive are
// optional; with neither configured the recorder only logs.
func NewRecorder(store *Store, archiveStore *archive.Store, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{
		store:   store,
		archive: archiveStore,
		logger:  logger.Component("bookings"),
	}
}

var _ chat.Recorder = (*Recorder)(nil)

// RecordBooking logs the booking row and archives the document. The archive
// write is attempted even when the row insert fails; only the insert error
// is returned.
func (r *Recorder) RecordBooking(ctx context.Context, booking chat.Booking) error {
	var insertErr error
	if r.store != nil {
		id, err := r.store.Insert(ctx, booking)
		if err != nil {
			insertErr = fmt.Errorf("bookings: record booking: %w", err)
		} else {
			r.logger.Info("booking logged",
				"booking_id", id,
				"business_slug", booking.BusinessSlug,
				"service", booking.Service,
			)
		}
	}

	if r.archive.Enabled() {
		if err := r.archive.ArchiveBooking(ctx, booking); err != nil {
			r.logger.Warn("booking archive failed",
				"business_slug", booking.BusinessSlug,
				"session_id", booking.SessionID,
				"error", err,
			)
		}
	}

	return insertErr
}
