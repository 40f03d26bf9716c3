// Package archive writes accepted booking requests to S3 as JSON documents.
// Archival is best effort: the store is a no-op unless a bucket is
// configured, and callers treat failures as non-fatal.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// bookingDocument is the archived object layout. The archival timestamp is
// the only field added on top of the booking itself.
type bookingDocument struct {
	chat.Booking
	ArchivedAt string `json:"archived_at"`
}

// Store archives booking requests to S3.
type Store struct {
	client S3API
	bucket string
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are
// no-ops so callers never need to branch on configuration.
func NewStore(client S3API, bucket, prefix string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.Component("archive"),
		now:    time.Now,
	}
}

// Enabled reports whether archival is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// ArchiveBooking writes the booking as a JSON object keyed by archival date
// and session id.
func (s *Store) ArchiveBooking(ctx context.Context, booking chat.Booking) error {
	if !s.Enabled() {
		return nil
	}

	now := s.now().UTC()
	doc := bookingDocument{Booking: booking, ArchivedAt: now.Format(time.RFC3339)}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: marshal booking: %w", err)
	}

	key := s.objectKey(now, booking.SessionID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived booking",
		"business_slug", booking.BusinessSlug,
		"session_id", booking.SessionID,
		"s3_key", key,
	)
	return nil
}

func (s *Store) objectKey(now time.Time, sessionID string) string {
	key := fmt.Sprintf("bookings/v1/by-date/%d/%02d/%02d/%s.json",
		now.Year(), now.Month(), now.Day(), sessionID)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}
