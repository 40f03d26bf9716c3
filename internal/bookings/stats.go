package bookings

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vitrineapp/vitrine-ai-platform/internal/observability/metrics"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 365
	topServicesLimit = 5
)

// Stats is the admin dashboard payload for one business.
type Stats struct {
	BusinessSlug      string           `json:"business_slug"`
	PeriodStart       string           `json:"period_start"`
	PeriodEnd         string           `json:"period_end"`
	TotalBookings     int64            `json:"total_bookings"`
	BookingsByDay     []DayCount       `json:"bookings_by_day"`
	TopServices       []ServiceCount   `json:"top_services"`
	ClassifierLatency *LatencySnapshot `json:"classifier_latency,omitempty"`
}

// LatencySnapshot summarizes the classifier latency histogram at read time.
type LatencySnapshot struct {
	SampleCount    uint64          `json:"sample_count"`
	AverageSeconds float64         `json:"average_seconds"`
	P90Seconds     float64         `json:"p90_seconds"`
	P95Seconds     float64         `json:"p95_seconds"`
	Buckets        []LatencyBucket `json:"buckets"`
}

// LatencyBucket is one cumulative histogram bucket.
type LatencyBucket struct {
	UpperBoundSeconds float64 `json:"le_seconds"`
	CumulativeCount   uint64  `json:"cumulative_count"`
}

// StatsHandler serves aggregated booking metrics for the admin dashboard.
type StatsHandler struct {
	store    *Store
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	now      func() time.Time
}

// NewStatsHandler creates a stats HTTP handler reading from the default
// Prometheus gatherer.
func NewStatsHandler(store *Store, logger *logging.Logger) *StatsHandler {
	return NewStatsHandlerWithGatherer(store, prometheus.DefaultGatherer, logger)
}

// NewStatsHandlerWithGatherer allows injecting a gatherer for testing.
func NewStatsHandlerWithGatherer(store *Store, gatherer prometheus.Gatherer, logger *logging.Logger) *StatsHandler {
	if store == nil {
		panic("bookings: store cannot be nil")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		store:    store,
		gatherer: gatherer,
		logger:   logger.Component("bookings.stats"),
		now:      time.Now,
	}
}

// GetStats returns booking aggregates for a business.
// GET /admin/businesses/{slug}/stats
// Query params:
//   - days: size of the trailing window in calendar days (default 7)
//   - start, end: RFC3339 bounds for an explicit window (both or neither)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		http.Error(w, `{"error": "business slug required"}`, http.StatusBadRequest)
		return
	}

	start, end, err := h.parseWindow(r)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusBadRequest)
		return
	}

	days, err := h.store.CountByDay(r.Context(), slug, start, end)
	if err != nil {
		h.logger.Error("failed to count bookings", "business_slug", slug, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	services, err := h.store.TopServices(r.Context(), slug, start, end, topServicesLimit)
	if err != nil {
		h.logger.Error("failed to rank services", "business_slug", slug, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	stats := Stats{
		BusinessSlug: slug,
		PeriodStart:  start.Format(time.RFC3339),
		PeriodEnd:    end.Format(time.RFC3339),
		TopServices:  services,
	}
	stats.BookingsByDay = zeroFillDays(days, start, end)
	for _, dc := range days {
		stats.TotalBookings += dc.Count
	}

	snapshot, err := h.classifierLatency()
	if err != nil {
		h.logger.Warn("failed to snapshot classifier latency", "error", err)
	} else {
		stats.ClassifierLatency = snapshot
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode stats", "business_slug", slug, "error", err)
	}
}

// RecentResponse is the payload for the recent bookings listing.
type RecentResponse struct {
	BusinessSlug string   `json:"business_slug"`
	Bookings     []Record `json:"bookings"`
	Count        int      `json:"count"`
}

// ListRecent returns the latest booking records for a business.
// GET /admin/businesses/{slug}/bookings?limit=N (default 20, max 100)
func (h *StatsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		http.Error(w, `{"error": "business slug required"}`, http.StatusBadRequest)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, `{"error": "limit must be an integer between 1 and 100"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.store.Recent(r.Context(), slug, limit)
	if err != nil {
		h.logger.Error("failed to list bookings", "business_slug", slug, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := RecentResponse{BusinessSlug: slug, Bookings: records, Count: len(records)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode bookings", "business_slug", slug, "error", err)
	}
}

// parseWindow resolves the [start, end) aggregation window. An explicit
// RFC3339 start/end pair wins; otherwise the window is the trailing N
// calendar days including today, in UTC.
func (h *StatsHandler) parseWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	startRaw, endRaw := q.Get("start"), q.Get("end")
	if (startRaw == "") != (endRaw == "") {
		return time.Time{}, time.Time{}, fmt.Errorf("both start and end must be provided, or neither")
	}
	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start time, use RFC3339 format")
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end time, use RFC3339 format")
		}
		if !start.Before(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("start must be before end")
		}
		return start.UTC(), end.UTC(), nil
	}

	days := defaultStatsDays
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			return time.Time{}, time.Time{}, fmt.Errorf("days must be an integer between 1 and %d", maxStatsDays)
		}
		days = n
	}

	now := h.now().UTC()
	end := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)
	return start, end, nil
}

// zeroFillDays expands sparse per-day counts into a dense series covering
// every calendar day of the window.
func zeroFillDays(days []DayCount, start, end time.Time) []DayCount {
	counts := make(map[string]int64, len(days))
	for _, dc := range days {
		counts[dc.Day] = dc.Count
	}

	series := []DayCount{}
	for d := start.Truncate(24 * time.Hour); d.Before(end); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		series = append(series, DayCount{Day: day, Count: counts[day]})
	}
	return series
}

// classifierLatency reads the classifier latency histogram from the
// Prometheus gatherer and merges the successful series across models into
// one snapshot. Degraded and unparseable calls carry timeout waits, so they
// are excluded. Returns nil when nothing has been observed yet.
func (h *StatsHandler) classifierLatency() (*LatencySnapshot, error) {
	families, err := h.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("bookings: gather metrics: %w", err)
	}

	var (
		totalCount uint64
		totalSum   float64
		merged     = map[float64]uint64{}
	)
	for _, mf := range families {
		if mf.GetName() != metrics.ClassifierLatencyMetric {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabel(m, "status", "ok") {
				continue
			}
			hist := m.GetHistogram()
			if hist == nil {
				continue
			}
			totalCount += hist.GetSampleCount()
			totalSum += hist.GetSampleSum()
			for _, b := range hist.GetBucket() {
				if math.IsInf(b.GetUpperBound(), +1) {
					continue
				}
				merged[b.GetUpperBound()] += b.GetCumulativeCount()
			}
		}
	}
	if totalCount == 0 {
		return nil, nil
	}

	bounds := make([]float64, 0, len(merged))
	for le := range merged {
		bounds = append(bounds, le)
	}
	sort.Float64s(bounds)

	buckets := make([]LatencyBucket, 0, len(bounds))
	for _, le := range bounds {
		buckets = append(buckets, LatencyBucket{UpperBoundSeconds: le, CumulativeCount: merged[le]})
	}

	return &LatencySnapshot{
		SampleCount:    totalCount,
		AverageSeconds: totalSum / float64(totalCount),
		P90Seconds:     histogramQuantile(0.90, buckets, totalCount),
		P95Seconds:     histogramQuantile(0.95, buckets, totalCount),
		Buckets:        buckets,
	}, nil
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

// histogramQuantile estimates a quantile by linear interpolation inside the
// first cumulative bucket containing the target rank. When the rank falls
// past the last finite bucket the last upper bound is returned.
func histogramQuantile(q float64, buckets []LatencyBucket, count uint64) float64 {
	if count == 0 || len(buckets) == 0 {
		return 0
	}

	rank := q * float64(count)
	var prevBound float64
	var prevCum uint64
	for _, b := range buckets {
		if float64(b.CumulativeCount) >= rank {
			inBucket := b.CumulativeCount - prevCum
			if inBucket == 0 {
				return b.UpperBoundSeconds
			}
			frac := (rank - float64(prevCum)) / float64(inBucket)
			return prevBound + (b.UpperBoundSeconds-prevBound)*frac
		}
		prevBound = b.UpperBoundSeconds
		prevCum = b.CumulativeCount
	}
	return buckets[len(buckets)-1].UpperBoundSeconds
}
