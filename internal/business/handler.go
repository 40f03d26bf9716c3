package business

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Handler handles HTTP requests for business records
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new business handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Upsert handles PUT /admin/businesses/{slug} requests.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := ValidateSlug(slug); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.repo.Upsert(r.Context(), req.Record(slug))
	if err != nil {
		ref := middleware.GetReqID(r.Context())
		h.logger.Error("business upsert failed", "slug", slug, "ref", ref, "error", err)
		writeStorageError(w, ref)
		return
	}

	h.logger.Info("business record stored", "slug", stored.Slug)
	writeJSON(w, http.StatusOK, stored)
}

// GetAdmin handles GET /admin/businesses/{slug} requests and returns the
// full record including contact email and rules.
func (h *Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	b, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		h.respondLookupError(w, r, slug, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GetPublic handles GET /businesses/{slug} requests with the non-sensitive
// projection.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	b, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		h.respondLookupError(w, r, slug, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Public())
}

// ListResponse is the response for listing business records.
type ListResponse struct {
	Businesses []*Business `json:"businesses"`
	Count      int         `json:"count"`
}

// List handles GET /admin/businesses requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		ref := middleware.GetReqID(r.Context())
		h.logger.Error("business list failed", "ref", ref, "error", err)
		writeStorageError(w, ref)
		return
	}
	if records == nil {
		records = []*Business{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Businesses: records, Count: len(records)})
}

func (h *Handler) respondLookupError(w http.ResponseWriter, r *http.Request, slug string, err error) {
	if errors.Is(err, ErrBusinessNotFound) {
		writeJSONError(w, http.StatusNotFound, "business not found")
		return
	}
	ref := middleware.GetReqID(r.Context())
	h.logger.Error("business lookup failed", "slug", slug, "ref", ref, "error", err)
	writeStorageError(w, ref)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStorageError(w http.ResponseWriter, ref string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error": "storage unavailable",
		"ref":   ref,
	})
}
