package business

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo Repository) *chi.Mux {
	h := NewHandler(repo, nil)
	r := chi.NewRouter()
	r.Get("/businesses/{slug}", h.GetPublic)
	r.Get("/admin/businesses", h.List)
	r.Get("/admin/businesses/{slug}", h.GetAdmin)
	r.Put("/admin/businesses/{slug}", h.Upsert)
	return r
}

func TestHandlerUpsertAndPublicRead(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	body := `{
		"name": "Atelier Coiffure",
		"address": "12 rue des Lilas, Lyon",
		"contact_email": "patron@atelier.fr",
		"rules": {"cancellation": "24h à l'avance"},
		"services": [{"name": "Coupe homme", "price_minor": 2200}]
	}`
	req := httptest.NewRequest(http.MethodPut, "/admin/businesses/atelier", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/businesses/atelier", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var pub map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pub))
	assert.Equal(t, "Atelier Coiffure", pub["name"])
	assert.Contains(t, pub["map_url"], "google.com/maps")
	_, hasEmail := pub["contact_email"]
	assert.False(t, hasEmail, "public read must not expose contact email")
	_, hasRules := pub["rules"]
	assert.False(t, hasRules, "public read must not expose rules")
}

func TestHandlerAdminReadKeepsSensitiveFields(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	body := `{"name": "Atelier", "contact_email": "patron@atelier.fr"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/businesses/atelier", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/businesses/atelier", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var full Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Equal(t, "patron@atelier.fr", full.ContactEmail)
}

func TestHandlerUpsertRejectsInvalidPayloads(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	tests := []struct {
		name string
		path string
		body string
	}{
		{"bad slug", "/admin/businesses/Not-Valid", `{"name": "Atelier"}`},
		{"missing name", "/admin/businesses/atelier", `{"description": "joli salon"}`},
		{"bad email", "/admin/businesses/atelier", `{"name": "Atelier", "contact_email": "oops"}`},
		{"malformed json", "/admin/businesses/atelier", `{"name": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandlerUnknownSlug(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/businesses/inconnu", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingRepo struct{}

func (failingRepo) Upsert(ctx context.Context, b *Business) (*Business, error) {
	return nil, errors.New("connection refused")
}

func (failingRepo) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	return nil, errors.New("connection refused")
}

func (failingRepo) List(ctx context.Context) ([]*Business, error) {
	return nil, errors.New("connection refused")
}

func TestHandlerStorageFailure(t *testing.T) {
	router := newTestRouter(failingRepo{})

	req := httptest.NewRequest(http.MethodPut, "/admin/businesses/atelier", strings.NewReader(`{"name": "Atelier"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "storage unavailable", resp["error"])
	assert.NotContains(t, resp["error"], "connection refused")
}

func TestHandlerList(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Upsert(context.Background(), &Business{Slug: "atelier", Name: "Atelier"})
	require.NoError(t, err)
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/admin/businesses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}
