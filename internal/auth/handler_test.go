package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
)

const testBaseURL = "https://api.vitrine.example"

func newAuthRig(t *testing.T, secret, dashboardURL string) (*chi.Mux, *MagicLink) {
	t.Helper()

	repo := business.NewInMemoryRepository()
	_, err := repo.Upsert(context.Background(), &business.Business{
		Slug: "salon-lumiere",
		Name: "Salon Lumière",
	})
	require.NoError(t, err)

	links := NewMagicLink(secret, 15*time.Minute)
	handler := NewHandler(links, repo, testBaseURL, dashboardURL, nil)

	r := chi.NewRouter()
	r.Post("/auth/magic-link", handler.RequestLink)
	r.Get("/auth/verify", handler.Verify)
	return r, links
}

func requestLink(t *testing.T, r *chi.Mux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestLinkReturnsVerifyURL(t *testing.T) {
	r, _ := newAuthRig(t, "secret", "")

	rec := requestLink(t, r, `{"email": "owner@salon-lumiere.fr", "business_slug": "salon-lumiere"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	verifyURL := resp["verify_url"]
	require.True(t, strings.HasPrefix(verifyURL, testBaseURL+"/auth/verify?token="), verifyURL)

	parsed, err := url.Parse(verifyURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+url.QueryEscape(token), nil)
	verifyRec := httptest.NewRecorder()
	r.ServeHTTP(verifyRec, req)

	require.Equal(t, http.StatusOK, verifyRec.Code)
	assert.Contains(t, verifyRec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, verifyRec.Body.String(), "owner@salon-lumiere.fr")
	assert.Contains(t, verifyRec.Body.String(), "salon-lumiere")
}

func TestRequestLinkValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email": `},
		{"missing email", `{"business_slug": "salon-lumiere"}`},
		{"email without at sign", `{"email": "pas-une-adresse", "business_slug": "salon-lumiere"}`},
		{"missing slug", `{"email": "owner@salon-lumiere.fr"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newAuthRig(t, "secret", "")
			rec := requestLink(t, r, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRequestLinkUnknownBusiness(t *testing.T) {
	r, _ := newAuthRig(t, "secret", "")
	rec := requestLink(t, r, `{"email": "owner@salon-lumiere.fr", "business_slug": "inconnu"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestLinkWithoutSecretReturns503(t *testing.T) {
	r, _ := newAuthRig(t, "", "")
	rec := requestLink(t, r, `{"email": "owner@salon-lumiere.fr", "business_slug": "salon-lumiere"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerifyRedirectsToDashboard(t *testing.T) {
	r, links := newAuthRig(t, "secret", "https://app.vitrine.example/tableau?lang=fr")

	token, err := links.Issue("owner@salon-lumiere.fr", "salon-lumiere")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+url.QueryEscape(token), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.vitrine.example", location.Host)
	assert.Equal(t, "salon-lumiere", location.Query().Get("business"))
	assert.Equal(t, "fr", location.Query().Get("lang"), "existing query params are preserved")
}

func TestVerifyRejectsInvalidToken(t *testing.T) {
	r, _ := newAuthRig(t, "secret", "")

	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token=pas-un-jeton", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyRequiresToken(t *testing.T) {
	r, _ := newAuthRig(t, "secret", "")

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
