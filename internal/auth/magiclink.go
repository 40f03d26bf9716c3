// Package auth implements the magic-link sign-in flow for business owners.
// The flow is deliberately a stand-in: tokens are issued and verified for
// real, but the link is returned in the API response instead of being
// emailed, so the dashboard can be exercised without an outbound mailer.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL bounds how long a magic link stays valid.
const DefaultTokenTTL = 15 * time.Minute

var (
	// ErrNotConfigured is returned when no signing secret is set.
	ErrNotConfigured = errors.New("auth: magic-link secret not configured")
	// ErrInvalidToken is returned for tokens that fail verification for any
	// reason, expiry included.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// MagicLink signs and verifies short-lived HMAC sign-in tokens. The subject
// is the owner email and the audience is the business slug the link grants
// access to.
type MagicLink struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMagicLink creates a token service. A non-positive ttl falls back to
// DefaultTokenTTL; an empty secret leaves the service disabled.
func NewMagicLink(secret string, ttl time.Duration) *MagicLink {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &MagicLink{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Enabled reports whether a signing secret is configured.
func (m *MagicLink) Enabled() bool {
	return m != nil && len(m.secret) > 0
}

// Issue signs a token for the email scoped to one business slug.
func (m *MagicLink) Issue(email, slug string) (string, error) {
	if !m.Enabled() {
		return "", ErrNotConfigured
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Audience:  jwt.ClaimStrings{slug},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the email and
// business slug it was issued for.
func (m *MagicLink) Verify(tokenString string) (email, slug string, err error) {
	if !m.Enabled() {
		return "", "", ErrNotConfigured
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || len(claims.Audience) == 0 {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Audience[0], nil
}
