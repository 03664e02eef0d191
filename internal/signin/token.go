// Package signin turns an authentication event into a signed session token
// and reconstructs the per-request session view from it.
package signin

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aria-id/aria-id/internal/identity"
	"github.com/aria-id/aria-id/internal/shared"
)

// Default session lifetimes, matching the product's 30-day absolute expiry
// with a 24-hour sliding refresh.
const (
	DefaultMaxAge    = 30 * 24 * time.Hour
	DefaultUpdateAge = 24 * time.Hour
)

// Claims is the signed token payload. The subject is the user id; iat marks
// the last refresh and exp the absolute expiry derived from it.
type Claims struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	Provider    string `json:"provider,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	NewUser     bool   `json:"new_user,omitempty"`
	jwt.RegisteredClaims
}

// Meta carries provider metadata recorded alongside the identity when the
// sign-in came through an identity provider.
type Meta struct {
	Provider    string
	AccessToken string
	NewUser     bool
}

// Session is the reconstructed per-request view. Only these fields are
// exposed to callers; the token itself stays opaque.
type Session struct {
	UserID      string    `json:"id"`
	Role        string    `json:"role"`
	Provider    string    `json:"provider,omitempty"`
	AccessToken string    `json:"accessToken,omitempty"`
	DisplayName string    `json:"name"`
	NewSignIn   bool      `json:"isNewUser,omitempty"`
	ExpiresAt   time.Time `json:"expires"`
}

// Enricher signs and reconstructs session tokens.
type Enricher struct {
	secret    []byte
	maxAge    time.Duration
	updateAge time.Duration
	now       func() time.Time
}

// NewEnricher constructs an Enricher. Non-positive ages fall back to the
// defaults above.
func NewEnricher(secret []byte, maxAge, updateAge time.Duration) *Enricher {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if updateAge <= 0 {
		updateAge = DefaultUpdateAge
	}
	return &Enricher{secret: secret, maxAge: maxAge, updateAge: updateAge, now: time.Now}
}

// Issue builds a signed token for a just-authenticated identity.
func (e *Enricher) Issue(id identity.Identity, meta Meta) (string, error) {
	now := e.now()
	claims := Claims{
		Email:       id.Email,
		Name:        id.Name,
		Role:        id.Role,
		Provider:    meta.Provider,
		AccessToken: meta.AccessToken,
		NewUser:     meta.NewUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.maxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
}

// Reconstruct parses a token into the session view. When the token is older
// than the update age it is re-signed with a fresh absolute expiry; the
// second return value then carries the replacement token for the transport
// layer to hand back, otherwise it is empty. Invalid or expired tokens yield
// ErrUnauthorized.
func (e *Enricher) Reconstruct(tokenStr string) (Session, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return e.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Session{}, "", shared.ErrUnauthorized
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return Session{}, "", shared.ErrUnauthorized
	}

	now := e.now()
	sess := Session{
		UserID:      claims.Subject,
		Role:        claims.Role,
		Provider:    claims.Provider,
		AccessToken: claims.AccessToken,
		DisplayName: displayName(claims.Name, claims.Email),
		NewSignIn:   claims.NewUser,
		ExpiresAt:   claims.ExpiresAt.Time,
	}

	if now.Sub(claims.IssuedAt.Time) < e.updateAge {
		return sess, "", nil
	}

	// Sliding refresh: re-sign with a new expiry instead of computing a
	// virtual one. The new-sign-in marker does not survive a refresh.
	refreshed := *claims
	refreshed.NewUser = false
	refreshed.IssuedAt = jwt.NewNumericDate(now)
	refreshed.ExpiresAt = jwt.NewNumericDate(now.Add(e.maxAge))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshed).SignedString(e.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("re-sign session token: %w", err)
	}
	sess.ExpiresAt = refreshed.ExpiresAt.Time
	sess.NewSignIn = false
	return sess, signed, nil
}

// displayName falls back from the stored name to the email local part to a
// generic default, in that order.
func displayName(name, email string) string {
	if name != "" {
		return name
	}
	if email != "" {
		if local, _, _ := strings.Cut(email, "@"); local != "" {
			return local
		}
	}
	return "User"
}
