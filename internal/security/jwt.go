package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/domain"
)

const (
	Issuer   = "edu-auth"
	Audience = "edu-platform"

	RefreshTTL = 30 * 24 * time.Hour
)

type Claims struct {
	UID   string      `json:"uid"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func makeToken(secret string, u *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UID: u.ID.Hex(), Email: u.Email, Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   u.ID.Hex(),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

// MakeAccess issues a short-lived access token.
func MakeAccess(secret string, u *domain.User, ttl time.Duration) (string, error) {
	return makeToken(secret, u, ttl)
}

// MakeRefresh issues the long-lived refresh token (fixed 30 days).
func MakeRefresh(secret string, u *domain.User) (string, error) {
	return makeToken(secret, u, RefreshTTL)
}

// ParseToken verifies signature, expiry, issuer and audience. Expiry-only
// failures come back as KindTokenExpired, everything else as KindTokenInvalid,
// so callers can answer with distinct messages.
func ParseToken(secret, raw string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.KindTokenExpired, "Token expired", err)
		}
		return nil, apperr.Wrap(apperr.KindTokenInvalid, "Invalid token", err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, apperr.New(apperr.KindTokenInvalid, "Invalid token")
	}
	return c, nil
}
