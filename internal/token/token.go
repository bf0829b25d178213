// Package token issues and verifies the short-lived capability tokens the
// gateway uses to authenticate itself to site collectors and accepts back
// from trusted callers.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: bad signature, expired,
// malformed. Callers must not distinguish them.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the capability payload alongside the registered claims.
type Claims struct {
	// Gateway marks tokens minted for gateway-to-collector calls.
	Gateway bool `json:"gateway,omitempty"`
	// Backend names the collector a gateway-minted token targets.
	Backend string `json:"backend,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 capability tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewService creates a token service. ttl applies to every issued token.
func NewService(signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Issue returns a signed token embedding claims plus issued-at, expiry, and
// issuer. now lets callers pin the clock; tests rely on it.
func (s *Service) Issue(claims Claims, now time.Time) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Verify checks signature and expiry. Any failure returns ErrInvalidToken; an
// expired token is indistinguishable from an unsigned one.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
