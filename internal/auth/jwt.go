package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plurahq/agencyhub/internal/models"
)

// Claims is the payload of a session token. The identity provider
// issues these; the middleware reads them back into a Principal on
// every request, so no auth round-trip is needed per request.
type Claims struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the ambient identity the
// service layer works with. Subject carries the provider's user id.
func (c *Claims) Principal() models.Principal {
	return models.Principal{
		ID:        c.Subject,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		ImageURL:  c.ImageURL,
	}
}

// GenerateToken signs a session token. In production the provider
// mints these; this path exists for local development and tests.
func GenerateToken(p models.Principal, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		ImageURL:  p.ImageURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "agencyhub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry and returns the claims.
// The signing method is pinned to HMAC; an attacker-supplied "alg"
// header cannot downgrade verification.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
