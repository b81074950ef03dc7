// Package token signs and verifies the identity tokens clients present
// to the relay before the websocket upgrade.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filmgrain/groupwatch/internal/domain"
)

var ErrInvalidToken = errors.New("invalid identity token")

// IdentityClaims carries who the connection belongs to. Incognito
// accounts are recognized by their tagged identifier, so no extra claim
// is needed.
type IdentityClaims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// Sign issues an HMAC-signed identity token for the given account.
func Sign(secret string, id domain.Identity, ttl time.Duration) (string, error) {
	claims := IdentityClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Identifier,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse validates a token and returns the identity it carries.
func Parse(secret, tokenString string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || claims.Subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{Identifier: claims.Subject, Username: claims.Username}, nil
}
