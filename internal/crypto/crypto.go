// Package crypto wraps CRYPTO_SECRET_KEY-keyed token encryption, the
// small "token encryption primitives" helper spec.md §1 marks out of
// scope for the core but that the edge still needs when it stores
// board provider tokens on behalf of a client.
package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a malformed, expired, or
// wrong-signature token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Sealer signs opaque string values (board provider tokens, API keys)
// into a bearer token keyed by CRYPTO_SECRET_KEY, and reverses the
// process on the way back in.
type Sealer struct {
	secret []byte
	ttl    time.Duration
}

// New builds a Sealer. ttl of zero means tokens never expire.
func New(secretKey string, ttl time.Duration) *Sealer {
	return &Sealer{secret: []byte(secretKey), ttl: ttl}
}

type sealedClaims struct {
	Value string `json:"value"`
	jwt.RegisteredClaims
}

// Seal signs value into a compact JWT.
func (s *Sealer) Seal(value string) (string, error) {
	claims := sealedClaims{Value: value}
	if s.ttl > 0 {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(s.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Unseal recovers the value embedded in a token sealed by Seal.
func (s *Sealer) Unseal(token string) (string, error) {
	claims := &sealedClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Value, nil
}
