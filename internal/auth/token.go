package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expiry, malformed token or subject.
var ErrInvalidToken = errors.New("invalid token")

const DefaultTokenLifetime = 7 * 24 * time.Hour

type TokenConfig struct {
	Secret   string
	Lifetime time.Duration
	Issuer   string
}

// TokenCodec mints and verifies HS256 session tokens. Tokens are not stored
// anywhere; changing Secret invalidates all of them.
type TokenCodec struct {
	key      []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

func NewTokenCodec(cfg TokenConfig) *TokenCodec {
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenCodec{
		key:      []byte(cfg.Secret),
		lifetime: lifetime,
		issuer:   cfg.Issuer,
		now:      time.Now,
	}
}

func (c *TokenCodec) Lifetime() time.Duration { return c.lifetime }

// Mint returns a token for id expiring exactly Lifetime after now.
func (c *TokenCodec) Mint(id uuid.UUID) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify returns the identity id carried by token.
func (c *TokenCodec) Verify(token string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
