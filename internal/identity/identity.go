// Package identity resolves the X-Api-Token of a request into an actor.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

var (
	ErrInvalidToken = errors.New("invalid api token")
	ErrExpiredToken = errors.New("api token expired")
)

// Resolver turns an API token into the calling actor.
type Resolver interface {
	Resolve(ctx context.Context, token string) (lifecycle.Actor, error)
}

// claims is the token payload. The subject is the user id.
type claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin,omitempty"`
}

// JWTResolver verifies HS256 tokens issued by the auth service.
type JWTResolver struct {
	secret []byte
}

var _ Resolver = (*JWTResolver)(nil)

// NewJWTResolver creates a resolver for tokens signed with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (r *JWTResolver) Resolve(ctx context.Context, tokenString string) (lifecycle.Actor, error) {
	if tokenString == "" {
		return lifecycle.Actor{}, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return lifecycle.Actor{}, ErrExpiredToken
		}
		return lifecycle.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return lifecycle.Actor{}, ErrInvalidToken
	}
	return lifecycle.Actor{UserID: c.Subject, IsAdmin: c.Admin}, nil
}

// Sign issues a token for userID valid for ttl.
func Sign(secret, userID string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Admin: admin,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Static resolves fixed tokens to actors.
type Static map[string]lifecycle.Actor

func (s Static) Resolve(ctx context.Context, token string) (lifecycle.Actor, error) {
	a, ok := s[token]
	if !ok {
		return lifecycle.Actor{}, ErrInvalidToken
	}
	return a, nil
}
