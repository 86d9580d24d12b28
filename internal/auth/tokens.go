// Package auth mints and validates host tokens. A host token is issued when
// a room is created and authorizes exactly that room's lifecycle actions;
// players stay anonymous and never carry a token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail parsing, signature or
// claim checks.
var ErrInvalidToken = errors.New("invalid host token")

// HostClaims are the JWT claims carried by a host token.
type HostClaims struct {
	RoomID string `json:"room_id"`
	jwt.RegisteredClaims
}

// TokenConfig holds host token signing configuration.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// MintHostToken creates a token scoped to one room.
func MintHostToken(cfg *TokenConfig, roomID string) (string, error) {
	now := time.Now()
	claims := HostClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   roomID,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateHostToken parses and validates a host token.
func ValidateHostToken(cfg *TokenConfig, tokenString string) (*HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*HostClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, ErrInvalidToken
	}
	if claims.RoomID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
