package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nickyhof/FlatDB/core"
)

// Claims are the session token claims. Name and Email become the
// connection identity.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: "flatdb"}
}

func (issuer *TokenIssuer) Issue(identity core.Identity) (string, time.Time, error) {
	if len(issuer.secret) == 0 {
		return "", time.Time{}, errors.New("no secret configured")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(issuer.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer.issuer,
			Subject:   identity.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  identity.Name,
		Email: identity.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses a token and returns its claims. Expired tokens and
// tokens signed with another secret or method are rejected.
func (issuer *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	if len(issuer.secret) == 0 {
		return nil, errors.New("no secret configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return issuer.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithIssuer(issuer.issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Name == "" && claims.Email == "" {
		return nil, errors.New("token missing identity claims (name or email)")
	}
	return claims, nil
}

func (claims *Claims) Identity() core.Identity {
	return core.Identity{Name: claims.Name, Email: claims.Email}
}
