// Package auth issues and validates the bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the token payload
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// NewIssuerFromEnv reads JWT_SECRET and JWT_TTL
func NewIssuerFromEnv() (*Issuer, error) {
	secret := env.GetEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return NewIssuer(secret, env.GetEnvDuration("JWT_TTL", DefaultTTL)), nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for p
func (i *Issuer) Issue(p usercontext.Principal) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", p.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates tokenString and returns its principal
func (i *Issuer) Parse(tokenString string) (usercontext.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return usercontext.Principal{}, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return usercontext.Principal{}, ErrInvalidToken
	}
	return usercontext.Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
