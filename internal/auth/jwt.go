package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSecretMissing = errors.New("JWT secret not initialized")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
)

// JWTClaims represents the JWT token claims. Subject carries the email, as
// the reservation backend does.
type JWTClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates access tokens with a shared HS256 secret
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates an issuer. A zero lifetime issues tokens without exp.
func NewTokenIssuer(secret string, lifetime time.Duration) (*TokenIssuer, error) {
	return NewTokenIssuerWithClock(secret, lifetime, time.Now)
}

// NewTokenIssuerWithClock is NewTokenIssuer reading the time from now
func NewTokenIssuerWithClock(secret string, lifetime time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}
	return &TokenIssuer{secret: []byte(secret), lifetime: lifetime, now: now}, nil
}

// GenerateToken creates a new JWT token for a person
func (i *TokenIssuer) GenerateToken(userID int, email string) (string, error) {
	now := i.now()
	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  email,
			ID:       strconv.FormatInt(now.UnixNano(), 36),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.lifetime > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.lifetime))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken validates a JWT token and returns the claims. Expired tokens
// fail with ErrTokenExpired, everything else with ErrTokenInvalid.
func (i *TokenIssuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
