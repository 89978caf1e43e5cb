package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"skillchisel/internal/core"
)

// ErrInvalidToken is returned for tokens that are malformed, badly signed or
// expired.
var ErrInvalidToken = errors.New("invalid session token")

// Claims carried by a session token. The JWT ID is the stored session id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	secret []byte
	issuer string
}

func NewTokenSigner(secret []byte, issuer string) *TokenSigner {
	return &TokenSigner{secret: secret, issuer: issuer}
}

// Sign encodes sess as a compact JWT.
func (s *TokenSigner) Sign(sess core.Session, issuedAt time.Time) (string, error) {
	claims := Claims{
		Email: sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token against now.
func (s *TokenSigner) Parse(raw string, now time.Time) (core.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return core.Session{}, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuer(s.issuer, true) {
		return core.Session{}, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" {
		return core.Session{}, ErrInvalidToken
	}
	return core.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
