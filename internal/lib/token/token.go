// Package token mints and verifies the signed, purpose-scoped tokens the
// service hands out: session tokens carried in a cookie and single-purpose
// action tokens (email verification, password reset) delivered by mail.
//
// Every token embeds an explicit purpose claim and Parse rejects a purpose
// mismatch, so a reset token can never be replayed where a session token is
// expected. The signing secret is loaded once at startup; rotating it
// requires a restart and invalidates all outstanding tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposeEmailVerify   Purpose = "email_verification"
	PurposePasswordReset Purpose = "password_reset"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrWrongPurpose   = errors.New("token purpose mismatch")
)

type Claims struct {
	UserID   int64   `json:"uid"`
	Purpose  Purpose `json:"purpose"`
	Verified bool    `json:"verified,omitempty"`
	jwt.RegisteredClaims
}

type Engine struct {
	secret []byte
}

func New(secret string) *Engine {
	return &Engine{secret: []byte(secret)}
}

// Issue signs a token for userID with the given purpose and ttl. The verified
// flag is a snapshot taken at issuance and only meaningful for session tokens.
func (e *Engine) Issue(userID int64, purpose Purpose, ttl time.Duration, verified bool) (string, error) {
	const op = "token.Issue"

	now := time.Now()

	claims := Claims{
		UserID:   userID,
		Purpose:  purpose,
		Verified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse verifies the signature and expiry and checks the embedded purpose
// against want. Expiry is enforced here, never by the issuer.
func (e *Engine) Parse(tokenStr string, want Purpose) (Claims, error) {
	const op = "token.Parse"

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return e.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}

	if !parsed.Valid {
		return Claims{}, ErrTokenMalformed
	}

	if claims.Purpose != want {
		return Claims{}, ErrWrongPurpose
	}

	if claims.ExpiresAt == nil {
		return Claims{}, ErrTokenMalformed
	}

	return *claims, nil
}

// TTLRemaining returns how long the parsed claims stay valid, floored at zero.
func (c Claims) TTLRemaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := time.Until(c.ExpiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}
