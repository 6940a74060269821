// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Claims is the signed content of a session token.
type Claims struct {
	// Subject is the normalized identity address the token was issued for.
	Subject string

	// ExpiresAt is the token's natural expiry.
	ExpiresAt time.Time
}

// TokenSigner is the signing collaborator capability. Expiry enforcement is
// folded into Verify: a structurally valid token past its expiry returns
// ErrTokenExpired.
type TokenSigner interface {
	// Sign produces an opaque signed token carrying the claims.
	Sign(claims Claims) (string, error)

	// Verify checks signature and expiry, returning the embedded claims.
	// Returns ErrTokenExpired or ErrBadSignature (wrapped) on rejection.
	Verify(raw string) (Claims, error)
}

// JWTSigner implements TokenSigner with HMAC-SHA256 JWTs.
type JWTSigner struct {
	secret []byte
}

// NewJWTSigner creates a JWTSigner. An empty secret is an invariant
// violation: every token the service ever issues would be forgeable.
func NewJWTSigner(secret []byte) (*JWTSigner, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_SIGNER_NO_SECRET").Errorf("signing secret is required")
	}
	return &JWTSigner{secret: secret}, nil
}

// Sign produces a signed JWT for the claims.
func (s *JWTSigner) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code("AUTH_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks signature and expiry, returning the embedded claims.
func (s *JWTSigner) Verify(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, oops.Code("AUTH_TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return Claims{}, oops.Code("AUTH_BAD_SIGNATURE").
			Wrap(errors.Join(ErrBadSignature, err))
	}

	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || reg.ExpiresAt == nil {
		return Claims{}, oops.Code("AUTH_BAD_SIGNATURE").Wrap(ErrBadSignature)
	}

	return Claims{
		Subject:   reg.Subject,
		ExpiresAt: reg.ExpiresAt.Time,
	}, nil
}

// Compile-time interface check.
var _ TokenSigner = (*JWTSigner)(nil)
