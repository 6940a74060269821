// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// DefaultTokenTTL is the default session token lifetime.
const DefaultTokenTTL = 10 * time.Minute

// TokenService implements the session token lifecycle: issuance through the
// signing collaborator, validation against revocation, signature, and expiry.
type TokenService struct {
	signer  TokenSigner
	revoked RevocationStore
	ttl     time.Duration
}

// NewTokenService creates a TokenService with the default TTL.
func NewTokenService(signer TokenSigner, revoked RevocationStore) (*TokenService, error) {
	return NewTokenServiceTTL(signer, revoked, DefaultTokenTTL)
}

// NewTokenServiceTTL creates a TokenService with an explicit token TTL.
func NewTokenServiceTTL(signer TokenSigner, revoked RevocationStore, ttl time.Duration) (*TokenService, error) {
	if signer == nil {
		return nil, oops.Errorf("token signer is required")
	}
	if revoked == nil {
		return nil, oops.Errorf("revocation store is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{signer: signer, revoked: revoked, ttl: ttl}, nil
}

// Issue mints a signed session token for the address.
func (s *TokenService) Issue(_ context.Context, address Address) (string, error) {
	claims := Claims{
		Subject:   address.String(),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	token, err := s.signer.Sign(claims)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("subject", address.String()).
			Wrap(err)
	}
	return token, nil
}

// Validate checks a presented token. Pipeline order is deliberate: the
// revocation lookup runs first so a revoked-but-otherwise-valid token is
// rejected before any signature work, at the cost that revocation-store
// unavailability blocks validation entirely (surfaced as an error, never
// treated as either verdict).
func (s *TokenService) Validate(ctx context.Context, raw string) (Claims, error) {
	revoked, err := s.revoked.IsRevoked(ctx, raw)
	if err != nil {
		return Claims{}, oops.Code("AUTH_TOKEN_VALIDATE_FAILED").
			With("operation", "revocation lookup").
			Wrap(err)
	}
	if revoked {
		return Claims{}, oops.Code("AUTH_TOKEN_REVOKED").Wrap(ErrTokenRevoked)
	}

	claims, err := s.signer.Verify(raw)
	if err != nil {
		return Claims{}, err // carries ErrTokenExpired / ErrBadSignature
	}
	return claims, nil
}

// Revoke denylists a token for the remainder of its validity. The entry's
// TTL is derived from the claims so it self-expires with the token.
func (s *TokenService) Revoke(ctx context.Context, raw string, claims Claims) error {
	remaining := time.Until(claims.ExpiresAt)
	if remaining <= 0 {
		// Already past natural expiry; nothing left to block.
		return nil
	}
	if err := s.revoked.Revoke(ctx, raw, remaining); err != nil {
		return oops.Code("AUTH_TOKEN_REVOKE_FAILED").Wrap(err)
	}
	return nil
}
