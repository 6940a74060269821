// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"
)

// RevocationStore is the denylist of revoked session tokens. Entries carry
// a TTL equal to the token's remaining validity, so an entry never outlives
// the token it blocks and the store stays bounded.
//
// A lookup failure is surfaced as an error, never silently mapped to
// "not revoked" or "revoked"; the caller decides what an unknown revocation
// state means for the request.
type RevocationStore interface {
	// Revoke records a token as revoked for the given remaining lifetime.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked reports whether the token is currently revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
