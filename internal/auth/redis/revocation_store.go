// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// revokedKeyPrefix namespaces revocation entries on a shared instance.
const revokedKeyPrefix = "revoked_token:"

// RevocationStore implements auth.RevocationStore on Redis. Keys are the
// SHA-256 of the token rather than the raw value, so a dump of the store
// never yields usable bearer tokens.
type RevocationStore struct {
	client *goredis.Client
}

// NewRevocationStore creates a RevocationStore on the given client.
func NewRevocationStore(client *goredis.Client) (*RevocationStore, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	return &RevocationStore{client: client}, nil
}

// Revoke records the token with the given remaining lifetime.
func (s *RevocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedKey(token), "1", ttl).Err(); err != nil {
		return oops.Code("REVOCATION_WRITE_FAILED").
			With("operation", "set revoked token").
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether the token is currently revoked. A transport
// failure is surfaced, never mapped to a verdict.
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").
			With("operation", "check revoked token").
			Wrap(err)
	}
	return n > 0, nil
}

// revokedKey derives the namespaced storage key for a token.
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

// Compile-time interface check.
var _ auth.RevocationStore = (*RevocationStore)(nil)
