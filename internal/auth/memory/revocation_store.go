// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// RevocationStore implements auth.RevocationStore with a deadline map.
// Entries expire lazily: a lookup past the deadline deletes the entry and
// reports not-revoked, and each Revoke sweeps any entries already past due
// so the map stays bounded by the live revocation count.
type RevocationStore struct {
	clock func() time.Time

	mu       sync.Mutex
	deadline map[string]time.Time
}

// NewRevocationStore creates an empty RevocationStore.
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		clock:    time.Now,
		deadline: make(map[string]time.Time),
	}
}

// Revoke records the token until its remaining lifetime elapses.
func (s *RevocationStore) Revoke(_ context.Context, token string, ttl time.Duration) error {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, d := range s.deadline {
		if now.After(d) {
			delete(s.deadline, k)
		}
	}
	s.deadline[token] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether the token is currently revoked.
func (s *RevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deadline[token]
	if !ok {
		return false, nil
	}
	if now.After(d) {
		delete(s.deadline, token)
		return false, nil
	}
	return true, nil
}

// Compile-time interface check.
var _ auth.RevocationStore = (*RevocationStore)(nil)
