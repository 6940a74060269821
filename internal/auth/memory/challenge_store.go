// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// challengeEntry pairs a pending challenge with its expiry deadline.
type challengeEntry struct {
	challenge auth.Challenge
	expiresAt time.Time
}

// ChallengeStore implements auth.ChallengeStore with a mutex-guarded map.
// The map key is the address, so at most one challenge per address holds
// structurally; Put replaces, Claim compares and deletes under the same
// lock.
type ChallengeStore struct {
	clock func() time.Time

	mu      sync.Mutex
	pending map[auth.Address]challengeEntry
}

// NewChallengeStore creates an empty ChallengeStore.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		clock:   time.Now,
		pending: make(map[auth.Address]challengeEntry),
	}
}

// Put stores a challenge, replacing any pending one for the address.
func (s *ChallengeStore) Put(_ context.Context, address auth.Address, challenge auth.Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[address] = challengeEntry{
		challenge: challenge,
		expiresAt: s.clock().Add(ttl),
	}
	return nil
}

// Get retrieves the pending challenge for the address.
func (s *ChallengeStore) Get(_ context.Context, address auth.Address) (auth.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(address)
	if !ok {
		return auth.Challenge{}, oops.Code("CHALLENGE_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	return entry.challenge, nil
}

// Claim atomically compares and removes the pending challenge on match.
func (s *ChallengeStore) Claim(_ context.Context, address auth.Address, id auth.ChallengeID, code auth.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(address)
	if !ok {
		return oops.Code("CHALLENGE_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	if entry.challenge.ID != id || entry.challenge.Code != code {
		return oops.Code("CHALLENGE_MISMATCH").Wrap(auth.ErrChallengeMismatch)
	}

	delete(s.pending, address)
	return nil
}

// Remove deletes the pending challenge for the address, if any.
func (s *ChallengeStore) Remove(_ context.Context, address auth.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, address)
	return nil
}

// lookup returns the live entry for the address, lazily expiring a stale
// one. Callers must hold the lock.
func (s *ChallengeStore) lookup(address auth.Address) (challengeEntry, bool) {
	entry, ok := s.pending[address]
	if !ok {
		return challengeEntry{}, false
	}
	if s.clock().After(entry.expiresAt) {
		delete(s.pending, address)
		return challengeEntry{}, false
	}
	return entry, true
}

// Compile-time interface check.
var _ auth.ChallengeStore = (*ChallengeStore)(nil)
