// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// IdentityStore implements auth.IdentityStore with a mutex-guarded map.
type IdentityStore struct {
	hasher auth.PasswordHasher

	mu        sync.RWMutex
	byAddress map[auth.Address]auth.Identity
}

// NewIdentityStore creates an empty IdentityStore. The hasher is used by
// ValidateCredential.
func NewIdentityStore(hasher auth.PasswordHasher) (*IdentityStore, error) {
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &IdentityStore{
		hasher:    hasher,
		byAddress: make(map[auth.Address]auth.Identity),
	}, nil
}

// Add stores a new identity. The check-then-insert runs under the write
// lock, so concurrent Adds for one address yield exactly one success.
func (s *IdentityStore) Add(_ context.Context, identity auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAddress[identity.Address]; ok {
		return oops.Code("IDENTITY_EXISTS").
			With("address", identity.Address.String()).
			Wrap(auth.ErrAlreadyExists)
	}
	s.byAddress[identity.Address] = identity
	return nil
}

// Get retrieves an identity by address.
func (s *IdentityStore) Get(_ context.Context, address auth.Address) (auth.Identity, error) {
	s.mu.RLock()
	identity, ok := s.byAddress[address]
	s.mu.RUnlock()

	if !ok {
		return auth.Identity{}, oops.Code("IDENTITY_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	return identity, nil
}

// ValidateCredential verifies a candidate against the stored hash. The
// expensive verification runs outside the lock so it cannot stall
// unrelated readers and writers.
func (s *IdentityStore) ValidateCredential(ctx context.Context, address auth.Address, candidate auth.Credential) error {
	identity, err := s.Get(ctx, address)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(candidate, identity.Credential)
	if err != nil {
		return oops.Code("IDENTITY_VALIDATE_FAILED").
			With("operation", "verify credential").
			Wrap(err)
	}
	if !ok {
		return oops.Code("IDENTITY_MISMATCH").Wrap(auth.ErrCredentialMismatch)
	}
	return nil
}

// Compile-time interface check.
var _ auth.IdentityStore = (*IdentityStore)(nil)
