// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// Identity is a registered identity record. The address is the immutable
// unique key; the credential hash may be rotated by a store backend but is
// never deleted by this core.
type Identity struct {
	Address      Address
	Credential   Credential // stored-hash variant only
	SecondFactor bool
}

// NewIdentity creates a validated Identity record.
// The credential must be the stored-hash variant; a plaintext credential
// here would mean secret material on its way into persistence.
func NewIdentity(address Address, credential Credential, secondFactor bool) (Identity, error) {
	if address.IsZero() {
		return Identity{}, oops.Code("AUTH_INVALID_IDENTITY").Errorf("address cannot be zero")
	}
	if !credential.Hashed() {
		return Identity{}, oops.Code("AUTH_INVALID_IDENTITY").Errorf("credential must be hashed")
	}
	return Identity{
		Address:      address,
		Credential:   credential,
		SecondFactor: secondFactor,
	}, nil
}

// IdentityStore manages registered identities.
type IdentityStore interface {
	// Add stores a new identity. Returns ErrAlreadyExists if the address
	// is taken. Concurrent Adds for the same address yield exactly one
	// success; the backend's uniqueness constraint is the source of truth.
	Add(ctx context.Context, identity Identity) error

	// Get retrieves an identity by address. Returns ErrNotFound if the
	// address is not registered.
	Get(ctx context.Context, address Address) (Identity, error)

	// ValidateCredential verifies a plaintext candidate against the stored
	// hash via the hashing collaborator. Returns ErrNotFound if the address
	// is not registered, ErrCredentialMismatch on a wrong candidate.
	ValidateCredential(ctx context.Context, address Address, candidate Credential) error
}
