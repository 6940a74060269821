// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// DefaultHasherWorkers is the default concurrency bound for expensive
// hashing work.
const DefaultHasherWorkers = 4

// BoundedHasher wraps a PasswordHasher with a weighted semaphore so that at
// most workers hash or verify operations run at once. Argon2id costs tens
// of milliseconds of CPU per call; without a bound, a burst of logins could
// monopolize every scheduler thread and stall unrelated requests.
type BoundedHasher struct {
	inner PasswordHasher
	sem   *semaphore.Weighted
}

// NewBoundedHasher creates a BoundedHasher with the given worker count.
func NewBoundedHasher(inner PasswordHasher, workers int) (*BoundedHasher, error) {
	if inner == nil {
		return nil, oops.Errorf("inner hasher is required")
	}
	if workers <= 0 {
		workers = DefaultHasherWorkers
	}
	return &BoundedHasher{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(workers)),
	}, nil
}

// HashCtx hashes a credential once a worker slot is free. Acquisition
// respects context cancellation.
func (b *BoundedHasher) HashCtx(ctx context.Context, candidate Credential) (Credential, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return Credential{}, oops.Code("AUTH_HASH_CANCELLED").Wrap(err)
	}
	defer b.sem.Release(1)
	return b.inner.Hash(candidate)
}

// VerifyCtx verifies a credential once a worker slot is free.
func (b *BoundedHasher) VerifyCtx(ctx context.Context, candidate, stored Credential) (bool, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_VERIFY_CANCELLED").Wrap(err)
	}
	defer b.sem.Release(1)
	return b.inner.Verify(candidate, stored)
}

// Hash implements PasswordHasher without a caller-supplied context.
func (b *BoundedHasher) Hash(candidate Credential) (Credential, error) {
	return b.HashCtx(context.Background(), candidate)
}

// Verify implements PasswordHasher without a caller-supplied context.
func (b *BoundedHasher) Verify(candidate, stored Credential) (bool, error) {
	return b.VerifyCtx(context.Background(), candidate, stored)
}

// Compile-time interface check.
var _ PasswordHasher = (*BoundedHasher)(nil)
