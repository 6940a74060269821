// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func testAddress(t *testing.T) auth.Address {
	t.Helper()
	address, err := auth.ParseAddress("alice@example.com")
	require.NoError(t, err)
	return address
}

func TestChallengeStore_PutAndGet(t *testing.T) {
	store := NewChallengeStore()
	ctx := context.Background()
	address := testAddress(t)

	challenge := auth.NewChallenge()
	require.NoError(t, store.Put(ctx, address, challenge, time.Minute))

	got, err := store.Get(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, challenge, got)
}

func TestChallengeStore_Get_NotFound(t *testing.T) {
	store := NewChallengeStore()

	_, err := store.Get(context.Background(), testAddress(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestChallengeStore_Put_Replaces(t *testing.T) {
	store := NewChallengeStore()
	ctx := context.Background()
	address := testAddress(t)

	first := auth.NewChallenge()
	second := auth.NewChallenge()
	require.NoError(t, store.Put(ctx, address, first, time.Minute))
	require.NoError(t, store.Put(ctx, address, second, time.Minute))

	got, err := store.Get(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	// The replaced pair no longer claims.
	err = store.Claim(ctx, address, first.ID, first.Code)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrChallengeMismatch)
}

func TestChallengeStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("match removes the challenge", func(t *testing.T) {
		store := NewChallengeStore()
		address := testAddress(t)
		challenge := auth.NewChallenge()
		require.NoError(t, store.Put(ctx, address, challenge, time.Minute))

		require.NoError(t, store.Claim(ctx, address, challenge.ID, challenge.Code))

		err := store.Claim(ctx, address, challenge.ID, challenge.Code)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("mismatch leaves the challenge pending", func(t *testing.T) {
		store := NewChallengeStore()
		address := testAddress(t)
		challenge := auth.NewChallenge()
		require.NoError(t, store.Put(ctx, address, challenge, time.Minute))

		err := store.Claim(ctx, address, auth.NewChallengeID(), challenge.Code)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrChallengeMismatch)

		_, err = store.Get(ctx, address)
		require.NoError(t, err)
	})

	t.Run("nothing pending", func(t *testing.T) {
		store := NewChallengeStore()
		challenge := auth.NewChallenge()

		err := store.Claim(ctx, testAddress(t), challenge.ID, challenge.Code)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestChallengeStore_Expiry(t *testing.T) {
	now := time.Now()
	store := NewChallengeStore()
	store.clock = func() time.Time { return now }
	ctx := context.Background()
	address := testAddress(t)

	challenge := auth.NewChallenge()
	require.NoError(t, store.Put(ctx, address, challenge, time.Minute))

	now = now.Add(2 * time.Minute)

	_, err := store.Get(ctx, address)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	err = store.Claim(ctx, address, challenge.ID, challenge.Code)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestChallengeStore_Remove_Idempotent(t *testing.T) {
	store := NewChallengeStore()
	ctx := context.Background()
	address := testAddress(t)

	require.NoError(t, store.Remove(ctx, address))

	challenge := auth.NewChallenge()
	require.NoError(t, store.Put(ctx, address, challenge, time.Minute))
	require.NoError(t, store.Remove(ctx, address))

	_, err := store.Get(ctx, address)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
