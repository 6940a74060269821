// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})
	return mr, client
}

func TestNewRevocationStore_RequiresClient(t *testing.T) {
	_, err := NewRevocationStore(nil)
	require.Error(t, err)
}

func TestRevocationStore_RevokeAndCheck(t *testing.T) {
	_, client := testClient(t)
	store, err := NewRevocationStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "token-a", time.Minute))

	revoked, err = store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationStore_KeysAreHashed(t *testing.T) {
	// A dump of the store must not contain usable bearer tokens.
	mr, client := testClient(t)
	store, err := NewRevocationStore(client)
	require.NoError(t, err)

	const token = "super-secret-session-token"
	require.NoError(t, store.Revoke(context.Background(), token, time.Minute))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], token)
	assert.Contains(t, keys[0], revokedKeyPrefix)
}

func TestRevocationStore_EntryExpires(t *testing.T) {
	mr, client := testClient(t)
	store, err := NewRevocationStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "token-a", time.Minute))

	mr.FastForward(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationStore_BackendUnavailable(t *testing.T) {
	mr, client := testClient(t)
	store, err := NewRevocationStore(client)
	require.NoError(t, err)

	mr.Close()

	_, err = store.IsRevoked(context.Background(), "token-a")
	require.Error(t, err)

	err = store.Revoke(context.Background(), "token-a", time.Minute)
	require.Error(t, err)
}
