// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// countingHasher records peak concurrency across Hash/Verify calls.
type countingHasher struct {
	inner   auth.PasswordHasher
	active  atomic.Int64
	peak    atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func (c *countingHasher) track() func() {
	n := c.active.Add(1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	return func() { c.active.Add(-1) }
}

func (c *countingHasher) Hash(candidate auth.Credential) (auth.Credential, error) {
	defer c.track()()
	return c.inner.Hash(candidate)
}

func (c *countingHasher) Verify(candidate, stored auth.Credential) (bool, error) {
	defer c.track()()
	return c.inner.Verify(candidate, stored)
}

func TestNewBoundedHasher(t *testing.T) {
	t.Run("requires inner hasher", func(t *testing.T) {
		_, err := auth.NewBoundedHasher(nil, 4)
		require.Error(t, err)
	})

	t.Run("defaults worker count", func(t *testing.T) {
		hasher, err := auth.NewBoundedHasher(auth.NewArgon2Hasher(testArgon2Params()), 0)
		require.NoError(t, err)
		assert.NotNil(t, hasher)
	})
}

func TestBoundedHasher_HashAndVerify(t *testing.T) {
	bounded, err := auth.NewBoundedHasher(auth.NewArgon2Hasher(testArgon2Params()), 2)
	require.NoError(t, err)

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	stored, err := bounded.HashCtx(context.Background(), candidate)
	require.NoError(t, err)

	ok, err := bounded.VerifyCtx(context.Background(), candidate, stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoundedHasher_LimitsConcurrency(t *testing.T) {
	const workers = 2
	const calls = 8

	counting := &countingHasher{inner: auth.NewArgon2Hasher(testArgon2Params())}
	bounded, err := auth.NewBoundedHasher(counting, workers)
	require.NoError(t, err)

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bounded.HashCtx(context.Background(), candidate)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, counting.peak.Load(), int64(workers))
}

func TestBoundedHasher_RespectsCancellation(t *testing.T) {
	counting := &countingHasher{
		inner:   auth.NewArgon2Hasher(testArgon2Params()),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	bounded, err := auth.NewBoundedHasher(counting, 1)
	require.NoError(t, err)

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	// Occupy the only worker slot.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := bounded.HashCtx(context.Background(), candidate)
		assert.NoError(t, err)
	}()
	<-counting.entered

	// A second caller with a cancelled context fails at acquisition.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bounded.HashCtx(ctx, candidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(counting.release)
	<-done
}
