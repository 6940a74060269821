// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// testArgon2Params keeps hashing cheap in tests. Production parameters are
// tuned for attacker cost, not test throughput.
func testArgon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    1,
		Memory:  8,
		Threads: 1,
		SaltLen: 8,
		KeyLen:  16,
	}
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := auth.NewArgon2Hasher(testArgon2Params())

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	stored, err := hasher.Hash(candidate)
	require.NoError(t, err)
	assert.True(t, stored.Hashed())
	assert.True(t, strings.HasPrefix(stored.Expose(), "$argon2id$"))

	t.Run("matching candidate", func(t *testing.T) {
		ok, err := hasher.Verify(candidate, stored)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong candidate", func(t *testing.T) {
		wrong, err := auth.ParseCredential("wrong-credential")
		require.NoError(t, err)

		ok, err := hasher.Verify(wrong, stored)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestArgon2Hasher_SaltedHashesDiffer(t *testing.T) {
	hasher := auth.NewArgon2Hasher(testArgon2Params())

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	first, err := hasher.Hash(candidate)
	require.NoError(t, err)
	second, err := hasher.Hash(candidate)
	require.NoError(t, err)

	assert.NotEqual(t, first.Expose(), second.Expose())
}

func TestArgon2Hasher_VerifyUsesStoredParams(t *testing.T) {
	// Hash with one parameter set, verify with another: the stored hash
	// carries its own parameters.
	old := auth.NewArgon2Hasher(testArgon2Params())

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)
	stored, err := old.Hash(candidate)
	require.NoError(t, err)

	upgraded := auth.NewArgon2Hasher(auth.Argon2Params{
		Time: 2, Memory: 16, Threads: 2, SaltLen: 16, KeyLen: 32,
	})
	ok, err := upgraded.Verify(candidate, stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_HashRejectsHashedInput(t *testing.T) {
	hasher := auth.NewArgon2Hasher(testArgon2Params())

	_, err := hasher.Hash(auth.CredentialFromHash("$argon2id$..."))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_HASH_FAILED")
}

func TestArgon2Hasher_VerifyRejectsBadStoredHash(t *testing.T) {
	hasher := auth.NewArgon2Hasher(testArgon2Params())

	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	tests := []struct {
		name   string
		stored auth.Credential
	}{
		{name: "plaintext stored value", stored: candidate},
		{name: "not phc format", stored: auth.CredentialFromHash("plain-garbage")},
		{name: "wrong algorithm", stored: auth.CredentialFromHash("$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA")},
		{name: "bad salt encoding", stored: auth.CredentialFromHash("$argon2id$v=19$m=8,t=1,p=1$!!!$aGFzaA")},
		{name: "missing sections", stored: auth.CredentialFromHash("$argon2id$v=19$m=8,t=1,p=1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Verify(candidate, tt.stored)
			require.Error(t, err)
		})
	}
}
