// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func testHasher() *auth.Argon2Hasher {
	return auth.NewArgon2Hasher(auth.Argon2Params{
		Time: 1, Memory: 8, Threads: 1, SaltLen: 8, KeyLen: 16,
	})
}

func testIdentity(t *testing.T) auth.Identity {
	t.Helper()

	address, err := auth.ParseAddress("alice@example.com")
	require.NoError(t, err)
	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)
	hashed, err := testHasher().Hash(candidate)
	require.NoError(t, err)

	identity, err := auth.NewIdentity(address, hashed, true)
	require.NoError(t, err)
	return identity
}

func TestNewIdentityStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	t.Run("requires pool", func(t *testing.T) {
		_, err := NewIdentityStore(nil, testHasher())
		require.Error(t, err)
	})

	t.Run("requires hasher", func(t *testing.T) {
		_, err := NewIdentityStore(mock, nil)
		require.Error(t, err)
	})
}

func TestIdentityStore_Add(t *testing.T) {
	identity := testIdentity(t)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(identity.Address.String(), identity.Credential.Expose(), true).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to already exists",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(identity.Address.String(), identity.Credential.Expose(), true).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr:  auth.ErrAlreadyExists,
			wantCode: "IDENTITY_EXISTS",
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(identity.Address.String(), identity.Credential.Expose(), true).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "IDENTITY_ADD_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			store, err := NewIdentityStore(mock, testHasher())
			require.NoError(t, err)

			err = store.Add(context.Background(), identity)
			if tt.wantErr != nil || tt.wantCode != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantCode != "" {
					errutil.AssertErrorCode(t, err, tt.wantCode)
				}
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestIdentityStore_Get(t *testing.T) {
	identity := testIdentity(t)

	t.Run("retrieves existing identity", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"address", "credential_hash", "second_factor"}).
			AddRow(identity.Address.String(), identity.Credential.Expose(), true)
		mock.ExpectQuery(`SELECT address, credential_hash, second_factor`).
			WithArgs(identity.Address.String()).
			WillReturnRows(rows)

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		got, err := store.Get(context.Background(), identity.Address)
		require.NoError(t, err)
		assert.Equal(t, identity.Address, got.Address)
		assert.Equal(t, identity.Credential.Expose(), got.Credential.Expose())
		assert.True(t, got.Credential.Hashed())
		assert.True(t, got.SecondFactor)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT address, credential_hash, second_factor`).
			WithArgs(identity.Address.String()).
			WillReturnRows(pgxmock.NewRows([]string{"address", "credential_hash", "second_factor"}))

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		_, err = store.Get(context.Background(), identity.Address)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "IDENTITY_NOT_FOUND")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("corrupt stored address", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"address", "credential_hash", "second_factor"}).
			AddRow("not-an-address", identity.Credential.Expose(), false)
		mock.ExpectQuery(`SELECT address, credential_hash, second_factor`).
			WithArgs(identity.Address.String()).
			WillReturnRows(rows)

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		_, err = store.Get(context.Background(), identity.Address)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "IDENTITY_INVALID_ADDRESS")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT address, credential_hash, second_factor`).
			WithArgs(identity.Address.String()).
			WillReturnError(errors.New("timeout"))

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		_, err = store.Get(context.Background(), identity.Address)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestIdentityStore_ValidateCredential(t *testing.T) {
	identity := testIdentity(t)
	candidate, err := auth.ParseCredential("hunter22ab")
	require.NoError(t, err)

	hashRows := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"credential_hash"}).
			AddRow(identity.Credential.Expose())
	}

	t.Run("matching candidate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT credential_hash FROM identities`).
			WithArgs(identity.Address.String()).
			WillReturnRows(hashRows())

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		require.NoError(t, store.ValidateCredential(context.Background(), identity.Address, candidate))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("wrong candidate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT credential_hash FROM identities`).
			WithArgs(identity.Address.String()).
			WillReturnRows(hashRows())

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		wrong, err := auth.ParseCredential("wrong-credential")
		require.NoError(t, err)

		err = store.ValidateCredential(context.Background(), identity.Address, wrong)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrCredentialMismatch)
		errutil.AssertErrorCode(t, err, "IDENTITY_MISMATCH")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("unknown address", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT credential_hash FROM identities`).
			WithArgs(identity.Address.String()).
			WillReturnRows(pgxmock.NewRows([]string{"credential_hash"}))

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		err = store.ValidateCredential(context.Background(), identity.Address, candidate)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("corrupt stored hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"credential_hash"}).AddRow("not-a-phc-hash")
		mock.ExpectQuery(`SELECT credential_hash FROM identities`).
			WithArgs(identity.Address.String()).
			WillReturnRows(rows)

		store, err := NewIdentityStore(mock, testHasher())
		require.NoError(t, err)

		err = store.ValidateCredential(context.Background(), identity.Address, candidate)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "IDENTITY_VALIDATE_FAILED")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestEnsureSchema(t *testing.T) {
	t.Run("creates table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS identities`).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, EnsureSchema(context.Background(), mock))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("propagates error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS identities`).
			WillReturnError(errors.New("permission denied"))

		err = EnsureSchema(context.Background(), mock)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "IDENTITY_SCHEMA_FAILED")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
