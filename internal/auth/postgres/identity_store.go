// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres provides the PostgreSQL identity store backend.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// poolIface abstracts pgxpool.Pool so tests can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityStore implements auth.IdentityStore using PostgreSQL. The unique
// index on identities.address is the source of truth for Add atomicity;
// there is no in-process existence check.
type IdentityStore struct {
	pool   poolIface
	hasher auth.PasswordHasher
}

// NewIdentityStore creates an IdentityStore. The hasher is used by
// ValidateCredential.
func NewIdentityStore(pool poolIface, hasher auth.PasswordHasher) (*IdentityStore, error) {
	if pool == nil {
		return nil, oops.Errorf("connection pool is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &IdentityStore{pool: pool, hasher: hasher}, nil
}

// Add stores a new identity.
func (s *IdentityStore) Add(ctx context.Context, identity auth.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (address, credential_hash, second_factor)
		VALUES ($1, $2, $3)
	`,
		identity.Address.String(),
		identity.Credential.Expose(),
		identity.SecondFactor,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("IDENTITY_EXISTS").
				With("address", identity.Address.String()).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("IDENTITY_ADD_FAILED").
			With("operation", "insert identity").
			With("address", identity.Address.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves an identity by address.
func (s *IdentityStore) Get(ctx context.Context, address auth.Address) (auth.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, credential_hash, second_factor
		FROM identities
		WHERE address = $1
	`, address.String())

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Identity{}, oops.Code("IDENTITY_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.Identity{}, oops.Code("IDENTITY_GET_FAILED").
			With("operation", "get identity").
			With("address", address.String()).
			Wrap(err)
	}
	return identity, nil
}

// ValidateCredential verifies a candidate against the stored hash. Only the
// hash column is fetched; verification runs in the hashing collaborator.
func (s *IdentityStore) ValidateCredential(ctx context.Context, address auth.Address, candidate auth.Credential) error {
	var storedHash string
	err := s.pool.QueryRow(ctx, `
		SELECT credential_hash FROM identities WHERE address = $1
	`, address.String()).Scan(&storedHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("IDENTITY_VALIDATE_FAILED").
			With("operation", "get credential hash").
			With("address", address.String()).
			Wrap(err)
	}

	ok, err := s.hasher.Verify(candidate, auth.CredentialFromHash(storedHash))
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

// scanIdentity scans a single row into an Identity.
// Callers are responsible for handling pgx.ErrNoRows.
func scanIdentity(row pgx.Row) (auth.Identity, error) {
	var (
		addressStr   string
		hashStr      string
		secondFactor bool
	)

	if err := row.Scan(&addressStr, &hashStr, &secondFactor); err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Identity{}, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return auth.Identity{}, oops.Code("IDENTITY_SCAN_FAILED").
			With("operation", "scan identity").
			Wrap(err)
	}

	address, err := auth.ParseAddress(addressStr)
	if err != nil {
		return auth.Identity{}, oops.Code("IDENTITY_INVALID_ADDRESS").
			With("operation", "parse stored address").
			With("address", addressStr).
			Wrap(err)
	}

	return auth.Identity{
		Address:      address,
		Credential:   auth.CredentialFromHash(hashStr),
		SecondFactor: secondFactor,
	}, nil
}

// Compile-time interface check.
var _ auth.IdentityStore = (*IdentityStore)(nil)
