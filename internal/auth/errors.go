// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors shared by all store backends. Stores wrap these with
// backend context via oops; callers match them with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist
	// or has already expired.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when adding an identity whose address
	// is already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCredentialMismatch is returned when a candidate credential does
	// not match the stored hash.
	ErrCredentialMismatch = errors.New("credential mismatch")

	// ErrChallengeMismatch is returned when a pending challenge exists but
	// the presented id/code pair does not match it.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrTokenExpired is returned when a session token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrBadSignature is returned when a session token fails signature
	// verification or cannot be parsed at all.
	ErrBadSignature = errors.New("bad signature")

	// ErrTokenRevoked is returned when a session token has been revoked
	// before its natural expiry.
	ErrTokenRevoked = errors.New("token revoked")
)
