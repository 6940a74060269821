// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// MinCredentialLength is the minimum length of a plaintext credential.
const MinCredentialLength = 8

// Credential is secret material in one of two variants: a validated
// plaintext candidate (registration and login input) or an opaque stored
// hash rehydrated from a backend. A plaintext credential must never be
// persisted; an IdentityStore only ever receives the hashed variant.
//
// Credential implements fmt.Stringer and slog.LogValuer so that the raw
// value cannot leak through formatting or logging. The value is reachable
// only through the Expose accessor.
type Credential struct {
	value  string
	hashed bool
}

// ParseCredential validates a plaintext candidate credential.
func ParseCredential(raw string) (Credential, error) {
	if len(raw) < MinCredentialLength {
		return Credential{}, oops.Code("AUTH_CREDENTIAL_TOO_SHORT").
			With("min", MinCredentialLength).
			Errorf("credential must be at least %d characters", MinCredentialLength)
	}
	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return Credential{}, oops.Code("AUTH_CREDENTIAL_WHITESPACE").
			Errorf("credential must not contain whitespace")
	}
	return Credential{value: raw}, nil
}

// CredentialFromHash wraps a stored hash without validation. Used only when
// rehydrating an identity from storage; the hash was produced by the
// hashing collaborator and carries no invariants of its own.
func CredentialFromHash(stored string) Credential {
	return Credential{value: stored, hashed: true}
}

// Expose returns the raw value. This is the single auditable accessor;
// call sites are the complete inventory of places secret material leaves
// the wrapper.
func (c Credential) Expose() string {
	return c.value
}

// Hashed reports whether the credential is the stored-hash variant.
func (c Credential) Hashed() bool {
	return c.hashed
}

// String returns a redaction marker, never the value.
func (c Credential) String() string {
	return "[REDACTED]"
}

// LogValue keeps the credential out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
