// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher is the hashing collaborator capability. Hashing is
// deliberately expensive (tuned for attacker cost); callers must keep it
// off latency-sensitive paths.
type PasswordHasher interface {
	// Hash produces the stored-hash variant of a plaintext credential.
	Hash(candidate Credential) (Credential, error)

	// Verify checks a plaintext candidate against a stored hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// for an unusable stored hash.
	Verify(candidate, stored Credential) (bool, error)
}

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params follows the OWASP argon2id recommendation.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Argon2Hasher implements PasswordHasher using argon2id with PHC-format
// encoded hashes.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates an Argon2Hasher with the given cost parameters.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

// Hash produces the stored-hash variant of a plaintext credential.
func (h *Argon2Hasher) Hash(candidate Credential) (Credential, error) {
	if candidate.Hashed() {
		return Credential{}, oops.Code("AUTH_HASH_FAILED").Errorf("credential is already hashed")
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(candidate.Expose()), salt,
		h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return CredentialFromHash(encoded), nil
}

// Verify checks a plaintext candidate against a stored hash. The stored
// hash's own parameters are used, so previously issued hashes stay
// verifiable after a parameter change.
func (h *Argon2Hasher) Verify(candidate, stored Credential) (bool, error) {
	if !stored.Hashed() {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("stored credential is not a hash")
	}

	salt, expected, params, err := decodePHC(stored.Expose())
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(candidate.Expose()), salt,
		params.Time, params.Memory, params.Threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// decodePHC parses a PHC-format argon2id hash string into its salt, key,
// and cost parameters.
func decodePHC(encoded string) (salt, key []byte, params Argon2Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").
			Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &threads); err != nil {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").
			Errorf("threads value %d out of range", threads)
	}
	params.Threads = uint8(threads)

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 {
		return nil, nil, params, oops.Code("AUTH_INVALID_HASH").Errorf("empty hash key")
	}

	return salt, key, params, nil
}

// Compile-time interface check.
var _ PasswordHasher = (*Argon2Hasher)(nil)
