// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultChallengeTTL is how long a pending second-factor challenge stays
// verifiable.
const DefaultChallengeTTL = 10 * time.Minute

// One-time code value space, inclusive.
const (
	minOneTimeCode = 100000
	maxOneTimeCode = 999999
)

// ChallengeID identifies a single login attempt's second-factor challenge.
// Generated server-side; user-supplied copies only round-trip the value.
type ChallengeID struct {
	value uuid.UUID
}

// NewChallengeID generates a cryptographically random challenge id.
func NewChallengeID() ChallengeID {
	return ChallengeID{value: uuid.New()}
}

// ParseChallengeID validates a round-tripped challenge id.
func ParseChallengeID(raw string) (ChallengeID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return ChallengeID{}, oops.Code("AUTH_INVALID_CHALLENGE_ID").Wrap(err)
	}
	return ChallengeID{value: id}, nil
}

// String returns the canonical UUID form.
func (id ChallengeID) String() string {
	return id.value.String()
}

// OneTimeCode is a six-digit numeric verification code in [100000, 999999].
type OneTimeCode struct {
	value string
}

// NewOneTimeCode generates a code uniformly at random over the value space.
func NewOneTimeCode() OneTimeCode {
	span := big.NewInt(maxOneTimeCode - minOneTimeCode + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		// crypto/rand failure means the process has no usable entropy
		// source; nothing sensible can continue.
		panic(err)
	}
	return OneTimeCode{value: strconv.FormatInt(n.Int64()+minOneTimeCode, 10)}
}

// ParseOneTimeCode validates a user-supplied code before any store lookup.
func ParseOneTimeCode(raw string) (OneTimeCode, error) {
	if len(raw) != 6 {
		return OneTimeCode{}, oops.Code("AUTH_INVALID_CODE").Errorf("code must be six digits")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return OneTimeCode{}, oops.Code("AUTH_INVALID_CODE").Errorf("code must be numeric")
	}
	if n < minOneTimeCode || n > maxOneTimeCode {
		return OneTimeCode{}, oops.Code("AUTH_INVALID_CODE").
			Errorf("code out of range")
	}
	return OneTimeCode{value: raw}, nil
}

// String returns the six-digit form.
func (c OneTimeCode) String() string {
	return c.value
}

// Challenge is the pending second-factor state for one address.
type Challenge struct {
	ID        ChallengeID
	Code      OneTimeCode
	CreatedAt time.Time
}

// NewChallenge creates a fresh challenge with random id and code.
func NewChallenge() Challenge {
	return Challenge{
		ID:        NewChallengeID(),
		Code:      NewOneTimeCode(),
		CreatedAt: time.Now(),
	}
}

// ChallengeStore holds at most one pending challenge per address.
type ChallengeStore interface {
	// Put stores a challenge, replacing any pending one for the address.
	// Replacement is intentional: a new login attempt invalidates an
	// outstanding challenge.
	Put(ctx context.Context, address Address, challenge Challenge, ttl time.Duration) error

	// Get retrieves the pending challenge for the address.
	// Returns ErrNotFound if none is pending or it has expired.
	Get(ctx context.Context, address Address) (Challenge, error)

	// Claim atomically compares the presented id/code pair against the
	// pending challenge and removes it on match, enforcing single use
	// without a get/remove race window. Returns ErrNotFound if nothing is
	// pending, ErrChallengeMismatch if the pair does not match (the
	// challenge stays pending).
	Claim(ctx context.Context, address Address, id ChallengeID, code OneTimeCode) error

	// Remove deletes the pending challenge for the address. Absence is
	// not an error (idempotent).
	Remove(ctx context.Context, address Address) error
}
