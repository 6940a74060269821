// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// challengeKeyPrefix namespaces challenge entries on a shared instance.
const challengeKeyPrefix = "login_challenge:"

// claimScript compares the stored challenge pair against the presented one
// and deletes the key on match, all inside the Redis server, so claim is
// atomic across concurrent verifiers.
// Returns 1 on claim, 0 when no challenge is pending, -1 on mismatch.
var claimScript = goredis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
	return 0
end
local entry = cjson.decode(value)
if entry.challenge_id == ARGV[1] and entry.code == ARGV[2] then
	redis.call('DEL', KEYS[1])
	return 1
end
return -1
`)

// challengeRecord is the serialized form of a pending challenge.
type challengeRecord struct {
	ChallengeID string    `json:"challenge_id"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChallengeStore implements auth.ChallengeStore on Redis. SET gives
// last-write-wins replacement per address; expiry is the key TTL.
type ChallengeStore struct {
	client *goredis.Client
}

// NewChallengeStore creates a ChallengeStore on the given client.
func NewChallengeStore(client *goredis.Client) (*ChallengeStore, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	return &ChallengeStore{client: client}, nil
}

// Put stores a challenge, replacing any pending one for the address.
func (s *ChallengeStore) Put(ctx context.Context, address auth.Address, challenge auth.Challenge, ttl time.Duration) error {
	record := challengeRecord{
		ChallengeID: challenge.ID.String(),
		Code:        challenge.Code.String(),
		CreatedAt:   challenge.CreatedAt,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return oops.Code("CHALLENGE_PUT_FAILED").
			With("operation", "marshal challenge").
			Wrap(err)
	}

	if err := s.client.Set(ctx, challengeKey(address), payload, ttl).Err(); err != nil {
		return oops.Code("CHALLENGE_PUT_FAILED").
			With("operation", "set challenge").
			Wrap(err)
	}
	return nil
}

// Get retrieves the pending challenge for the address.
func (s *ChallengeStore) Get(ctx context.Context, address auth.Address) (auth.Challenge, error) {
	payload, err := s.client.Get(ctx, challengeKey(address)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return auth.Challenge{}, oops.Code("CHALLENGE_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.Challenge{}, oops.Code("CHALLENGE_GET_FAILED").
			With("operation", "get challenge").
			Wrap(err)
	}

	return decodeChallenge(payload)
}

// Claim atomically compares and removes the pending challenge on match.
func (s *ChallengeStore) Claim(ctx context.Context, address auth.Address, id auth.ChallengeID, code auth.OneTimeCode) error {
	verdict, err := claimScript.Run(ctx, s.client,
		[]string{challengeKey(address)},
		id.String(), code.String(),
	).Int()
	if err != nil {
		return oops.Code("CHALLENGE_CLAIM_FAILED").
			With("operation", "run claim script").
			Wrap(err)
	}

	switch verdict {
	case 1:
		return nil
	case 0:
		return oops.Code("CHALLENGE_NOT_FOUND").
			With("address", address.String()).
			Wrap(auth.ErrNotFound)
	default:
		return oops.Code("CHALLENGE_MISMATCH").Wrap(auth.ErrChallengeMismatch)
	}
}

// Remove deletes the pending challenge for the address, if any.
func (s *ChallengeStore) Remove(ctx context.Context, address auth.Address) error {
	if err := s.client.Del(ctx, challengeKey(address)).Err(); err != nil {
		return oops.Code("CHALLENGE_REMOVE_FAILED").
			With("operation", "delete challenge").
			Wrap(err)
	}
	return nil
}

// decodeChallenge rebuilds a Challenge from its serialized form.
func decodeChallenge(payload []byte) (auth.Challenge, error) {
	var record challengeRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return auth.Challenge{}, oops.Code("CHALLENGE_DECODE_FAILED").
			With("operation", "unmarshal challenge").
			Wrap(err)
	}

	id, err := auth.ParseChallengeID(record.ChallengeID)
	if err != nil {
		return auth.Challenge{}, oops.Code("CHALLENGE_DECODE_FAILED").
			With("operation", "parse stored challenge id").
			Wrap(err)
	}
	code, err := auth.ParseOneTimeCode(record.Code)
	if err != nil {
		return auth.Challenge{}, oops.Code("CHALLENGE_DECODE_FAILED").
			With("operation", "parse stored code").
			Wrap(err)
	}

	return auth.Challenge{ID: id, Code: code, CreatedAt: record.CreatedAt}, nil
}

// challengeKey derives the namespaced storage key for an address.
func challengeKey(address auth.Address) string {
	return challengeKeyPrefix + address.String()
}

// Compile-time interface check.
var _ auth.ChallengeStore = (*ChallengeStore)(nil)
