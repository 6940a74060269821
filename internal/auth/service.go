// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// challengeSubject is the subject line of the second-factor message.
const challengeSubject = "Your verification code"

// Service is the login orchestrator. It sequences credential verification,
// optional challenge issuance, challenge verification, and session token
// issuance across independently-failing backends.
type Service struct {
	identities   IdentityStore
	challenges   ChallengeStore
	tokens       *TokenService
	hasher       PasswordHasher
	mailer       Mailer
	challengeTTL time.Duration
	logger       *slog.Logger
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithChallengeTTL overrides the pending-challenge lifetime.
func WithChallengeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithLogger attaches a logger for orchestration events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service. All dependencies are required.
func NewService(
	identities IdentityStore,
	challenges ChallengeStore,
	tokens *TokenService,
	hasher PasswordHasher,
	mailer Mailer,
	opts ...ServiceOption,
) (*Service, error) {
	if identities == nil {
		return nil, oops.Errorf("identity store is required")
	}
	if challenges == nil {
		return nil, oops.Errorf("challenge store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}

	s := &Service{
		identities:   identities,
		challenges:   challenges,
		tokens:       tokens,
		hasher:       hasher,
		mailer:       mailer,
		challengeTTL: DefaultChallengeTTL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginResult is the outcome of a successful Login call: either a session
// token (terminal success) or a challenge id (partial success, second
// factor pending).
type LoginResult struct {
	Token            string
	ChallengeID      ChallengeID
	ChallengePending bool
}

// Register creates a new identity. The candidate credential is hashed
// before it reaches the store; plaintext is never persisted.
func (s *Service) Register(ctx context.Context, rawAddress, rawCredential string, secondFactor bool) error {
	address, err := ParseAddress(rawAddress)
	if err != nil {
		return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(err)
	}
	candidate, err := ParseCredential(rawCredential)
	if err != nil {
		return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(err)
	}

	hashed, err := s.hashCtx(ctx, candidate)
	if err != nil {
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash credential").
			Wrap(err)
	}

	identity, err := NewIdentity(address, hashed, secondFactor)
	if err != nil {
		return oops.Code("AUTH_REGISTER_FAILED").Wrap(err)
	}

	if err := s.identities.Add(ctx, identity); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return oops.Code("AUTH_ALREADY_EXISTS").
				With("address", address.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "add identity").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "identity registered",
		"address", address.String(),
		"second_factor", secondFactor,
	)
	return nil
}

// Login verifies the submitted credentials and either issues a session
// token (second factor disabled) or persists and dispatches a fresh
// challenge (second factor enabled). A new challenge replaces any pending
// one for the same address; the old id/code pair becomes permanently
// unverifiable.
func (s *Service) Login(ctx context.Context, rawAddress, rawCredential string) (*LoginResult, error) {
	address, err := ParseAddress(rawAddress)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(err)
	}
	candidate, err := ParseCredential(rawCredential)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(err)
	}

	identity, err := s.identities.Get(ctx, address)
	if err != nil {
		// Unknown address and wrong credential look identical to the
		// caller so identities cannot be enumerated.
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid address or credential")
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get identity").
			Wrap(err)
	}

	if err := s.identities.ValidateCredential(ctx, address, candidate); err != nil {
		if errors.Is(err, ErrCredentialMismatch) || errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid address or credential")
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "validate credential").
			Wrap(err)
	}

	if !identity.SecondFactor {
		token, err := s.tokens.Issue(ctx, address)
		if err != nil {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "issue token").
				Wrap(err)
		}
		s.logger.InfoContext(ctx, "session issued", "address", address.String())
		return &LoginResult{Token: token}, nil
	}

	return s.issueChallenge(ctx, address)
}

// issueChallenge persists a fresh challenge and dispatches its code.
// If dispatch fails the challenge stays persisted and simply expires by
// TTL; the caller sees an error and never learns the challenge id, so the
// orphan is unreachable.
func (s *Service) issueChallenge(ctx context.Context, address Address) (*LoginResult, error) {
	challenge := NewChallenge()

	if err := s.challenges.Put(ctx, address, challenge, s.challengeTTL); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "put challenge").
			Wrap(err)
	}

	body := "Your one-time login code is " + challenge.Code.String()
	if err := s.mailer.Send(ctx, address, challengeSubject, body); err != nil {
		return nil, oops.Code("AUTH_CHALLENGE_DISPATCH_FAILED").
			With("operation", "send challenge code").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "challenge issued",
		"address", address.String(),
		"challenge_id", challenge.ID.String(),
	)
	return &LoginResult{ChallengeID: challenge.ID, ChallengePending: true}, nil
}

// VerifyChallenge completes a second-factor login. The pending challenge is
// claimed atomically (single use): on a matching pair it is removed and a
// session token issued; a mismatched pair leaves it pending.
func (s *Service) VerifyChallenge(ctx context.Context, rawAddress, rawID, rawCode string) (string, error) {
	address, err := ParseAddress(rawAddress)
	if err != nil {
		return "", oops.Code("AUTH_INVALID_ATTEMPT").Wrap(err)
	}
	id, err := ParseChallengeID(rawID)
	if err != nil {
		return "", oops.Code("AUTH_INVALID_ATTEMPT").Wrap(err)
	}
	code, err := ParseOneTimeCode(rawCode)
	if err != nil {
		return "", oops.Code("AUTH_INVALID_ATTEMPT").Wrap(err)
	}

	if err := s.challenges.Claim(ctx, address, id, code); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return "", oops.Code("AUTH_CHALLENGE_UNKNOWN").
				Errorf("no pending challenge")
		case errors.Is(err, ErrChallengeMismatch):
			return "", oops.Code("AUTH_INVALID_ATTEMPT").
				Errorf("challenge verification failed")
		default:
			return "", oops.Code("AUTH_VERIFY_FAILED").
				With("operation", "claim challenge").
				Wrap(err)
		}
	}

	token, err := s.tokens.Issue(ctx, address)
	if err != nil {
		return "", oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "challenge verified, session issued", "address", address.String())
	return token, nil
}

// VerifyToken validates a presented session token and returns its claims.
func (s *Service) VerifyToken(ctx context.Context, rawToken string) (Claims, error) {
	if rawToken == "" {
		return Claims{}, oops.Code("AUTH_TOKEN_MISSING").Errorf("token is required")
	}
	claims, err := s.tokens.Validate(ctx, rawToken)
	if err != nil {
		if isTokenRejection(err) {
			return Claims{}, oops.Code("AUTH_TOKEN_INVALID").Wrap(err)
		}
		return Claims{}, err
	}
	return claims, nil
}

// Logout revokes a presented session token. A missing or invalid token is
// a distinct error, not an idempotent success: only a token that still
// proves a live session can be revoked.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return oops.Code("AUTH_TOKEN_MISSING").Errorf("token is required")
	}

	claims, err := s.tokens.Validate(ctx, rawToken)
	if err != nil {
		if isTokenRejection(err) {
			return oops.Code("AUTH_TOKEN_INVALID").Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "validate token").
			Wrap(err)
	}

	if err := s.tokens.Revoke(ctx, rawToken, claims); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session revoked", "subject", claims.Subject)
	return nil
}

// isTokenRejection reports whether err is a business-level token rejection
// as opposed to a backend failure.
func isTokenRejection(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrTokenRevoked)
}

// ctxHasher is satisfied by hashers that accept a caller context for
// cancellable slot acquisition (BoundedHasher).
type ctxHasher interface {
	HashCtx(ctx context.Context, candidate Credential) (Credential, error)
}

// hashCtx hashes through the context-aware path when the configured hasher
// supports it.
func (s *Service) hashCtx(ctx context.Context, candidate Credential) (Credential, error) {
	if h, ok := s.hasher.(ctxHasher); ok {
		return h.HashCtx(ctx, candidate)
	}
	return s.hasher.Hash(candidate)
}
