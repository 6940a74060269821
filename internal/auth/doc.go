// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the session-credential core for Gatehouse.
//
// # Domain Types
//
// Domain values are created through parse or generate constructors:
//   - ParseAddress - validated, normalized identity address
//   - ParseCredential / CredentialFromHash - secret material in its two variants
//   - ParseChallengeID / NewChallengeID - second-factor challenge identifier
//   - ParseOneTimeCode / NewOneTimeCode - six-digit verification code
//
// Direct struct initialization bypasses validation and may create invalid state.
// Store implementations receive pre-validated types from these constructors.
//
// # Stores
//
// Persistence is abstracted behind capability interfaces, one backend per
// deployment:
//   - IdentityStore - registered identities (postgres or memory)
//   - RevocationStore - revoked session tokens with TTL (redis or memory)
//   - ChallengeStore - at most one pending second-factor challenge per
//     address (redis or memory)
//
// # Services
//
// Service types coordinate domain operations:
//   - TokenService - session token issuance and validation
//   - Service - the login orchestrator (register, login, verify, logout)
//
// Services are created with New*Service constructors that validate dependencies.
package auth
