// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package redis provides Redis-backed store backends for the revocation
// denylist and pending second-factor challenges. Both stores may share one
// Redis instance: every key carries a store-specific prefix, and TTLs are
// attached at write time so entries expire server-side.
package redis
