// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory provides in-process store backends for single-node and
// test deployments. Each store serializes access with its own mutex; the
// mutex is the sole source of truth for the store's invariants, so these
// backends must not be shared across processes.
package memory
