// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	_ "embed"

	"github.com/samber/oops"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the identities table if it does not exist yet.
// Schema evolution beyond bootstrap is handled outside this service.
func EnsureSchema(ctx context.Context, pool poolIface) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return oops.Code("IDENTITY_SCHEMA_FAILED").
			With("operation", "ensure schema").
			Wrap(err)
	}
	return nil
}
