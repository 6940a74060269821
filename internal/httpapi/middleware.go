// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

// requestIDKey is the context key for the per-request id.
type requestIDKey struct{}

// requestIDHeader carries the request id back to the client.
const requestIDHeader = "X-Request-ID"

// RequestID returns the request id from ctx, or "" if none was assigned.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware tags each request with a fresh ULID. The id is echoed
// in the response header and attached to every log line the handlers emit,
// so a client-reported failure can be matched to its server-side trace.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
