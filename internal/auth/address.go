// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// addressRegex approximates RFC 5322 addr-spec syntax: a non-empty local
// part without whitespace or additional '@', then a domain of dot-separated
// labels. Deliberately stricter than the RFC (no quoted locals, no address
// literals) - those never appear in registered identities.
var addressRegex = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)+$`)

// Address is a validated, normalized identity address (email-shaped).
// The zero value is invalid; construct through ParseAddress.
// Equality is by normalized value, so Address is usable as a map key.
type Address struct {
	value string
}

// ParseAddress validates and normalizes an identity address.
// Normalization lowercases the whole address; two addresses differing only
// in case compare equal after parsing.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Address{}, oops.Code("AUTH_INVALID_ADDRESS").Errorf("address cannot be empty")
	}
	if !addressRegex.MatchString(trimmed) {
		return Address{}, oops.Code("AUTH_INVALID_ADDRESS").Errorf("malformed address")
	}
	return Address{value: strings.ToLower(trimmed)}, nil
}

// String returns the normalized address.
func (a Address) String() string {
	return a.value
}

// IsZero reports whether the address is the invalid zero value.
func (a Address) IsZero() bool {
	return a.value == ""
}
