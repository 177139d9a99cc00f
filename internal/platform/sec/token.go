// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

// Package sec provides cryptographic primitives for the identity core.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token generation,
// constant-time comparison) from the domain logic. Domain packages consume it
// directly; it depends on nothing above the standard library and x/crypto.
package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// # Opaque Tokens

// GenerateOpaqueToken returns a URL-safe random bearer token of byteLength
// random bytes. The token carries no embedded structure or decodable claims.
func GenerateOpaqueToken(byteLength int) (string, error) {
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Only this digest is ever persisted; a database leak does not expose live
// bearer credentials.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// # One-Time Codes

// GenerateNumericCode returns a zero-padded numeric code of the given width
// drawn from a cryptographically secure source.
func GenerateNumericCode(digits int) (string, error) {
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// ConstantTimeEquals compares two strings without leaking the mismatch
// position through timing.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
