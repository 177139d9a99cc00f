// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package session implements opaque-token session lifecycle management.

A session is proof of authentication: created by password login, OAuth login
or account activation, and destroyed by logout, revocation, cascading
invalidation or natural expiry.

# Token Handling

The bearer token handed to the client is 32 bytes of cryptographic
randomness, base64url encoded. Only its SHA-256 hash is ever persisted, so a
database leak does not leak usable credentials. The token carries no
structure and no claims.
*/
package session

import "time"

// # Domain Entities

// Session represents an active opaque-token session.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TokenHash  string    `json:"-"` // SHA-256 hex of the bearer token. Omitted for security.
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	IsValid    bool      `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Metadata carries the device context captured at session creation.
type Metadata struct {
	UserAgent string
	IPAddress string
}
