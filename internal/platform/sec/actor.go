// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package sec

// Actor is the authenticated principal attached to a request context after a
// successful session validation.
//
// # Why a dedicated type?
//
// Opaque session tokens carry no claims, so the middleware resolves the
// session and its owning account once per request and snapshots the fields
// authorization decisions need. Handlers never re-query identity state.
type Actor struct {
	// UserID is the owning account's ID.
	UserID string

	// Email is the account's canonical (normalized) email address.
	Email string

	// Role is the account's role slug. It is not guaranteed to be a system role.
	Role string

	// DirectPermissions are permission strings granted to the account itself,
	// on top of whatever its role declares.
	DirectPermissions []string

	// SessionID identifies the session this request authenticated with.
	// The by-id revocation path refuses to revoke it.
	SessionID string
}
