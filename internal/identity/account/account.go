// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package account defines the user identity record and its persistence
contract, plus the self-service and administrative operations over it.

# Architecture

This layer is the "Truth" of the system. The [User] entity is mutated only
through the auth flows, the OAuth linker, and the operations in this
package; every other package holds it read-only.
*/
package account

import (
	"time"

	"github.com/nvquang/altair/internal/identity/rbac"
)

// # Domain Entities

// User represents a registered account.
//
// PasswordHash is empty for OAuth-only accounts. Identities maps provider
// name to the external ID at that provider; each (provider, externalID)
// pair is unique across all users.
type User struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	PasswordHash      string            `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName       string            `json:"display_name"`
	Role              rbac.Role         `json:"role"`
	DirectPermissions []string          `json:"direct_permissions,omitempty"`
	Identities        map[string]string `json:"identities,omitempty"`
	IsVerified        bool              `json:"is_verified"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         *time.Time        `json:"-"`
}

// HasPassword reports whether the account can authenticate with a password.
func (user *User) HasPassword() bool {
	return user.PasswordHash != ""
}

// ExternalID returns the account's external ID at the given provider, if
// linked.
func (user *User) ExternalID(provider string) (string, bool) {
	id, ok := user.Identities[provider]
	return id, ok
}

// # Field Identifiers

// Global field names for validation and identity mapping in the account domain.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "display_name"
	FieldRole        = "role"
	FieldPermissions = "permissions"
	FieldCode        = "code"
	FieldUser        = "user"
	FieldMessage     = "message"
)
