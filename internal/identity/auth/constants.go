// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package auth

// # Field Identifiers

// Field names referenced by request validation and response payloads.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldNewPassword     = "new_password"
	FieldCurrentPassword = "current_password"
	FieldDisplayName     = "display_name"
	FieldCode            = "code"
	FieldKind            = "kind"
	FieldProvider        = "provider"
	FieldState           = "state"
	FieldMessage         = "message"
	FieldToken           = "token"
	FieldUser            = "user"
	FieldExpiresAt       = "expires_at"
)

// Password policy bounds. The upper bound tracks bcrypt's 72-byte input
// limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)
