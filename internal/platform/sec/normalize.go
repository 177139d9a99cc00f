// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package sec

import (
	"strings"

	"golang.org/x/text/secure/precis"
	"golang.org/x/text/unicode/norm"
)

// # Identifier Normalization
//
// Emails are unique keys in the account store, so every lookup and every write
// must agree on a single canonical form. Normalization happens exactly once,
// at the service boundary — storage never sees a raw address.

// NormalizeEmail lowercases and NFC-normalizes an email address.
//
// The local part is deliberately NOT stripped of dots or plus-suffixes:
// "a.b+tag@x.com" and "ab@x.com" remain distinct accounts.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = norm.NFC.String(email)
	return strings.ToLower(email)
}

// NormalizeDisplayName applies the PRECIS FreeformClass to a user-supplied
// display name, rejecting bidi-spoofing and non-printable input by returning
// the trimmed original when enforcement fails.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	normalized, err := precis.NewFreeform().String(name)
	if err != nil {
		return name
	}
	return normalized
}
