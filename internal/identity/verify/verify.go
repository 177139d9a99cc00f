// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package verify implements the one-time-code state machine shared by the
registration-activation and password-reset flows.

A pending verification is a short-lived, attempt-limited record holding a
hashed numeric code plus the opaque payload needed to complete the deferred
action. States run NONE → PENDING → {CONSUMED, EXPIRED, EXHAUSTED}; every
terminal state deletes the record, so the machine always collapses back to
NONE and a later probe observes NotFound rather than leaking attempt counts.
*/
package verify

import "time"

// Kind identifies which flow a pending verification belongs to. At most one
// live record exists per (email, kind).
type Kind string

const (
	// KindRegistration holds a pre-hashed password awaiting account activation.
	KindRegistration Kind = "registration"
	// KindPasswordReset holds a pre-hashed replacement password.
	KindPasswordReset Kind = "password_reset"
)

// Record is the persisted shape of a pending verification. The plaintext
// code never appears here; only its hash is stored.
type Record struct {
	Email       string
	Kind        Kind
	CodeHash    string
	Payload     string
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
}

// # Verification Outcomes

// Outcome tags the result of a verify call. Expiry, exhaustion and absence
// are distinct outcomes even though their side effects converge, because
// user-facing messaging differs.
type Outcome int

const (
	// OutcomeSuccess: the code matched; the record is consumed.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalid: wrong code; attempts remain.
	OutcomeInvalid
	// OutcomeExpired: the record outlived its TTL and was deleted.
	OutcomeExpired
	// OutcomeExhausted: the attempt limit was reached and the record deleted.
	OutcomeExhausted
	// OutcomeNotFound: no pending record exists for (email, kind).
	OutcomeNotFound
)

// Result is the tagged union returned by verify. Callers switch on Outcome;
// Payload is set only for OutcomeSuccess and Remaining only for
// OutcomeInvalid.
type Result struct {
	Outcome   Outcome
	Payload   string
	Remaining int
}
