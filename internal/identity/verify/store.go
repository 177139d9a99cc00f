// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package verify

import (
	"context"
	"time"
)

// # Pending Verification Data Access

// Repository defines the data access contract for pending verifications.
// Records are keyed by (email, kind).
type Repository interface {

	/*
		Put stores a pending verification, overwriting any existing record
		for the same (email, kind). Re-issue resets attempts and expiry.

		The record must remain readable for some time past codeTTL so the
		machine can report Expired instead of NotFound.

		Parameters:
		  - context: context.Context
		  - record: Record
		  - codeTTL: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Put(context context.Context, record Record, codeTTL time.Duration) error

	/*
		Get returns the pending record for (email, kind).

		Parameters:
		  - context: context.Context
		  - email: string
		  - kind: Kind

		Returns:
		  - *Record: Hydrated record
		  - error: apperr.NotFound when absent
	*/
	Get(context context.Context, email string, kind Kind) (*Record, error)

	/*
		IncrementAttempts atomically bumps the attempt counter and returns
		the new value. Atomicity is required so two concurrent wrong guesses
		both count.

		Parameters:
		  - context: context.Context
		  - email: string
		  - kind: Kind

		Returns:
		  - int: attempt count after the increment
		  - error: Persistence failures
	*/
	IncrementAttempts(context context.Context, email string, kind Kind) (int, error)

	/*
		Delete removes the pending record. Deleting an absent record is not
		an error.

		Parameters:
		  - context: context.Context
		  - email: string
		  - kind: Kind

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, email string, kind Kind) error

	/*
		ClaimResendSlot reserves the resend throttle slot for (email, kind).
		It reports false while a previous claim is still inside the window.

		Parameters:
		  - context: context.Context
		  - email: string
		  - kind: Kind
		  - window: time.Duration

		Returns:
		  - bool: true if the caller may send now
		  - error: Persistence failures
	*/
	ClaimResendSlot(context context.Context, email string, kind Kind, window time.Duration) (bool, error)
}
