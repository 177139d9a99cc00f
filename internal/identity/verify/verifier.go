// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/constants"
	"github.com/nvquang/altair/internal/platform/mailer"
	"github.com/nvquang/altair/internal/platform/sec"
)

// # One-Time Code Verifier

// Verifier drives the pending-verification state machine on top of a
// [Repository] and an outbound [mailer.CodeSender].
type Verifier struct {
	repository   Repository
	sender       mailer.CodeSender
	logger       *slog.Logger
	ttl          time.Duration
	maxAttempts  int
	resendWindow time.Duration
	now          func() time.Time
}

// Option customizes Verifier construction.
type Option func(*Verifier)

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(verifier *Verifier) {
		verifier.now = now
	}
}

// NewVerifier creates a Verifier. Non-positive settings fall back to the
// platform defaults.
func NewVerifier(repository Repository, sender mailer.CodeSender, ttl time.Duration, maxAttempts int, resendWindow time.Duration, logger *slog.Logger, options ...Option) *Verifier {
	if ttl <= 0 {
		ttl = constants.DefaultCodeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultCodeMaxAttempts
	}
	if resendWindow <= 0 {
		resendWindow = constants.DefaultResendWindow
	}

	verifier := &Verifier{
		repository:   repository,
		sender:       sender,
		logger:       logger,
		ttl:          ttl,
		maxAttempts:  maxAttempts,
		resendWindow: resendWindow,
		now:          time.Now,
	}

	for _, option := range options {
		option(verifier)
	}

	return verifier
}

/*
Issue generates a one-time code for (email, kind), stores its hash alongside
the payload, and delivers the code by mail.

# Flow
 1. Claim the resend throttle slot; a claim inside the window is rejected
    with RateLimited and nothing else happens.
 2. Generate a fixed-width numeric code from a cryptographically secure
    source. Only its hash is persisted.
 3. Overwrite any existing record for (email, kind) in place. Re-issue
    resets attempts and expiry, so repeated resends never accumulate state.
 4. Dispatch the code. A delivery failure propagates to the caller; the
    pending record survives it, so a later resend can still succeed.

# Parameters
  - ctx: context.Context
  - email: Normalized subject address.
  - kind: Flow discriminator.
  - payload: Opaque data returned verbatim on success. May itself carry
    secrets (e.g. a pre-hashed password) and is never logged.

# Returns
  - error: apperr.RateLimited inside the resend window, apperr.Internal on
    generation, persistence or dispatch failure.
*/
func (verifier *Verifier) Issue(ctx context.Context, email string, kind Kind, payload string) error {
	allowed, err := verifier.repository.ClaimResendSlot(ctx, email, kind, verifier.resendWindow)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.RateLimited(int(verifier.resendWindow.Seconds()))
	}

	code, err := sec.GenerateNumericCode(constants.CodeDigits)
	if err != nil {
		return apperr.Internal(fmt.Errorf("verify_code_generate_failed: %w", err))
	}

	record := Record{
		Email:       email,
		Kind:        kind,
		CodeHash:    sec.HashToken(code),
		Payload:     payload,
		Attempts:    0,
		MaxAttempts: verifier.maxAttempts,
		ExpiresAt:   verifier.now().Add(verifier.ttl),
	}

	if err := verifier.repository.Put(ctx, record, verifier.ttl); err != nil {
		return err
	}

	if err := verifier.sender.SendCode(ctx, email, code, mailer.CodeKind(kind)); err != nil {
		// The record stays; the user can request a resend once the window
		// reopens. Without this error they would never learn the code was
		// not sent.
		verifier.logger.ErrorContext(ctx, "verify_code_dispatch_failed",
			slog.String("email", email),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return apperr.Internal(fmt.Errorf("verify_code_dispatch_failed: %w", err))
	}

	return nil
}

/*
Resend re-issues the code for an existing pending record, keeping its
payload. The record's attempts and expiry reset, same as a fresh issue.

# Parameters
  - ctx: context.Context
  - email: Normalized subject address.
  - kind: Flow discriminator.

# Returns
  - error: apperr.NotFound when nothing is pending, apperr.RateLimited
    inside the resend window, or Issue's failures.
*/
func (verifier *Verifier) Resend(ctx context.Context, email string, kind Kind) error {
	record, err := verifier.repository.Get(ctx, email, kind)
	if err != nil {
		return err
	}

	if verifier.now().After(record.ExpiresAt) {
		if err := verifier.repository.Delete(ctx, email, kind); err != nil {
			return err
		}
		return apperr.NotFound("Verification")
	}

	return verifier.Issue(ctx, email, kind, record.Payload)
}

/*
Verify checks a submitted code against the pending record for (email, kind).

# Flow
 1. Absent record → NotFound.
 2. Past expiry → delete, Expired. Code correctness is irrelevant.
 3. Attempts already at the limit → delete, Exhausted. This guards the
    window where a concurrent guess raced the counter.
 4. Hash mismatch → atomic increment. Reaching the limit deletes the record
    and reports Exhausted; otherwise Invalid with the remaining budget.
 5. Hash match (constant-time compare) → delete, Success with the payload.

Every terminal outcome deletes the record, so a follow-up call observes
NotFound and leaks nothing.

# Parameters
  - ctx: context.Context
  - email: Normalized subject address.
  - kind: Flow discriminator.
  - code: The submitted numeric code.

# Returns
  - Result: Tagged outcome; see [Result].
  - error: Persistence failures only. Domain outcomes are never errors.
*/
func (verifier *Verifier) Verify(ctx context.Context, email string, kind Kind, code string) (Result, error) {
	record, err := verifier.repository.Get(ctx, email, kind)
	if err != nil {
		if apperr.IsNotFound(err) {
			return Result{Outcome: OutcomeNotFound}, nil
		}
		return Result{}, err
	}

	if verifier.now().After(record.ExpiresAt) {
		if err := verifier.repository.Delete(ctx, email, kind); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeExpired}, nil
	}

	if record.Attempts >= record.MaxAttempts {
		if err := verifier.repository.Delete(ctx, email, kind); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeExhausted}, nil
	}

	if !sec.ConstantTimeEquals(sec.HashToken(code), record.CodeHash) {
		attempts, err := verifier.repository.IncrementAttempts(ctx, email, kind)
		if err != nil {
			return Result{}, err
		}

		if attempts >= record.MaxAttempts {
			if err := verifier.repository.Delete(ctx, email, kind); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeExhausted}, nil
		}

		return Result{Outcome: OutcomeInvalid, Remaining: record.MaxAttempts - attempts}, nil
	}

	if err := verifier.repository.Delete(ctx, email, kind); err != nil {
		return Result{}, err
	}

	return Result{Outcome: OutcomeSuccess, Payload: record.Payload}, nil
}
