// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvquang/altair/internal/identity/account"
	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/sec"
	"github.com/nvquang/altair/pkg/uuidv7"
)

// # Identity Linker

// Linker reconciles a provider profile against local accounts: match an
// already-linked identity, link onto an email-matched account, or create a
// fresh one.
//
// # Race Handling
//
// First-time logins can race across instances. The linker's lookups are
// advisory; the storage uniqueness constraints on email and on (provider,
// externalID) are the sole source of truth. An insert conflict means
// someone else just created or linked this identity, so the linker re-runs
// its lookups once instead of surfacing a failure.
type Linker struct {
	accounts account.Repository
	logger   *slog.Logger
}

// NewLinker constructs a Linker over the account repository.
func NewLinker(accounts account.Repository, logger *slog.Logger) *Linker {
	return &Linker{accounts: accounts, logger: logger}
}

// errLinkRace marks a uniqueness conflict raised by a concurrent create or
// link of the same identity. It triggers one fresh lookup pass and is never
// surfaced to the caller.
var errLinkRace = errors.New("oauth_link_race")

/*
Resolve maps a callback profile to exactly one local account.

# Flow
 1. An account already linked to (provider, externalID) wins. Mutable
    display fields are refreshed when they differ: the name always, the
    email only when the provider affirmatively verified it.
 2. Otherwise an account matching the normalized email gains the identity
    link. Linking requires the provider's affirmative email verification;
    an unverified match is a Conflict, never a silent link.
 3. Otherwise a fresh account is created with the default role. Its
    verified flag mirrors the provider's assertion and never defaults to
    true.

# Parameters
  - ctx: context.Context
  - profile: The provider identity snapshot.

# Returns
  - *account.User: The resolved local account.
  - error: apperr.ValidationError for a profile without email,
    apperr.Conflict for an unverified email match, or storage failures.
*/
func (linker *Linker) Resolve(ctx context.Context, profile *Profile) (*account.User, error) {
	if profile.Email == "" {
		return nil, apperr.ValidationError("Provider returned no email address", apperr.FieldError{
			Field:   account.FieldEmail,
			Message: "required",
		})
	}
	email := sec.NormalizeEmail(profile.Email)

	// One retry absorbs a concurrent create/link of the same identity.
	for attempt := 0; attempt < 2; attempt++ {
		user, err := linker.resolveOnce(ctx, profile, email)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, errLinkRace) && attempt == 0 {
			linker.logger.InfoContext(ctx, "oauth_link_race_retry",
				slog.String("provider", profile.Provider),
				slog.String("external_id", profile.ExternalID),
			)
			continue
		}
		return nil, err
	}

	return nil, apperr.Internal(errors.New("oauth_link_conflict_persisted_after_retry"))
}

// resolveOnce runs one pass of the match/link/create ladder.
func (linker *Linker) resolveOnce(ctx context.Context, profile *Profile, email string) (*account.User, error) {

	// ── 1. Existing Identity ──────────────────────────────────────────────
	user, err := linker.accounts.FindByIdentity(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		return linker.refreshProfile(ctx, user, profile, email)
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("oauth_identity_lookup_failed: %w", err)
	}

	// ── 2. Email Match ────────────────────────────────────────────────────
	user, err = linker.accounts.FindByEmail(ctx, email)
	if err == nil {
		return linker.linkIdentity(ctx, user, profile)
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("oauth_email_lookup_failed: %w", err)
	}

	// ── 3. Fresh Account ──────────────────────────────────────────────────
	return linker.createAccount(ctx, profile, email)
}

// refreshProfile updates mutable display fields on an already-linked
// account. A no-op refresh is not an error and skips the write.
func (linker *Linker) refreshProfile(ctx context.Context, user *account.User, profile *Profile, email string) (*account.User, error) {
	changed := false

	if name := sec.NormalizeDisplayName(profile.DisplayName); name != "" && name != user.DisplayName {
		user.DisplayName = name
		changed = true
	}
	if profile.Verified() && email != user.Email {
		user.Email = email
		changed = true
	}

	if !changed {
		return user, nil
	}

	if err := linker.accounts.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("oauth_profile_refresh_failed: %w", err)
	}

	return user, nil
}

// linkIdentity attaches the provider identity onto an email-matched
// account.
func (linker *Linker) linkIdentity(ctx context.Context, user *account.User, profile *Profile) (*account.User, error) {
	if !profile.Verified() {
		// Without the provider's affirmative assertion this would be an
		// account-takeover vector: anyone controlling an unverifying
		// provider account could claim an arbitrary address.
		return nil, apperr.Conflict("An account with this email already exists")
	}

	if err := linker.accounts.LinkIdentity(ctx, user.ID, profile.Provider, profile.ExternalID); err != nil {
		if apperr.IsConflict(err) {
			return nil, fmt.Errorf("%w: %w", errLinkRace, err)
		}
		return nil, err
	}
	if err := linker.accounts.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("oauth_mark_verified_failed: %w", err)
	}

	if user.Identities == nil {
		user.Identities = make(map[string]string)
	}
	user.Identities[profile.Provider] = profile.ExternalID
	user.IsVerified = true

	linker.logger.InfoContext(ctx, "oauth_identity_linked",
		slog.String("user_id", user.ID),
		slog.String("provider", profile.Provider),
	)

	return user, nil
}

// createAccount provisions a fresh account for a first-time OAuth login.
func (linker *Linker) createAccount(ctx context.Context, profile *Profile, email string) (*account.User, error) {
	user := &account.User{
		ID:          uuidv7.New(),
		Email:       email,
		DisplayName: sec.NormalizeDisplayName(profile.DisplayName),
		Role:        rbac.DefaultRole,
		Identities:  map[string]string{profile.Provider: profile.ExternalID},
		IsVerified:  profile.Verified(),
		IsActive:    true,
	}

	if err := linker.accounts.Create(ctx, user); err != nil {
		if apperr.IsConflict(err) {
			return nil, fmt.Errorf("%w: %w", errLinkRace, err)
		}
		return nil, err
	}

	linker.logger.InfoContext(ctx, "oauth_account_created",
		slog.String("user_id", user.ID),
		slog.String("provider", profile.Provider),
	)

	return user, nil
}
