// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/constants"
	"github.com/nvquang/altair/internal/platform/sec"
	"github.com/nvquang/altair/pkg/uuidv7"
)

// # Session Manager

// Manager owns the session lifecycle on top of a [Repository].
type Manager struct {
	repository Repository
	logger     *slog.Logger
	ttl        time.Duration
	now        func() time.Time
	syncTouch  bool
}

// Option customizes Manager construction.
type Option func(*Manager)

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(manager *Manager) {
		manager.now = now
	}
}

// WithSyncTouch makes the last-used refresh synchronous. Tests use this to
// observe the touch deterministically.
func WithSyncTouch() Option {
	return func(manager *Manager) {
		manager.syncTouch = true
	}
}

// NewManager creates a session Manager. A non-positive ttl falls back to the
// default session TTL.
func NewManager(repository Repository, ttl time.Duration, logger *slog.Logger, options ...Option) *Manager {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}

	manager := &Manager{
		repository: repository,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
	}

	for _, option := range options {
		option(manager)
	}

	return manager
}

/*
Create mints a new session for the user and returns the opaque bearer token.

# Flow
 1. Generate a cryptographically random token; persist only its hash.
 2. Insert the record with expiresat = now + ttl.
 3. On a token-hash collision, retry once with a fresh token. A second
    collision is treated as an internal fault, not a domain outcome.

# Parameters
  - ctx: context.Context
  - userID: Owning account ID.
  - meta: Device context captured from the request.

# Returns
  - string: The plaintext bearer token. It is never persisted.
  - *Session: The created record.
  - error: apperr.Internal on generation or persistence failure.
*/
func (manager *Manager) Create(ctx context.Context, userID string, meta Metadata) (string, *Session, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := sec.GenerateOpaqueToken(constants.SessionTokenLength)
		if err != nil {
			return "", nil, apperr.Internal(fmt.Errorf("session_token_generate_failed: %w", err))
		}

		now := manager.now()
		record := &Session{
			ID:         uuidv7.New(),
			UserID:     userID,
			TokenHash:  sec.HashToken(token),
			UserAgent:  meta.UserAgent,
			IPAddress:  meta.IPAddress,
			IsValid:    true,
			ExpiresAt:  now.Add(manager.ttl),
			LastUsedAt: now,
			CreatedAt:  now,
		}

		err = manager.repository.Create(ctx, record)
		if err == nil {
			return token, record, nil
		}

		// A hash collision means the token is unusable, not that the
		// operation failed. Loop once with a fresh token.
		if apperr.IsConflict(err) {
			manager.logger.WarnContext(ctx, "session_token_collision", slog.String("user_id", userID))
			continue
		}

		return "", nil, err
	}

	return "", nil, apperr.Internal(errors.New("session_token_collision_persisted_after_retry"))
}

/*
Validate resolves a bearer token to its live session.

# Flow
 1. Hash the token and look up a valid, unexpired record.
 2. On a hit, refresh lastusedat best-effort. The refresh never extends
    expiry and never blocks or fails the authentication result.
 3. On any miss the caller gets one indistinguishable unauthenticated
    outcome: not-found, expired and invalidated are the same answer.

# Parameters
  - ctx: context.Context
  - token: The opaque bearer token.

# Returns
  - *Session: The live session.
  - error: apperr.Unauthorized for every miss.
*/
func (manager *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	record, err := manager.repository.FindValidByTokenHash(ctx, sec.HashToken(token), manager.now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid or expired session")
		}
		return nil, err
	}

	manager.touchLastUsed(ctx, record.ID)

	return record, nil
}

// touchLastUsed refreshes the last-used timestamp, asynchronously unless the
// manager was built with WithSyncTouch.
func (manager *Manager) touchLastUsed(ctx context.Context, sessionID string) {
	usedAt := manager.now()

	if manager.syncTouch {
		if err := manager.repository.TouchLastUsed(ctx, sessionID, usedAt); err != nil {
			manager.logger.WarnContext(ctx, "session_touch_failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	// Detached from the request lifecycle so a slow write cannot block the
	// caller's authentication result.
	background := context.WithoutCancel(ctx)
	go func() {
		touchCtx, cancel := context.WithTimeout(background, 5*time.Second)
		defer cancel()

		if err := manager.repository.TouchLastUsed(touchCtx, sessionID, usedAt); err != nil {
			manager.logger.Warn("session_touch_failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

/*
Invalidate marks the session carrying the token invalid.

It is idempotent: the first call reports true, any later call reports false
without error.
*/
func (manager *Manager) Invalidate(ctx context.Context, token string) (bool, error) {
	return manager.repository.InvalidateByTokenHash(ctx, sec.HashToken(token))
}

/*
InvalidateAllForUser kills every valid session of the user.

Used on deactivation, role change and deletion. Returns the number of
sessions invalidated.
*/
func (manager *Manager) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	return manager.repository.InvalidateAllForUser(ctx, userID)
}

/*
InvalidateAllExcept kills every valid session of the user except the one
carrying keepToken.

Used after a password change so the initiating session survives.
*/
func (manager *Manager) InvalidateAllExcept(ctx context.Context, userID, keepToken string) (int64, error) {
	return manager.repository.InvalidateAllExcept(ctx, userID, sec.HashToken(keepToken))
}

/*
ListActive returns the user's live sessions, newest first.
*/
func (manager *Manager) ListActive(ctx context.Context, userID string) ([]Session, error) {
	return manager.repository.ListActiveForUser(ctx, userID, manager.now())
}

/*
RevokeByID invalidates one session by ID on behalf of its owner.

# Flow
 1. The caller's current session can never be revoked through this path;
    only logout may end it. This prevents accidental self-lockout
    mid-request.
 2. Ownership is enforced in the store predicate, so revoking another
    user's session reports NotFound rather than leaking its existence.

# Parameters
  - ctx: context.Context
  - ownerUserID: The acting user.
  - sessionID: The session to revoke.
  - currentSessionID: The session authenticating this request.

# Returns
  - error: apperr.Forbidden for the current session, apperr.NotFound when
    no matching valid session exists.
*/
func (manager *Manager) RevokeByID(ctx context.Context, ownerUserID, sessionID, currentSessionID string) error {
	if sessionID == currentSessionID {
		return apperr.Forbidden("Current session cannot be revoked; use logout")
	}

	revoked, err := manager.repository.InvalidateByID(ctx, sessionID, ownerUserID)
	if err != nil {
		return err
	}
	if !revoked {
		return apperr.NotFound("Session not found")
	}

	return nil
}
