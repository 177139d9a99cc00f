// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package session

import (
	"context"
	"time"
)

// # Session Data Access

// Repository defines the data access contract for opaque-token sessions.
type Repository interface {

	/*
		Create persists a brand-new session record.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures, including token-hash uniqueness conflicts
	*/
	Create(context context.Context, session *Session) error

	/*
		FindValidByTokenHash returns the live session matching the token hash.
		A session is live when it is valid and not yet expired at the given
		instant.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - now: time.Time

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound when missing, invalidated or expired
	*/
	FindValidByTokenHash(context context.Context, tokenHash string, now time.Time) (*Session, error)

	/*
		TouchLastUsed refreshes the session's last-used timestamp. It never
		extends the expiry.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - usedAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	TouchLastUsed(context context.Context, sessionID string, usedAt time.Time) error

	/*
		InvalidateByTokenHash marks the matching valid session invalid.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - bool: true if a session flipped from valid to invalid
		  - error: Persistence failures
	*/
	InvalidateByTokenHash(context context.Context, tokenHash string) (bool, error)

	/*
		InvalidateAllForUser marks every valid session of the user invalid.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - int64: number of sessions invalidated
		  - error: Persistence failures
	*/
	InvalidateAllForUser(context context.Context, userID string) (int64, error)

	/*
		InvalidateAllExcept marks every valid session of the user invalid
		except the one matching keepTokenHash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - keepTokenHash: string

		Returns:
		  - int64: number of sessions invalidated
		  - error: Persistence failures
	*/
	InvalidateAllExcept(context context.Context, userID, keepTokenHash string) (int64, error)

	/*
		InvalidateByID marks one session invalid, scoped to its owner.

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - ownerUserID: string

		Returns:
		  - bool: true if a session flipped from valid to invalid
		  - error: Persistence failures
	*/
	InvalidateByID(context context.Context, sessionID, ownerUserID string) (bool, error)

	/*
		ListActiveForUser returns the user's live sessions, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - now: time.Time

		Returns:
		  - []Session: Live sessions
		  - error: Persistence failures
	*/
	ListActiveForUser(context context.Context, userID string, now time.Time) ([]Session, error)
}
