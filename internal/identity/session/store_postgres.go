// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvquang/altair/internal/platform/dberr"
)

// # Postgres Repository

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the
// session Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new session record into the iam.session table.

Parameters:
  - context: context.Context
  - session: *Session (Entity to persist)

Returns:
  - error: apperr.Conflict on token-hash collision, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO iam.session (
			id, accountid, tokenhash, useragent, ipaddress, isvalid, expiresat, lastusedat, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastUsedAt.IsZero() {
		session.LastUsedAt = session.CreatedAt
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.IsValid,
		session.ExpiresAt,
		session.LastUsedAt,
		session.CreatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "session")
	}

	return nil
}

/*
FindValidByTokenHash retrieves the live session matching the token hash.

Description: Lookup on the unique token-hash index, filtered to valid and
unexpired rows. Missing, invalidated and expired sessions are all the same
single NotFound outcome.

Parameters:
  - context: context.Context
  - tokenHash: string
  - now: time.Time

Returns:
  - *Session: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindValidByTokenHash(context context.Context, tokenHash string, now time.Time) (*Session, error) {
	const query = `
		SELECT id, accountid, tokenhash, useragent, ipaddress, isvalid, expiresat, lastusedat, createdat
		FROM iam.session
		WHERE tokenhash = $1 AND isvalid = TRUE AND expiresat > $2`

	record := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash, now).Scan(
		&record.ID,
		&record.UserID,
		&record.TokenHash,
		&record.UserAgent,
		&record.IPAddress,
		&record.IsValid,
		&record.ExpiresAt,
		&record.LastUsedAt,
		&record.CreatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "session")
	}

	return record, nil
}

/*
TouchLastUsed refreshes the session's last-used timestamp.

Parameters:
  - context: context.Context
  - sessionID: string
  - usedAt: time.Time

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) TouchLastUsed(context context.Context, sessionID string, usedAt time.Time) error {
	const query = `
		UPDATE iam.session
		SET lastusedat = $2
		WHERE id = $1`

	if _, err := repository.pool.Exec(context, query, sessionID, usedAt); err != nil {
		return dberr.Wrap(err, "session")
	}

	return nil
}

/*
InvalidateByTokenHash marks the matching valid session invalid.

Description: The isvalid predicate makes the call idempotent; a second
invocation matches zero rows and reports false.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - bool: true if a session flipped from valid to invalid
  - error: Persistence failures
*/
func (repository *PostgresRepository) InvalidateByTokenHash(context context.Context, tokenHash string) (bool, error) {
	const query = `
		UPDATE iam.session
		SET isvalid = FALSE
		WHERE tokenhash = $1 AND isvalid = TRUE`

	tag, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return false, dberr.Wrap(err, "session")
	}

	return tag.RowsAffected() > 0, nil
}

/*
InvalidateAllForUser marks every valid session of the user invalid.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: number of sessions invalidated
  - error: Persistence failures
*/
func (repository *PostgresRepository) InvalidateAllForUser(context context.Context, userID string) (int64, error) {
	const query = `
		UPDATE iam.session
		SET isvalid = FALSE
		WHERE accountid = $1 AND isvalid = TRUE`

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return 0, dberr.Wrap(err, "session")
	}

	return tag.RowsAffected(), nil
}

/*
InvalidateAllExcept marks every valid session of the user invalid except the
one matching keepTokenHash.

Parameters:
  - context: context.Context
  - userID: string
  - keepTokenHash: string

Returns:
  - int64: number of sessions invalidated
  - error: Persistence failures
*/
func (repository *PostgresRepository) InvalidateAllExcept(context context.Context, userID, keepTokenHash string) (int64, error) {
	const query = `
		UPDATE iam.session
		SET isvalid = FALSE
		WHERE accountid = $1 AND tokenhash <> $2 AND isvalid = TRUE`

	tag, err := repository.pool.Exec(context, query, userID, keepTokenHash)
	if err != nil {
		return 0, dberr.Wrap(err, "session")
	}

	return tag.RowsAffected(), nil
}

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
func (repository *PostgresRepository) InvalidateByID(context context.Context, sessionID, ownerUserID string) (bool, error) {
	const query = `
		UPDATE iam.session
		SET isvalid = FALSE
		WHERE id = $1 AND accountid = $2 AND isvalid = TRUE`

	tag, err := repository.pool.Exec(context, query, sessionID, ownerUserID)
	if err != nil {
		return false, dberr.Wrap(err, "session")
	}

	return tag.RowsAffected() > 0, nil
}

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
func (repository *PostgresRepository) ListActiveForUser(context context.Context, userID string, now time.Time) ([]Session, error) {
	const query = `
		SELECT id, accountid, tokenhash, useragent, ipaddress, isvalid, expiresat, lastusedat, createdat
		FROM iam.session
		WHERE accountid = $1 AND isvalid = TRUE AND expiresat > $2
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, query, userID, now)
	if err != nil {
		return nil, dberr.Wrap(err, "session")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var record Session
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.TokenHash,
			&record.UserAgent,
			&record.IPAddress,
			&record.IsValid,
			&record.ExpiresAt,
			&record.LastUsedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "session")
		}
		sessions = append(sessions, record)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "session")
	}

	return sessions, nil
}
