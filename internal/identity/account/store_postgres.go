// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package account

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvquang/altair/internal/platform/dberr"
)

// # Postgres Repository

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the
// account Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, email, passwordhash, displayname, role, directpermissions, isverified, isactive, createdat, updatedat`

// scanUser hydrates a User from a row carrying userColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.DirectPermissions,
		&user.IsVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// loadIdentities hydrates the provider→externalID map for a user.
func (repository *PostgresRepository) loadIdentities(context context.Context, user *User) error {
	const query = `
		SELECT provider, externalid
		FROM iam.account_identity
		WHERE accountid = $1`

	rows, err := repository.pool.Query(context, query, user.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	identities := make(map[string]string)
	for rows.Next() {
		var provider, externalID string
		if err := rows.Scan(&provider, &externalID); err != nil {
			return err
		}
		identities[provider] = externalID
	}
	if err := rows.Err(); err != nil {
		return err
	}

	user.Identities = identities
	return nil
}

/*
Create persists a new account and its pre-linked identities in one
transaction.

Description: The email and (provider, externalid) uniqueness constraints
fire here; a violation surfaces as apperr.Conflict so the OAuth linker can
retry the race as a fresh lookup.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on uniqueness violation, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	const insertAccount = `
		INSERT INTO iam.account (
			id, email, passwordhash, displayname, role, directpermissions, isverified, isactive, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	const insertIdentity = `
		INSERT INTO iam.account_identity (provider, externalid, accountid, createdat)
		VALUES ($1, $2, $3, $4)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "account")
	}
	defer func() { _ = transaction.Rollback(context) }()

	_, err = transaction.Exec(context, insertAccount,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.DirectPermissions,
		user.IsVerified,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "account")
	}

	for provider, externalID := range user.Identities {
		if _, err := transaction.Exec(context, insertIdentity, provider, externalID, user.ID, now); err != nil {
			return dberr.Wrap(err, "account identity")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
FindByID retrieves a non-deleted account by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated entity including linked identities
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM iam.account
		WHERE id = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "account")
	}

	if err := repository.loadIdentities(context, user); err != nil {
		return nil, dberr.Wrap(err, "account identity")
	}

	return user, nil
}

/*
FindByEmail retrieves a non-deleted account by its normalized email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated entity including linked identities
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM iam.account
		WHERE email = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "account")
	}

	if err := repository.loadIdentities(context, user); err != nil {
		return nil, dberr.Wrap(err, "account identity")
	}

	return user, nil
}

/*
FindByIdentity retrieves the account linked to (provider, externalID).

Parameters:
  - context: context.Context
  - provider: string
  - externalID: string

Returns:
  - *User: Hydrated entity including linked identities
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByIdentity(context context.Context, provider, externalID string) (*User, error) {
	const query = `
		SELECT a.id, a.email, a.passwordhash, a.displayname, a.role, a.directpermissions, a.isverified, a.isactive, a.createdat, a.updatedat
		FROM iam.account a
		JOIN iam.account_identity i ON i.accountid = a.id
		WHERE i.provider = $1 AND i.externalid = $2 AND a.deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, provider, externalID))
	if err != nil {
		return nil, dberr.Wrap(err, "account")
	}

	if err := repository.loadIdentities(context, user); err != nil {
		return nil, dberr.Wrap(err, "account identity")
	}

	return user, nil
}

/*
Update persists changes to the mutable profile fields.

Parameters:
  - context: context.Context
  - user: *User (Hydrated entity with changes)

Returns:
  - error: apperr.Conflict on email collision, or database errors
*/
func (repository *PostgresRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE iam.account
		SET email = $2, displayname = $3, isverified = $4, updatedat = $5
		WHERE id = $1 AND deletedat IS NULL`

	user.UpdatedAt = time.Now()

	if _, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.IsVerified,
		user.UpdatedAt,
	); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
UpdatePassword replaces only the account's password hash.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE iam.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, userID, newHash, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
UpdateRole replaces the account's role slug.

Parameters:
  - context: context.Context
  - userID: string
  - role: string

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) UpdateRole(context context.Context, userID, role string) error {
	const query = `
		UPDATE iam.account
		SET role = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, userID, role, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
UpdateDirectPermissions replaces the account's direct permission grants.

Parameters:
  - context: context.Context
  - userID: string
  - permissions: []string

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) UpdateDirectPermissions(context context.Context, userID string, permissions []string) error {
	const query = `
		UPDATE iam.account
		SET directpermissions = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, userID, permissions, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
SetActive flips the account's active flag.

Parameters:
  - context: context.Context
  - userID: string
  - active: bool

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) SetActive(context context.Context, userID string, active bool) error {
	const query = `
		UPDATE iam.account
		SET isactive = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, userID, active, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
LinkIdentity attaches (provider, externalID) to the account.

Description: The primary key on (provider, externalid) turns a concurrent
link into apperr.Conflict, which the OAuth linker resolves by re-running its
lookup.

Parameters:
  - context: context.Context
  - userID: string
  - provider: string
  - externalID: string

Returns:
  - error: apperr.Conflict when already linked elsewhere, or database errors
*/
func (repository *PostgresRepository) LinkIdentity(context context.Context, userID, provider, externalID string) error {
	const query = `
		INSERT INTO iam.account_identity (provider, externalid, accountid, createdat)
		VALUES ($1, $2, $3, $4)`

	if _, err := repository.pool.Exec(context, query, provider, externalID, userID, time.Now()); err != nil {
		return dberr.Wrap(err, "account identity")
	}

	return nil
}

/*
MarkVerified updates the account's status to isverified = true.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) MarkVerified(context context.Context, userID string) error {
	const query = `
		UPDATE iam.account
		SET isverified = TRUE, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, userID, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
SoftDelete marks the account as deleted without removing the row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Database errors
*/
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	const query = `
		UPDATE iam.account
		SET deletedat = $2, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	if _, err := repository.pool.Exec(context, query, id, time.Now()); err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}
