// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package account

import "context"

// # User Data Access

// Repository defines the data access contract for user accounts.
//
// Uniqueness of email (among non-deleted users) and of (provider,
// externalID) pairs is enforced by the storage layer and is the sole source
// of truth under concurrent creation; application-level check-then-create is
// advisory only.
type Repository interface {

	/*
		Create persists a brand-new account together with any pre-linked
		provider identities.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on email or identity uniqueness violation
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the non-deleted account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity including linked identities
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the non-deleted account with the given
		normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity including linked identities
		  - error: apperr.NotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByIdentity returns the account linked to (provider, externalID).

		Parameters:
		  - context: context.Context
		  - provider: string
		  - externalID: string

		Returns:
		  - *User: Hydrated entity including linked identities
		  - error: apperr.NotFound or storage failures
	*/
	FindByIdentity(context context.Context, provider, externalID string) (*User, error)

	/*
		Update persists changes to mutable profile fields (email, display
		name, verified flag).

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on email collision, or storage failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Storage failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		UpdateRole replaces the account's role slug.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string

		Returns:
		  - error: Storage failures
	*/
	UpdateRole(context context.Context, userID, role string) error

	/*
		UpdateDirectPermissions replaces the account's direct permission
		grants.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - permissions: []string

		Returns:
		  - error: Storage failures
	*/
	UpdateDirectPermissions(context context.Context, userID string, permissions []string) error

	/*
		SetActive flips the account's active flag.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - active: bool

		Returns:
		  - error: Storage failures
	*/
	SetActive(context context.Context, userID string, active bool) error

	/*
		LinkIdentity attaches (provider, externalID) to the account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - provider: string
		  - externalID: string

		Returns:
		  - error: apperr.Conflict when the identity is already linked
		    elsewhere, or storage failures
	*/
	LinkIdentity(context context.Context, userID, provider, externalID string) error

	/*
		MarkVerified updates the account's status to isverified = true.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Storage failures
	*/
	MarkVerified(context context.Context, userID string) error

	/*
		SoftDelete marks the account as deleted without removing the row.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Storage failures
	*/
	SoftDelete(context context.Context, id string) error
}
