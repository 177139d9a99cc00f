// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// # Why it matters here
//
// The identity core leans on storage-level uniqueness constraints as the
// source of truth for "does this email / provider identity already exist"
// under concurrent writes. That only works if every repository maps SQLSTATE
// 23505 to a recognizable Conflict that services can branch on.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nvquang/altair/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Constraint violations
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case pgerrcode.ForeignKeyViolation:
			return apperr.Conflict(resource + " references a missing record")
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a raw Postgres unique-constraint
// violation (SQLSTATE 23505), before or after wrapping.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return apperr.IsConflict(err)
}
