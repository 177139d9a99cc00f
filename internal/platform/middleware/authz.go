// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/ctxutil"
	"github.com/nvquang/altair/internal/platform/respond"
	"github.com/nvquang/altair/internal/platform/sec"
)

// SessionAuthenticator defines the interface needed to resolve bearer tokens
// in middleware.
//
// # Why an interface?
//
// Defining SessionAuthenticator here decouples the middleware from the
// session manager implementation, allowing us to easily inject mocks during
// unit testing.
type SessionAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*sec.Actor, error)
}

// Authenticate extracts the opaque bearer token from the Authorization header
// and resolves it to an [*sec.Actor].
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, validate the session via [SessionAuthenticator].
//  4. Inject [*sec.Actor] into the request context for downstream use.
//
// # Parameters
//   - authenticator: The SessionAuthenticator instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(authenticator SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Session Validation ─────────────────────────────────────────
			token := parts[1]
			actor, err := authenticator.AuthenticateToken(request.Context(), token)
			if err != nil {
				// Missing, expired and invalidated sessions are all the same
				// single unauthenticated outcome.
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired session"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithActor(request.Context(), actor)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		actor := ctxutil.GetActor(request.Context())
		if actor == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user's role sits below the
// required hierarchy level.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically
// implies [RequireAuth] so you don't need to mount both.
func RequireRole(required rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			actor := ctxutil.GetActor(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if actor == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !rbac.Role(actor.Role).AtLeast(required) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient role"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequirePermission blocks requests unless the actor's effective permission
// set contains the named permission.
//
// The effective set is resolved per request from the actor's role grants and
// direct grants. Resolution is pure map work, so there is no caching layer.
func RequirePermission(catalog *rbac.Catalog, permission rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			actor := ctxutil.GetActor(request.Context())
			if actor == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			effective := catalog.Resolve(rbac.Role(actor.Role), actor.DirectPermissions)
			if !effective.Has(permission) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
