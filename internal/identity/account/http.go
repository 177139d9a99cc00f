// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/platform/middleware"
	requestutil "github.com/nvquang/altair/internal/platform/request"
	"github.com/nvquang/altair/internal/platform/respond"
	"github.com/nvquang/altair/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements account self-service and administrative endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// MeRoutes returns the self-service routes. All require authentication.
//
// # Endpoints
//   - GET    /             : Own profile.
//   - PATCH  /             : Update own profile.
//   - GET    /permissions  : Effective permission set.
//   - GET    /sessions     : Active sessions, current one flagged.
//   - DELETE /sessions     : Revoke every other session.
//   - DELETE /sessions/{sessionID} : Revoke one session by ID.
func (handler *Handler) MeRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.getProfile)
	router.Patch("/", handler.updateProfile)
	router.Get("/permissions", handler.permissions)
	router.Get("/sessions", handler.listSessions)
	router.Delete("/sessions", handler.revokeOtherSessions)
	router.Delete("/sessions/{sessionID}", handler.revokeSession)

	return router
}

// AdminRoutes returns the user-administration routes. The manager gate here
// is coarse; per-target hierarchy checks live in the service.
//
// # Endpoints
//   - GET    /{userID}             : Inspect a user.
//   - PUT    /{userID}/role        : Assign a role.
//   - PUT    /{userID}/permissions : Replace direct grants.
//   - PUT    /{userID}/status      : Activate or deactivate.
//   - DELETE /{userID}             : Soft-delete.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)
	router.Use(middleware.RequireRole(rbac.RoleManager))

	router.Get("/{userID}", handler.getUser)
	router.Put("/{userID}/role", handler.changeRole)
	router.Put("/{userID}/permissions", handler.setPermissions)
	router.Put("/{userID}/status", handler.setStatus)
	router.Delete("/{userID}", handler.deleteUser)

	return router
}

// # Request Payloads

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type setStatusRequest struct {
	Active *bool `json:"active"`
}

/*
GetProfile returns the authenticated user's own account.

GET /api/v1/me

Response:
  - 200: User: The full private profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), actor.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
UpdateProfile applies partial changes to the authenticated user's profile.

PATCH /api/v1/me

Request:
  - Body: updateProfileRequest (DisplayName; absent fields unchanged)

Response:
  - 200: User: The updated profile
  - 400: ErrInvalidJSON: Bad input or validation failure
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.DisplayName != nil {
		validator := &validate.Validator{}
		validator.MaxLen(FieldDisplayName, *input.DisplayName, 100)
		if err := validator.Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), actor.UserID, UpdateProfileInput{
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Permissions returns the authenticated user's effective permission set.

GET /api/v1/me/permissions

Response:
  - 200: []string: Sorted effective permissions
*/
func (handler *Handler) permissions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	set, err := handler.accountService.EffectivePermissions(request.Context(), actor.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, set.List())
}

/*
ListSessions returns the authenticated user's active sessions.

GET /api/v1/me/sessions

Response:
  - 200: []SessionInfo: Active sessions, current one flagged
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), actor.UserID, actor.SessionID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
RevokeSession terminates one of the authenticated user's sessions.

DELETE /api/v1/me/sessions/{sessionID}

Response:
  - 204: No Content: Session revoked
  - 403: ErrForbidden: Refusing to revoke the current session
  - 404: ErrNotFound: No such active session for this user
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "sessionID")

	validator := &validate.Validator{}
	validator.Required("session_id", sessionID).UUID("session_id", sessionID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeSession(request.Context(), actor.UserID, sessionID, actor.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
RevokeOtherSessions terminates every session except the current one.

DELETE /api/v1/me/sessions

Response:
  - 204: No Content: Other sessions revoked
*/
func (handler *Handler) revokeOtherSessions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.RevokeOtherSessions(request.Context(), actor.UserID, requestutil.BearerToken(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
GetUser returns another user's account, visibility permitting.

GET /api/v1/users/{userID}

Response:
  - 200: User: The target account
  - 404: ErrNotFound: Absent, or hidden from this actor
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.Param(request, "userID")

	user, err := handler.accountService.GetUser(request.Context(), actor, targetID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
ChangeRole assigns a new role to the target account.

PUT /api/v1/users/{userID}/role

Request:
  - Body: changeRoleRequest (Role)

Response:
  - 200: Message: Role assigned
  - 400: ErrValidation: Unassignable role or malformed slug
  - 403: ErrForbidden: Hierarchy violation
*/
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changeRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRole, input.Role).Slug(FieldRole, input.Role)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.Param(request, "userID")

	if err := handler.accountService.ChangeRole(request.Context(), actor, targetID, rbac.Role(input.Role)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Role assigned"})
}

/*
SetPermissions replaces the target's direct permission grants.

PUT /api/v1/users/{userID}/permissions

Request:
  - Body: setPermissionsRequest (Permissions)

Response:
  - 200: Message: Permissions replaced
  - 400: ErrValidation: Malformed permission string
  - 403: ErrForbidden: Hierarchy violation
*/
func (handler *Handler) setPermissions(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setPermissionsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	targetID := requestutil.Param(request, "userID")

	if err := handler.accountService.SetDirectPermissions(request.Context(), actor, targetID, input.Permissions); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Permissions replaced"})
}

/*
SetStatus activates or deactivates the target account.

PUT /api/v1/users/{userID}/status

Request:
  - Body: setStatusRequest (Active)

Response:
  - 200: Message: Status changed
  - 403: ErrForbidden: Hierarchy violation
*/
func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setStatusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Active == nil {
		respond.Error(writer, request, validate.RequiredError("active", "is required"))
		return
	}

	targetID := requestutil.Param(request, "userID")

	if err := handler.accountService.SetActive(request.Context(), actor, targetID, *input.Active); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Status changed"})
}

/*
DeleteUser soft-deletes the target account.

DELETE /api/v1/users/{userID}

Response:
  - 204: No Content: Account deleted
  - 403: ErrForbidden: Hierarchy violation
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.Param(request, "userID")

	if err := handler.accountService.DeleteUser(request.Context(), actor, targetID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
