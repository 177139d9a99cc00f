// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/sec"
	"github.com/nvquang/altair/pkg/pointer"
)

// # Service Layer

// Service orchestrates profile, authorization and session-transparency
// operations over user accounts.
//
// Administrative mutations are guarded by the role hierarchy: viewing is
// inclusive, mutation is strict, and every privilege-affecting change kills
// the target's sessions. A failed cascade is logged and retried out of band;
// it never rolls back the triggering change.
type Service struct {
	repository Repository
	sessions   *session.Manager
	catalog    *rbac.Catalog
	logger     *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(repository Repository, sessions *session.Manager, catalog *rbac.Catalog, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		sessions:   sessions,
		catalog:    catalog,
		logger:     logger,
	}
}

// cascadeInvalidate kills every session of the user, logging instead of
// failing on error. Security degrades gracefully rather than blocking a
// legitimate admin action.
func (service *Service) cascadeInvalidate(ctx context.Context, userID, reason string) {
	count, err := service.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		service.logger.ErrorContext(ctx, "session_cascade_failed",
			slog.String("user_id", userID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}

	service.logger.InfoContext(ctx, "session_cascade_completed",
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.Int64("count", count),
	)
}

// # Profile Management

// UpdateProfileInput carries the optional profile fields; nil means
// unchanged.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
}

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - *User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	user, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}

	return user, nil
}

/*
UpdateProfile applies the provided profile changes for the acting user.

Parameters:
  - ctx: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *User: The updated profile
  - error: Not found, validation or execution failures
*/
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error) {
	user, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	if input.DisplayName != nil {
		user.DisplayName = sec.NormalizeDisplayName(pointer.Val(input.DisplayName))
	}

	if err := service.repository.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	return user, nil
}

/*
EffectivePermissions resolves the user's effective permission set from role
grants plus direct grants.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - rbac.Set: De-duplicated effective set
  - error: Not found or execution failures
*/
func (service *Service) EffectivePermissions(ctx context.Context, userID string) (rbac.Set, error) {
	user, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_permissions_failed: %w", err)
	}

	return service.catalog.Resolve(user.Role, user.DirectPermissions), nil
}

// # Administrative Operations

/*
GetUser retrieves another user's account on behalf of an actor.

Description: Visibility follows the role hierarchy; an actor below the
target's level, or below topmost for custom-role targets, reads NotFound
rather than Forbidden so that hidden accounts do not leak their existence.

Parameters:
  - ctx: context.Context
  - actor: *sec.Actor
  - targetID: string

Returns:
  - *User: The target account
  - error: apperr.NotFound or execution failures
*/
func (service *Service) GetUser(ctx context.Context, actor *sec.Actor, targetID string) (*User, error) {
	target, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_user_failed: %w", err)
	}

	if !rbac.Role(actor.Role).CanView(target.Role) {
		return nil, apperr.NotFound("User")
	}

	return target, nil
}

/*
ChangeRole assigns a new role to the target account.

# Flow
 1. The topmost role can never be assigned here; it is granted out of band.
 2. The actor must sit strictly above the target (peers and self cannot be
    re-roled) and must be able to manage the new role.
 3. The change invalidates every session of the target so stale privileges
    cannot outlive the assignment. The cascade is best-effort.

# Parameters
  - ctx: context.Context
  - actor: *sec.Actor
  - targetID: string
  - newRole: string

# Returns
  - error: apperr.Forbidden on a hierarchy violation, apperr.ValidationError
    for the topmost role, or execution failures
*/
func (service *Service) ChangeRole(ctx context.Context, actor *sec.Actor, targetID string, newRole rbac.Role) error {
	if !newRole.IsAssignable() {
		return apperr.ValidationError("This role cannot be assigned", apperr.FieldError{
			Field:   FieldRole,
			Message: "not assignable through this API",
		})
	}

	target, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("account_service_change_role_failed: %w", err)
	}

	actorRole := rbac.Role(actor.Role)
	if !actorRole.CanModify(target.Role) || !actorRole.CanManage(newRole) {
		return apperr.Forbidden("Insufficient role to perform this assignment")
	}

	if err := service.repository.UpdateRole(ctx, targetID, string(newRole)); err != nil {
		return fmt.Errorf("account_service_change_role_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_role_changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
		slog.String("role", string(newRole)),
	)

	service.cascadeInvalidate(ctx, targetID, "role_change")

	return nil
}

/*
SetDirectPermissions replaces the target's direct permission grants.

Description: Permission strings are validated here, at the point of grant;
checks elsewhere accept any string.

Parameters:
  - ctx: context.Context
  - actor: *sec.Actor
  - targetID: string
  - permissions: []string

Returns:
  - error: apperr.ValidationError on a malformed string, apperr.Forbidden on
    a hierarchy violation, or execution failures
*/
func (service *Service) SetDirectPermissions(ctx context.Context, actor *sec.Actor, targetID string, permissions []string) error {
	for _, permission := range permissions {
		if !rbac.Permission(permission).Valid() {
			return apperr.ValidationError("Malformed permission string", apperr.FieldError{
				Field:   FieldPermissions,
				Message: fmt.Sprintf("invalid permission %q", permission),
			})
		}
	}

	target, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("account_service_set_permissions_failed: %w", err)
	}

	if !rbac.Role(actor.Role).CanModify(target.Role) {
		return apperr.Forbidden("Insufficient role to modify this user")
	}

	if err := service.repository.UpdateDirectPermissions(ctx, targetID, permissions); err != nil {
		return fmt.Errorf("account_service_set_permissions_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_permissions_changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
		slog.Int("count", len(permissions)),
	)

	service.cascadeInvalidate(ctx, targetID, "permissions_change")

	return nil
}

/*
SetActive activates or deactivates the target account.

Description: Deactivation kills every session of the target. Reactivation
does not resurrect them; the user signs in again.

Parameters:
  - ctx: context.Context
  - actor: *sec.Actor
  - targetID: string
  - active: bool

Returns:
  - error: apperr.Forbidden on a hierarchy violation, or execution failures
*/
func (service *Service) SetActive(ctx context.Context, actor *sec.Actor, targetID string, active bool) error {
	target, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("account_service_set_active_failed: %w", err)
	}

	if !rbac.Role(actor.Role).CanModify(target.Role) {
		return apperr.Forbidden("Insufficient role to modify this user")
	}

	if err := service.repository.SetActive(ctx, targetID, active); err != nil {
		return fmt.Errorf("account_service_set_active_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_active_changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
		slog.Bool("active", active),
	)

	if !active {
		service.cascadeInvalidate(ctx, targetID, "deactivation")
	}

	return nil
}

/*
DeleteUser soft-deletes the target account and kills its sessions.

Parameters:
  - ctx: context.Context
  - actor: *sec.Actor
  - targetID: string

Returns:
  - error: apperr.Forbidden on a hierarchy violation, or execution failures
*/
func (service *Service) DeleteUser(ctx context.Context, actor *sec.Actor, targetID string) error {
	target, err := service.repository.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("account_service_delete_user_failed: %w", err)
	}

	if !rbac.Role(actor.Role).CanModify(target.Role) {
		return apperr.Forbidden("Insufficient role to delete this user")
	}

	if err := service.repository.SoftDelete(ctx, targetID); err != nil {
		return fmt.Errorf("account_service_delete_user_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_deleted",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", targetID),
	)

	service.cascadeInvalidate(ctx, targetID, "deletion")

	return nil
}

// # Session Transparency

// SessionInfo provides a safety-mapped view of an active user session.
// It omits sensitive token hashes for transport.
type SessionInfo struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current"` // True if this session authenticates the current request
}

/*
ListSessions returns the user's active sessions with the current one
flagged.

Parameters:
  - ctx: context.Context
  - userID: string
  - currentSessionID: string

Returns:
  - []SessionInfo: Transport-safe session views
  - error: Execution failures
*/
func (service *Service) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := service.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, record := range sessions {
		infos = append(infos, SessionInfo{
			ID:         record.ID,
			UserAgent:  record.UserAgent,
			IPAddress:  record.IPAddress,
			CreatedAt:  record.CreatedAt,
			LastUsedAt: record.LastUsedAt,
			ExpiresAt:  record.ExpiresAt,
			IsCurrent:  record.ID == currentSessionID,
		})
	}

	return infos, nil
}

/*
RevokeSession terminates one of the user's sessions by ID.

Description: The current session is refused; ending it is what logout is
for.

Parameters:
  - ctx: context.Context
  - userID: string
  - sessionID: string
  - currentSessionID: string

Returns:
  - error: apperr.Forbidden for the current session, apperr.NotFound when
    absent, or execution failures
*/
func (service *Service) RevokeSession(ctx context.Context, userID, sessionID, currentSessionID string) error {
	if err := service.sessions.RevokeByID(ctx, userID, sessionID, currentSessionID); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "user_session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	return nil
}

/*
RevokeOtherSessions terminates every session except the current one.

Parameters:
  - ctx: context.Context
  - userID: string
  - currentToken: string

Returns:
  - error: Execution failures
*/
func (service *Service) RevokeOtherSessions(ctx context.Context, userID, currentToken string) error {
	if _, err := service.sessions.InvalidateAllExcept(ctx, userID, currentToken); err != nil {
		return fmt.Errorf("account_service_revoke_others_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_other_sessions_revoked", slog.String("user_id", userID))

	return nil
}
