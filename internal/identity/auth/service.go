// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nvquang/altair/internal/identity/account"
	"github.com/nvquang/altair/internal/identity/oauth"
	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/identity/verify"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/sec"
	"github.com/nvquang/altair/pkg/uuidv7"
)

// # Definitions & Constructors

// Service implements the authentication lifecycle: registration with email
// activation, password login, password recovery and OAuth sign-in. Every
// path that proves an identity converges on the same session mint.
type Service struct {
	accounts  account.Repository
	sessions  *session.Manager
	verifier  *verify.Verifier
	providers *oauth.Registry
	states    *oauth.StateSigner
	linker    *oauth.Linker
	logger    *slog.Logger
}

// NewService wires the authentication service.
func NewService(
	accounts account.Repository,
	sessions *session.Manager,
	verifier *verify.Verifier,
	providers *oauth.Registry,
	states *oauth.StateSigner,
	linker *oauth.Linker,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		sessions:  sessions,
		verifier:  verifier,
		providers: providers,
		states:    states,
		linker:    linker,
		logger:    logger,
	}
}

// Credentials is what a successful authentication hands back: the bearer
// token shown exactly once, its expiry, and the authenticated user.
type Credentials struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *account.User `json:"user"`
}

// registrationPayload rides inside the pending verification record between
// Register and Activate. The password is hashed before it ever leaves the
// process boundary.
type registrationPayload struct {
	PasswordHash string `json:"password_hash"`
	DisplayName  string `json:"display_name"`
}

// resetPayload rides inside the pending verification record between
// RequestPasswordReset and ConfirmPasswordReset.
type resetPayload struct {
	PasswordHash string `json:"password_hash"`
}

// # Registration & Activation

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

/*
Register starts the signup flow. No account row is created yet: the hashed
password and display name park inside a pending verification record, and
the account materializes only when Activate consumes the emailed code.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - error: apperr.Conflict when the email already belongs to an account,
    apperr.RateLimited inside the resend window, or delivery failures
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) error {
	email := sec.NormalizeEmail(input.Email)

	// ── 1. Reject an email that already has an account ──────────────────
	if _, err := service.accounts.FindByEmail(ctx, email); err == nil {
		return apperr.Conflict("Email is already registered")
	} else if !apperr.IsNotFound(err) {
		return err
	}

	// ── 2. Park the hashed password in the pending record ───────────────
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return apperr.Internal(fmt.Errorf("register_password_hash_failed: %w", err))
	}

	payload, err := json.Marshal(registrationPayload{
		PasswordHash: passwordHash,
		DisplayName:  sec.NormalizeDisplayName(input.DisplayName),
	})
	if err != nil {
		return apperr.Internal(fmt.Errorf("register_payload_encode_failed: %w", err))
	}

	// ── 3. Issue and deliver the activation code ─────────────────────────
	return service.verifier.Issue(ctx, email, verify.KindRegistration, string(payload))
}

/*
Resend re-delivers the pending code for (email, kind) with a fresh expiry
and attempt budget.

Parameters:
  - ctx: context.Context
  - email: The address the code was issued for.
  - kind: Which flow's code to resend.

Returns:
  - error: apperr.NotFound when nothing is pending, apperr.RateLimited
    inside the resend window
*/
func (service *Service) Resend(ctx context.Context, email string, kind verify.Kind) error {
	return service.verifier.Resend(ctx, sec.NormalizeEmail(email), kind)
}

/*
Activate consumes the registration code, creates the verified account and
signs the user in.

Parameters:
  - ctx: context.Context
  - email: The address the code was sent to.
  - code: The submitted numeric code.
  - meta: Device context for the minted session.

Returns:
  - *Credentials: The fresh session and the created user.
  - error: Stable code errors (CODE_INVALID, CODE_EXPIRED, CODE_EXHAUSTED),
    apperr.NotFound when nothing is pending, apperr.Conflict when the email
    gained an account since registration
*/
func (service *Service) Activate(ctx context.Context, email, code string, meta session.Metadata) (*Credentials, error) {
	email = sec.NormalizeEmail(email)

	result, err := service.verifier.Verify(ctx, email, verify.KindRegistration, code)
	if err != nil {
		return nil, err
	}
	if result.Outcome != verify.OutcomeSuccess {
		return nil, outcomeError(result)
	}

	var payload registrationPayload
	if err := json.Unmarshal([]byte(result.Payload), &payload); err != nil {
		return nil, apperr.Internal(fmt.Errorf("activate_payload_decode_failed: %w", err))
	}

	user := &account.User{
		ID:           uuidv7.New(),
		Email:        email,
		PasswordHash: payload.PasswordHash,
		DisplayName:  payload.DisplayName,
		Role:         rbac.DefaultRole,
		IsVerified:   true,
		IsActive:     true,
	}

	if err := service.accounts.Create(ctx, user); err != nil {
		return nil, err
	}

	return service.mintSession(ctx, user, meta)
}

// # Password Login

// LoginInput carries the login request fields plus device context.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

/*
Login authenticates an email/password pair and mints a session.

Unknown emails, OAuth-only accounts without a password, unactivated
accounts and wrong passwords all collapse into the same Unauthorized so the
response does not reveal which part failed.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *Credentials: The fresh session and the authenticated user.
  - error: apperr.Unauthorized on any credential failure, apperr.Forbidden
    for a deactivated account
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*Credentials, error) {
	email := sec.NormalizeEmail(input.Email)

	user, err := service.accounts.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	if !user.HasPassword() || !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !user.IsVerified {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	// Credentials checked out, so naming the real reason is safe here.
	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	return service.mintSession(ctx, user, session.Metadata{
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
	})
}

/*
Logout invalidates the presented session token. Unknown or already-dead
tokens are a no-op: logout is idempotent.

Parameters:
  - ctx: context.Context
  - token: The bearer token to invalidate.

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(ctx context.Context, token string) error {
	_, err := service.sessions.Invalidate(ctx, token)
	return err
}

// # Password Management

/*
ChangePassword swaps the password of an authenticated user after
re-proving the current one, then revokes every other session so a stolen
token does not outlive the rotation.

Parameters:
  - ctx: context.Context
  - userID: The authenticated user's ID.
  - currentPassword: Must match the stored hash.
  - newPassword: The replacement, hashed before storage.
  - currentToken: The session token driving this request; it survives.

Returns:
  - error: apperr.Unauthorized when the current password does not match
*/
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentToken string) error {
	user, err := service.accounts.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.HasPassword() || !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("change_password_hash_failed: %w", err))
	}

	if err := service.accounts.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	// The rotation already succeeded; a failed sweep only means stale
	// sessions linger until expiry, so it must not fail the request.
	if _, err := service.sessions.InvalidateAllExcept(ctx, userID, currentToken); err != nil {
		service.logger.ErrorContext(ctx, "change_password_session_sweep_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

/*
RequestPasswordReset starts the recovery flow. The replacement password is
collected up front, hashed, and parked in the pending record; the emailed
code is the only thing that can apply it.

An unknown email reports success without doing anything, so the endpoint
cannot be used to probe which addresses have accounts.

Parameters:
  - ctx: context.Context
  - email: The address to recover.
  - newPassword: The replacement password.

Returns:
  - error: apperr.RateLimited inside the resend window, delivery failures
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email, newPassword string) error {
	email = sec.NormalizeEmail(email)

	if _, err := service.accounts.FindByEmail(ctx, email); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("reset_password_hash_failed: %w", err))
	}

	payload, err := json.Marshal(resetPayload{PasswordHash: newHash})
	if err != nil {
		return apperr.Internal(fmt.Errorf("reset_payload_encode_failed: %w", err))
	}

	return service.verifier.Issue(ctx, email, verify.KindPasswordReset, string(payload))
}

/*
ConfirmPasswordReset consumes the reset code, applies the parked password
hash and revokes every session the account had.

Parameters:
  - ctx: context.Context
  - email: The address being recovered.
  - code: The submitted numeric code.

Returns:
  - error: Stable code errors (CODE_INVALID, CODE_EXPIRED, CODE_EXHAUSTED),
    apperr.NotFound when nothing is pending or the account vanished
*/
func (service *Service) ConfirmPasswordReset(ctx context.Context, email, code string) error {
	email = sec.NormalizeEmail(email)

	result, err := service.verifier.Verify(ctx, email, verify.KindPasswordReset, code)
	if err != nil {
		return err
	}
	if result.Outcome != verify.OutcomeSuccess {
		return outcomeError(result)
	}

	var payload resetPayload
	if err := json.Unmarshal([]byte(result.Payload), &payload); err != nil {
		return apperr.Internal(fmt.Errorf("reset_payload_decode_failed: %w", err))
	}

	user, err := service.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := service.accounts.UpdatePassword(ctx, user.ID, payload.PasswordHash); err != nil {
		return err
	}

	// A reset implies the old credential may be compromised: kill every
	// session, including whatever the attacker might hold. Non-fatal for
	// the same reason as in ChangePassword.
	if _, err := service.sessions.InvalidateAllForUser(ctx, user.ID); err != nil {
		service.logger.ErrorContext(ctx, "reset_password_session_sweep_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// # OAuth Sign-In

/*
OAuthBegin starts the authorization-code flow for a provider and returns
the consent URL carrying a signed state parameter.

Parameters:
  - provider: Registry key, e.g. "google".

Returns:
  - string: The provider consent URL to redirect the user to.
  - error: apperr.NotFound for an unknown provider
*/
func (service *Service) OAuthBegin(provider string) (string, error) {
	impl, ok := service.providers.Get(provider)
	if !ok {
		return "", apperr.NotFound("Provider")
	}

	state, err := service.states.Sign(provider)
	if err != nil {
		return "", err
	}

	return impl.AuthorizationURL(state), nil
}

/*
OAuthCallback completes the flow: verifies the state, exchanges the code
for a profile, resolves it to a local account and mints a session.

Parameters:
  - ctx: context.Context
  - provider: Registry key the callback arrived on.
  - state: The echoed state parameter.
  - code: The provider's authorization code.
  - meta: Device context for the minted session.

Returns:
  - *Credentials: The fresh session and the resolved user.
  - error: apperr.Unauthorized for bad state, apperr.Conflict for an
    unverified email colliding with an existing account, apperr.Forbidden
    for a deactivated account
*/
func (service *Service) OAuthCallback(ctx context.Context, provider, state, code string, meta session.Metadata) (*Credentials, error) {
	impl, ok := service.providers.Get(provider)
	if !ok {
		return nil, apperr.NotFound("Provider")
	}

	if err := service.states.Verify(state, provider); err != nil {
		return nil, err
	}

	profile, err := impl.ExchangeCodeForProfile(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := service.linker.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	return service.mintSession(ctx, user, meta)
}

// # Request Authentication

/*
AuthenticateToken resolves a bearer token to the acting principal. The
middleware calls this once per authenticated request.

A valid session whose account has since been deactivated or deleted
authenticates nothing; the caller sees the same Unauthorized as for a dead
token.

Parameters:
  - ctx: context.Context
  - token: The presented bearer token.

Returns:
  - *sec.Actor: Snapshot of the session's owner for authorization checks.
  - error: apperr.Unauthorized for any unusable token
*/
func (service *Service) AuthenticateToken(ctx context.Context, token string) (*sec.Actor, error) {
	active, err := service.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := service.accounts.FindByID(ctx, active.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Authentication required")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return &sec.Actor{
		UserID:            user.ID,
		Email:             user.Email,
		Role:              string(user.Role),
		DirectPermissions: user.DirectPermissions,
		SessionID:         active.ID,
	}, nil
}

// # Helpers

// mintSession creates a session for the user and packages the credentials.
func (service *Service) mintSession(ctx context.Context, user *account.User, meta session.Metadata) (*Credentials, error) {
	token, created, err := service.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Token:     token,
		ExpiresAt: created.ExpiresAt,
		User:      user,
	}, nil
}

// outcomeError translates a non-success verification outcome into its
// stable API error. Clients branch on the code, not the message.
func outcomeError(result verify.Result) error {
	switch result.Outcome {
	case verify.OutcomeInvalid:
		return apperr.New(http.StatusBadRequest, "CODE_INVALID",
			fmt.Sprintf("Incorrect code, %d attempts remaining", result.Remaining))
	case verify.OutcomeExpired:
		return apperr.New(http.StatusBadRequest, "CODE_EXPIRED", "This code has expired, request a new one")
	case verify.OutcomeExhausted:
		return apperr.New(http.StatusBadRequest, "CODE_EXHAUSTED", "Too many incorrect attempts, request a new code")
	default:
		return apperr.NotFound("Verification")
	}
}
