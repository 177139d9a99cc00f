// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package auth provides the HTTP delivery layer and the domain service for
the authentication lifecycle.

# Architecture

The handler is a thin mediation layer between the web and the [Service]:
  - Protocol: Standard RESTful JSON interface.
  - Security: Opaque bearer tokens; the plaintext token appears exactly
    once, in the response that mints it.
  - Verification: Enforces strict input validation before passing to
    [Service].

This layer is strictly responsible for transport concerns (status codes,
headers, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/identity/verify"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/constants"
	"github.com/nvquang/altair/internal/platform/middleware"
	requestutil "github.com/nvquang/altair/internal/platform/request"
	"github.com/nvquang/altair/internal/platform/respond"
	"github.com/nvquang/altair/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register          : Starts signup, emails an activation code.
//   - POST /activate          : Consumes the code, creates the account.
//   - POST /resend            : Re-delivers a pending code.
//   - POST /login             : Authenticates and mints a session.
//   - POST /forgot-password   : Starts password recovery.
//   - POST /reset-password    : Consumes the recovery code.
//   - GET  /oauth/{provider}  : Redirects to the provider consent page.
//   - GET  /oauth/{provider}/callback : Completes the OAuth flow.
//   - POST /logout            : Invalidates the current session.
//   - POST /change-password   : Rotates the password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/activate", handler.activate)
	router.Post("/resend", handler.resend)
	router.Post("/login", handler.login)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)
	router.Get("/oauth/{provider}", handler.oauthBegin)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type activateRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendRequest struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
Register starts the signup flow.

POST /api/v1/auth/register

Description: Validates input and issues an activation code to the given
address. No account exists until the code is consumed.

Request:
  - Body: registerRequest (Email, Password, DisplayName)

Response:
  - 202: Message: Activation code sent
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
  - 429: ErrRateLimited: Resend window still open
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		MaxLen(FieldPassword, input.Password, MaxPasswordLength).
		MaxLen(FieldDisplayName, input.DisplayName, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, map[string]string{
		FieldMessage: "Check your email for the activation code",
	})
}

/*
Activate consumes an activation code and creates the account.

POST /api/v1/auth/activate

Description: Verifies the emailed code, creates the verified account and
signs the new user in.

Request:
  - Body: activateRequest (Email, Code)

Response:
  - 201: Credentials: Session token and created user
  - 400: CODE_INVALID / CODE_EXPIRED / CODE_EXHAUSTED
  - 404: ErrNotFound: No pending registration
*/
func (handler *Handler) activate(writer http.ResponseWriter, request *http.Request) {
	var input activateRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldCode, input.Code).
		Code(FieldCode, input.Code, constants.CodeDigits)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credentials, err := handler.authService.Activate(
		request.Context(),
		input.Email,
		input.Code,
		sessionMetadata(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, credentials)
}

/*
Resend re-delivers a pending verification code.

POST /api/v1/auth/resend

Description: Issues a fresh code for a still-pending registration or
password reset. Responds generically whether or not anything was pending,
so the endpoint cannot probe for registered emails.

Request:
  - Body: resendRequest (Email, Kind)

Response:
  - 200: Message: Generic acknowledgement
  - 429: ErrRateLimited: Resend window still open
*/
func (handler *Handler) resend(writer http.ResponseWriter, request *http.Request) {
	var input resendRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldKind, input.Kind).
		OneOf(FieldKind, input.Kind, string(verify.KindRegistration), string(verify.KindPasswordReset))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.Resend(request.Context(), input.Email, verify.Kind(input.Kind))
	if err != nil && !apperr.IsNotFound(err) {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If a code was pending, a new one has been sent",
	})
}

/*
Login authenticates an email/password pair.

POST /api/v1/auth/login

Description: Verifies credentials and mints an opaque session token.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Credentials: Session token and user profile
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Account deactivated
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credentials, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: clientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, credentials)
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Invalidates the bearer token driving this request. Idempotent.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if token := requestutil.BearerToken(request); token != "" {
		if err := handler.authService.Logout(request.Context(), token); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	respond.NoContent(writer)
}

/*
ForgotPassword starts the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Collects the replacement password up front and emails a
confirmation code. Responds identically for unknown emails.

Request:
  - Body: forgotPasswordRequest (Email, NewPassword)

Response:
  - 200: Message: Generic acknowledgement
  - 429: ErrRateLimited: Resend window still open
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength).
		MaxLen(FieldNewPassword, input.NewPassword, MaxPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.RequestPasswordReset(request.Context(), input.Email, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered, a code has been sent",
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password

Description: Verifies the emailed code, applies the new password and
revokes every session the account had.

Request:
  - Body: resetPasswordRequest (Email, Code)

Response:
  - 200: Message: Password updated
  - 400: CODE_INVALID / CODE_EXPIRED / CODE_EXHAUSTED
  - 404: ErrNotFound: No pending reset
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldCode, input.Code).
		Code(FieldCode, input.Code, constants.CodeDigits)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmPasswordReset(request.Context(), input.Email, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

/*
OAuthBegin redirects the browser to a provider's consent page.

GET /api/v1/auth/oauth/{provider}

Response:
  - 302: Redirect to the provider
  - 404: ErrNotFound: Unknown provider
*/
func (handler *Handler) oauthBegin(writer http.ResponseWriter, request *http.Request) {
	provider := requestutil.Param(request, FieldProvider)

	authURL, err := handler.authService.OAuthBegin(provider)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, authURL, http.StatusFound)
}

/*
OAuthCallback completes a provider sign-in.

GET /api/v1/auth/oauth/{provider}/callback?state=...&code=...

Description: Verifies the state parameter, exchanges the authorization
code, resolves the external identity to a local account and mints a
session.

Response:
  - 200: Credentials: Session token and user profile
  - 401: ErrUnauthorized: Bad or expired state
  - 409: ErrConflict: Unverified provider email collides with an account
  - 403: ErrForbidden: Account deactivated
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	provider := requestutil.Param(request, FieldProvider)
	state := request.URL.Query().Get(FieldState)
	code := request.URL.Query().Get(FieldCode)

	validator := &validate.Validator{}
	validator.Required(FieldState, state)
	validator.Required(FieldCode, code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credentials, err := handler.authService.OAuthCallback(
		request.Context(),
		provider,
		state,
		code,
		sessionMetadata(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, credentials)
}

/*
ChangePassword rotates the authenticated user's password.

POST /api/v1/auth/change-password

Description: Re-proves the current password, stores the new one and
revokes every session except the one driving this request.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Message: Password changed
  - 401: ErrUnauthorized: Current password incorrect or session invalid
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength).
		MaxLen(FieldNewPassword, input.NewPassword, MaxPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(
		request.Context(),
		actor.UserID,
		input.CurrentPassword,
		input.NewPassword,
		requestutil.BearerToken(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}

// # Helpers

// sessionMetadata captures the device context recorded on a new session.
func sessionMetadata(request *http.Request) session.Metadata {
	return session.Metadata{
		UserAgent: request.UserAgent(),
		IPAddress: clientIP(request),
	}
}

// clientIP tries to extract the real IP address of a user over proxy
// environments.
func clientIP(request *http.Request) string {
	ip := request.Header.Get(constants.HeaderXRealIP)
	if ip == "" {
		ip = request.Header.Get(constants.HeaderXForwardedFor)
	}
	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
