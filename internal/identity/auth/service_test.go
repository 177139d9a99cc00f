// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvquang/altair/internal/identity/account"
	"github.com/nvquang/altair/internal/identity/auth"
	"github.com/nvquang/altair/internal/identity/oauth"
	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/identity/verify"
	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/mailer"
)

// # In-Memory Fakes

type accountsFake struct {
	mutex sync.Mutex
	users map[string]*account.User
}

func newAccountsFake() *accountsFake {
	return &accountsFake{users: make(map[string]*account.User)}
}

func (repo *accountsFake) Create(_ context.Context, user *account.User) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.Conflict("email already exists")
		}
	}
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *accountsFake) FindByID(_ context.Context, id string) (*account.User, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[id]; ok && user.DeletedAt == nil {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *accountsFake) FindByEmail(_ context.Context, email string) (*account.User, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	for _, user := range repo.users {
		if user.Email == email && user.DeletedAt == nil {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *accountsFake) FindByIdentity(_ context.Context, provider, externalID string) (*account.User, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	for _, user := range repo.users {
		if linked, ok := user.Identities[provider]; ok && linked == externalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *accountsFake) Update(_ context.Context, user *account.User) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if stored, ok := repo.users[user.ID]; ok {
		stored.Email = user.Email
		stored.DisplayName = user.DisplayName
		stored.IsVerified = user.IsVerified
	}
	return nil
}

func (repo *accountsFake) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (repo *accountsFake) UpdateRole(_ context.Context, userID, role string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.Role = rbac.Role(role)
	}
	return nil
}

func (repo *accountsFake) UpdateDirectPermissions(_ context.Context, userID string, permissions []string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.DirectPermissions = permissions
	}
	return nil
}

func (repo *accountsFake) SetActive(_ context.Context, userID string, active bool) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.IsActive = active
	}
	return nil
}

func (repo *accountsFake) LinkIdentity(_ context.Context, userID, provider, externalID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		if user.Identities == nil {
			user.Identities = make(map[string]string)
		}
		user.Identities[provider] = externalID
	}
	return nil
}

func (repo *accountsFake) MarkVerified(_ context.Context, userID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.IsVerified = true
	}
	return nil
}

func (repo *accountsFake) SoftDelete(_ context.Context, id string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if user, ok := repo.users[id]; ok {
		now := time.Now()
		user.DeletedAt = &now
	}
	return nil
}

type sessionsFake struct {
	mutex sync.Mutex
	byID  map[string]*session.Session
}

func newSessionsFake() *sessionsFake {
	return &sessionsFake{byID: make(map[string]*session.Session)}
}

func (repo *sessionsFake) Create(_ context.Context, created *session.Session) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	for _, existing := range repo.byID {
		if existing.TokenHash == created.TokenHash {
			return apperr.Conflict("token hash collision")
		}
	}
	clone := *created
	repo.byID[created.ID] = &clone
	return nil
}

func (repo *sessionsFake) FindValidByTokenHash(_ context.Context, tokenHash string, now time.Time) (*session.Session, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	for _, existing := range repo.byID {
		if existing.TokenHash == tokenHash && existing.IsValid && existing.ExpiresAt.After(now) {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (repo *sessionsFake) TouchLastUsed(_ context.Context, sessionID string, usedAt time.Time) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if existing, ok := repo.byID[sessionID]; ok {
		existing.LastUsedAt = usedAt
	}
	return nil
}

func (repo *sessionsFake) InvalidateByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	for _, existing := range repo.byID {
		if existing.TokenHash == tokenHash && existing.IsValid {
			existing.IsValid = false
			return true, nil
		}
	}
	return false, nil
}

func (repo *sessionsFake) InvalidateAllForUser(_ context.Context, userID string) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	var count int64
	for _, existing := range repo.byID {
		if existing.UserID == userID && existing.IsValid {
			existing.IsValid = false
			count++
		}
	}
	return count, nil
}

func (repo *sessionsFake) InvalidateAllExcept(_ context.Context, userID, keepTokenHash string) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	var count int64
	for _, existing := range repo.byID {
		if existing.UserID == userID && existing.IsValid && existing.TokenHash != keepTokenHash {
			existing.IsValid = false
			count++
		}
	}
	return count, nil
}

func (repo *sessionsFake) InvalidateByID(_ context.Context, sessionID, ownerUserID string) (bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if existing, ok := repo.byID[sessionID]; ok && existing.UserID == ownerUserID && existing.IsValid {
		existing.IsValid = false
		return true, nil
	}
	return false, nil
}

func (repo *sessionsFake) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]session.Session, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	var active []session.Session
	for _, existing := range repo.byID {
		if existing.UserID == userID && existing.IsValid && existing.ExpiresAt.After(now) {
			active = append(active, *existing)
		}
	}
	return active, nil
}

func (repo *sessionsFake) validCount(userID string) int {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	count := 0
	for _, existing := range repo.byID {
		if existing.UserID == userID && existing.IsValid {
			count++
		}
	}
	return count
}

type codesFake struct {
	mutex    sync.Mutex
	records  map[string]*verify.Record
	throttle map[string]bool
}

func newCodesFake() *codesFake {
	return &codesFake{
		records:  make(map[string]*verify.Record),
		throttle: make(map[string]bool),
	}
}

func codeKey(email string, kind verify.Kind) string {
	return string(kind) + ":" + email
}

func (repo *codesFake) Put(_ context.Context, record verify.Record, _ time.Duration) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	clone := record
	repo.records[codeKey(record.Email, record.Kind)] = &clone
	return nil
}

func (repo *codesFake) Get(_ context.Context, email string, kind verify.Kind) (*verify.Record, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if record, ok := repo.records[codeKey(email, kind)]; ok {
		clone := *record
		return &clone, nil
	}
	return nil, apperr.NotFound("Verification")
}

func (repo *codesFake) IncrementAttempts(_ context.Context, email string, kind verify.Kind) (int, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if record, ok := repo.records[codeKey(email, kind)]; ok {
		record.Attempts++
		return record.Attempts, nil
	}
	return 0, apperr.NotFound("Verification")
}

func (repo *codesFake) Delete(_ context.Context, email string, kind verify.Kind) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	delete(repo.records, codeKey(email, kind))
	return nil
}

func (repo *codesFake) ClaimResendSlot(_ context.Context, email string, kind verify.Kind, _ time.Duration) (bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	key := codeKey(email, kind)
	if repo.throttle[key] {
		return false, nil
	}
	repo.throttle[key] = true
	return true, nil
}

func (repo *codesFake) resetThrottle() {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.throttle = make(map[string]bool)
}

// captureSender records the last code it was asked to deliver.
type captureSender struct {
	mutex    sync.Mutex
	lastCode string
	lastKind mailer.CodeKind
}

func (sender *captureSender) SendCode(_ context.Context, _ string, code string, kind mailer.CodeKind) error {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	sender.lastCode = code
	sender.lastKind = kind
	return nil
}

func (sender *captureSender) code() string {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	return sender.lastCode
}

// staticProvider satisfies oauth.Provider with a canned profile.
type staticProvider struct {
	name    string
	profile *oauth.Profile
}

func (provider *staticProvider) Name() string { return provider.name }

func (provider *staticProvider) AuthorizationURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (provider *staticProvider) ExchangeCodeForProfile(context.Context, string) (*oauth.Profile, error) {
	return provider.profile, nil
}

// # Fixture

type fixture struct {
	service  *auth.Service
	accounts *accountsFake
	sessions *sessionsFake
	codes    *codesFake
	sender   *captureSender
}

func newFixture(t *testing.T, providers ...oauth.Provider) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := newAccountsFake()
	sessions := newSessionsFake()
	codes := newCodesFake()
	sender := &captureSender{}

	manager := session.NewManager(sessions, time.Hour, logger, session.WithSyncTouch())
	verifier := verify.NewVerifier(codes, sender, 15*time.Minute, 5, time.Minute, logger)

	return &fixture{
		service: auth.NewService(
			accounts,
			manager,
			verifier,
			oauth.NewRegistry(providers...),
			oauth.NewStateSigner("test-secret"),
			oauth.NewLinker(accounts, logger),
			logger,
		),
		accounts: accounts,
		sessions: sessions,
		codes:    codes,
		sender:   sender,
	}
}

func (f *fixture) register(t *testing.T, email, password string) {
	t.Helper()
	require.NoError(t, f.service.Register(context.Background(), auth.RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: "Test User",
	}))
	f.codes.resetThrottle()
}

func (f *fixture) activate(t *testing.T, email string) *auth.Credentials {
	t.Helper()
	credentials, err := f.service.Activate(context.Background(), email, f.sender.code(), session.Metadata{})
	require.NoError(t, err)
	return credentials
}

// # Tests

/*
TestRegisterActivateLogin walks the happy path end to end: register, consume
the emailed code, then log in with the chosen password.
*/
func TestRegisterActivateLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "correct horse battery")

	// No account until the code is consumed.
	_, err := f.accounts.FindByEmail(ctx, "alice@example.com")
	require.Error(t, err)

	credentials := f.activate(t, "alice@example.com")
	assert.NotEmpty(t, credentials.Token)
	assert.Equal(t, rbac.DefaultRole, credentials.User.Role)
	assert.True(t, credentials.User.IsVerified)

	login, err := f.service.Login(ctx, auth.LoginInput{
		Email:    "Alice@Example.com", // normalization folds the case
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, credentials.User.ID, login.User.ID)
	assert.NotEqual(t, credentials.Token, login.Token)
}

/*
TestRegisterDuplicateEmail verifies that a taken email is rejected before
any code is issued.
*/
func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	f.register(t, "alice@example.com", "first password!")
	f.activate(t, "alice@example.com")

	err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:    "alice@example.com",
		Password: "second password!",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
}

/*
TestActivateWrongCode verifies the stable error codes on a wrong guess and
that the budget counts down.
*/
func TestActivateWrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "some password!")

	_, err := f.service.Activate(ctx, "alice@example.com", "000000", session.Metadata{})
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CODE_INVALID", appErr.Code)

	// The right code still works afterwards.
	credentials := f.activate(t, "alice@example.com")
	assert.NotNil(t, credentials.User)
}

/*
TestLoginFailureModes verifies that unknown emails, wrong passwords and
password-less accounts collapse into the same Unauthorized.
*/
func TestLoginFailureModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "some password!")
	f.activate(t, "alice@example.com")

	// OAuth-only account: no password hash.
	f.accounts.users["oauth-only"] = &account.User{
		ID: "oauth-only", Email: "bob@example.com",
		Role: rbac.RoleMember, IsVerified: true, IsActive: true,
	}

	cases := []auth.LoginInput{
		{Email: "nobody@example.com", Password: "whatever!"},
		{Email: "alice@example.com", Password: "wrong password"},
		{Email: "bob@example.com", Password: "any password!"},
	}
	for _, input := range cases {
		_, err := f.service.Login(ctx, input)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
	}
}

/*
TestLoginDeactivated verifies that correct credentials on a deactivated
account yield Forbidden, not Unauthorized.
*/
func TestLoginDeactivated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "some password!")
	credentials := f.activate(t, "alice@example.com")
	require.NoError(t, f.accounts.SetActive(ctx, credentials.User.ID, false))

	_, err := f.service.Login(ctx, auth.LoginInput{
		Email:    "alice@example.com",
		Password: "some password!",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))
}

/*
TestLogoutIdempotent verifies that logging out twice is harmless and that
the token stops authenticating.
*/
func TestLogoutIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "some password!")
	credentials := f.activate(t, "alice@example.com")

	require.NoError(t, f.service.Logout(ctx, credentials.Token))
	require.NoError(t, f.service.Logout(ctx, credentials.Token))

	_, err := f.service.AuthenticateToken(ctx, credentials.Token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

/*
TestChangePassword verifies the rotation: wrong current password refused,
other sessions revoked, the driving session kept.
*/
func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "old password!!")
	first := f.activate(t, "alice@example.com")

	second, err := f.service.Login(ctx, auth.LoginInput{
		Email: "alice@example.com", Password: "old password!!",
	})
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, first.User.ID, "not the password", "new password!!", first.Token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))

	require.NoError(t, f.service.ChangePassword(ctx, first.User.ID, "old password!!", "new password!!", first.Token))

	// The driving session survives; the sibling does not.
	_, err = f.service.AuthenticateToken(ctx, first.Token)
	assert.NoError(t, err)
	_, err = f.service.AuthenticateToken(ctx, second.Token)
	assert.Error(t, err)

	_, err = f.service.Login(ctx, auth.LoginInput{
		Email: "alice@example.com", Password: "new password!!",
	})
	assert.NoError(t, err)
}

/*
TestPasswordReset verifies the recovery flow: silent success on unknown
email, and a completed reset that applies the parked hash and kills every
session.
*/
func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unknown email: generic success, nothing sent.
	require.NoError(t, f.service.RequestPasswordReset(ctx, "nobody@example.com", "replacement pw!"))
	assert.Empty(t, f.sender.code())

	f.register(t, "alice@example.com", "old password!!")
	credentials := f.activate(t, "alice@example.com")

	require.NoError(t, f.service.RequestPasswordReset(ctx, "alice@example.com", "replacement pw!"))
	require.NotEmpty(t, f.sender.code())

	require.NoError(t, f.service.ConfirmPasswordReset(ctx, "alice@example.com", f.sender.code()))

	// Every session is dead.
	assert.Zero(t, f.sessions.validCount(credentials.User.ID))

	// Old password out, new password in.
	_, err := f.service.Login(ctx, auth.LoginInput{
		Email: "alice@example.com", Password: "old password!!",
	})
	require.Error(t, err)
	_, err = f.service.Login(ctx, auth.LoginInput{
		Email: "alice@example.com", Password: "replacement pw!",
	})
	assert.NoError(t, err)
}

/*
TestResendThrottled verifies the resend window: a back-to-back resend is
rate limited, and resending for nothing pending reports NotFound.
*/
func TestResendThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Register(ctx, auth.RegisterInput{
		Email: "alice@example.com", Password: "some password!",
	}))

	err := f.service.Resend(ctx, "alice@example.com", verify.KindRegistration)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperr.HTTPStatus(err))

	err = f.service.Resend(ctx, "nobody@example.com", verify.KindRegistration)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestAuthenticateToken verifies actor construction and that deactivation
cuts off an otherwise valid session.
*/
func TestAuthenticateToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice@example.com", "some password!")
	credentials := f.activate(t, "alice@example.com")

	actor, err := f.service.AuthenticateToken(ctx, credentials.Token)
	require.NoError(t, err)
	assert.Equal(t, credentials.User.ID, actor.UserID)
	assert.Equal(t, string(rbac.DefaultRole), actor.Role)
	assert.NotEmpty(t, actor.SessionID)

	require.NoError(t, f.accounts.SetActive(ctx, credentials.User.ID, false))
	_, err = f.service.AuthenticateToken(ctx, credentials.Token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

/*
TestOAuthFlow verifies begin/callback against a canned provider: the
consent URL carries a verifiable state, and the callback resolves to an
account with a session.
*/
func TestOAuthFlow(t *testing.T) {
	verified := true
	provider := &staticProvider{
		name: "google",
		profile: &oauth.Profile{
			Provider:      "google",
			ExternalID:    "ext-1",
			Email:         "carol@example.com",
			DisplayName:   "Carol",
			EmailVerified: &verified,
		},
	}
	f := newFixture(t, provider)
	ctx := context.Background()

	authURL, err := f.service.OAuthBegin("google")
	require.NoError(t, err)
	require.Contains(t, authURL, "state=")

	_, err = f.service.OAuthBegin("gitlab")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	state := authURL[len("https://provider.test/authorize?state="):]

	credentials, err := f.service.OAuthCallback(ctx, "google", state, "any-code", session.Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", credentials.User.Email)
	assert.NotEmpty(t, credentials.Token)

	// A tampered or cross-provider state is rejected.
	_, err = f.service.OAuthCallback(ctx, "google", "garbage", "any-code", session.Metadata{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}
