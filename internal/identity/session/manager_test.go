// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package session_test

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

	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/platform/apperr"
)

// # In-Memory Repository

// memoryRepository is a thread-safe in-memory session.Repository used to
// exercise the manager without a database.
type memoryRepository struct {
	mutex    sync.Mutex
	byID     map[string]*session.Session
	failNext error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byID: make(map[string]*session.Session)}
}

func (repo *memoryRepository) Create(_ context.Context, record *session.Session) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if repo.failNext != nil {
		err := repo.failNext
		repo.failNext = nil
		return err
	}

	for _, existing := range repo.byID {
		if existing.TokenHash == record.TokenHash {
			return apperr.Conflict("session already exists")
		}
	}

	clone := *record
	repo.byID[record.ID] = &clone
	return nil
}

func (repo *memoryRepository) FindValidByTokenHash(_ context.Context, tokenHash string, now time.Time) (*session.Session, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	for _, record := range repo.byID {
		if record.TokenHash == tokenHash && record.IsValid && record.ExpiresAt.After(now) {
			clone := *record
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("session not found")
}

func (repo *memoryRepository) TouchLastUsed(_ context.Context, sessionID string, usedAt time.Time) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if record, ok := repo.byID[sessionID]; ok {
		record.LastUsedAt = usedAt
	}
	return nil
}

func (repo *memoryRepository) InvalidateByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	for _, record := range repo.byID {
		if record.TokenHash == tokenHash && record.IsValid {
			record.IsValid = false
			return true, nil
		}
	}
	return false, nil
}

func (repo *memoryRepository) InvalidateAllForUser(_ context.Context, userID string) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	var count int64
	for _, record := range repo.byID {
		if record.UserID == userID && record.IsValid {
			record.IsValid = false
			count++
		}
	}
	return count, nil
}

func (repo *memoryRepository) InvalidateAllExcept(_ context.Context, userID, keepTokenHash string) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	var count int64
	for _, record := range repo.byID {
		if record.UserID == userID && record.TokenHash != keepTokenHash && record.IsValid {
			record.IsValid = false
			count++
		}
	}
	return count, nil
}

func (repo *memoryRepository) InvalidateByID(_ context.Context, sessionID, ownerUserID string) (bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if record, ok := repo.byID[sessionID]; ok && record.UserID == ownerUserID && record.IsValid {
		record.IsValid = false
		return true, nil
	}
	return false, nil
}

func (repo *memoryRepository) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]session.Session, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	var out []session.Session
	for _, record := range repo.byID {
		if record.UserID == userID && record.IsValid && record.ExpiresAt.After(now) {
			out = append(out, *record)
		}
	}
	return out, nil
}

// # Helpers

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, repo session.Repository, options ...session.Option) *session.Manager {
	t.Helper()
	options = append([]session.Option{session.WithSyncTouch()}, options...)
	return session.NewManager(repo, time.Hour, testLogger(), options...)
}

// # Tests

/*
TestManager_CreateAndValidate verifies the full mint-then-authenticate
round trip.
*/
func TestManager_CreateAndValidate(t *testing.T) {
	repo := newMemoryRepository()
	manager := newTestManager(t, repo)
	ctx := context.Background()

	token, created, err := manager.Create(ctx, "user-1", session.Metadata{
		UserAgent: "test-agent",
		IPAddress: "203.0.113.9",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The plaintext token is never stored.
	assert.NotEqual(t, token, created.TokenHash)
	assert.True(t, created.IsValid)
	assert.Equal(t, "user-1", created.UserID)

	validated, err := manager.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, validated.ID)
}

/*
TestManager_ValidateMiss verifies the single unauthenticated outcome for
unknown and empty tokens.
*/
func TestManager_ValidateMiss(t *testing.T) {
	manager := newTestManager(t, newMemoryRepository())
	ctx := context.Background()

	_, err := manager.Validate(ctx, "no-such-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))

	_, err = manager.Validate(ctx, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

/*
TestManager_ValidateExpired verifies that an expired session is the same
unauthenticated outcome as a missing one.
*/
func TestManager_ValidateExpired(t *testing.T) {
	repo := newMemoryRepository()
	current := time.Now()
	manager := session.NewManager(repo, time.Hour, testLogger(),
		session.WithSyncTouch(),
		session.WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)

	// Still valid just before expiry.
	current = current.Add(59 * time.Minute)
	_, err = manager.Validate(ctx, token)
	require.NoError(t, err)

	// Dead once the TTL passes.
	current = current.Add(2 * time.Minute)
	_, err = manager.Validate(ctx, token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

/*
TestManager_TouchRefreshesLastUsed verifies the last-used refresh without
expiry extension.
*/
func TestManager_TouchRefreshesLastUsed(t *testing.T) {
	repo := newMemoryRepository()
	current := time.Now()
	manager := session.NewManager(repo, time.Hour, testLogger(),
		session.WithSyncTouch(),
		session.WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()

	token, created, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)
	originalExpiry := created.ExpiresAt

	current = current.Add(30 * time.Minute)
	validated, err := manager.Validate(ctx, token)
	require.NoError(t, err)

	stored := repo.byID[validated.ID]
	assert.Equal(t, current, stored.LastUsedAt)
	assert.Equal(t, originalExpiry, stored.ExpiresAt)
}

/*
TestManager_CreateRetriesCollision verifies that a token-hash collision is
retried once with a fresh token.
*/
func TestManager_CreateRetriesCollision(t *testing.T) {
	repo := newMemoryRepository()
	repo.failNext = apperr.Conflict("duplicate token hash")
	manager := newTestManager(t, repo)

	token, _, err := manager.Create(context.Background(), "user-1", session.Metadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

/*
TestManager_InvalidateIdempotent verifies the logout contract: first call
true, second call false, token unauthenticated afterwards.
*/
func TestManager_InvalidateIdempotent(t *testing.T) {
	manager := newTestManager(t, newMemoryRepository())
	ctx := context.Background()

	token, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)

	revoked, err := manager.Invalidate(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = manager.Invalidate(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = manager.Validate(ctx, token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.HTTPStatus(err))
}

/*
TestManager_InvalidateAllForUser verifies the cascading kill used on role
change and deactivation.
*/
func TestManager_InvalidateAllForUser(t *testing.T) {
	manager := newTestManager(t, newMemoryRepository())
	ctx := context.Background()

	tokenA, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)
	tokenB, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)
	tokenOther, _, err := manager.Create(ctx, "user-2", session.Metadata{})
	require.NoError(t, err)

	count, err := manager.InvalidateAllForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for _, token := range []string{tokenA, tokenB} {
		_, err = manager.Validate(ctx, token)
		assert.Error(t, err)
	}

	// Other users are untouched.
	_, err = manager.Validate(ctx, tokenOther)
	assert.NoError(t, err)
}

/*
TestManager_InvalidateAllExcept verifies the password-change cascade that
spares the initiating session.
*/
func TestManager_InvalidateAllExcept(t *testing.T) {
	manager := newTestManager(t, newMemoryRepository())
	ctx := context.Background()

	keeper, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)
	other, _, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)

	count, err := manager.InvalidateAllExcept(ctx, "user-1", keeper)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = manager.Validate(ctx, keeper)
	assert.NoError(t, err)
	_, err = manager.Validate(ctx, other)
	assert.Error(t, err)
}

/*
TestManager_RevokeByID verifies ownership scoping and the self-lockout
guard.
*/
func TestManager_RevokeByID(t *testing.T) {
	manager := newTestManager(t, newMemoryRepository())
	ctx := context.Background()

	currentToken, current, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)
	_, target, err := manager.Create(ctx, "user-1", session.Metadata{})
	require.NoError(t, err)

	// 1. The current session can only end through logout.
	err = manager.RevokeByID(ctx, "user-1", current.ID, current.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))

	// 2. Another user's session reads as not found.
	err = manager.RevokeByID(ctx, "user-2", target.ID, "unrelated")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))

	// 3. The owner revokes a sibling session.
	err = manager.RevokeByID(ctx, "user-1", target.ID, current.ID)
	require.NoError(t, err)

	// The current session survives.
	_, err = manager.Validate(ctx, currentToken)
	assert.NoError(t, err)
}
