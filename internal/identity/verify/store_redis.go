// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package verify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/constants"
)

// Hash field names for the pending-verification record.
const (
	fieldCodeHash    = "codehash"
	fieldPayload     = "payload"
	fieldAttempts    = "attempts"
	fieldMaxAttempts = "maxattempts"
	fieldExpiresAt   = "expiresat"
)

// RedisRepository implements the Repository interface using a Redis hash
// per (email, kind).
//
// # Expiry Handling
//
// The Redis key TTL is set to twice the code TTL. During the second half
// of that window the record survives as a tombstone: the machine can still
// load it, observe that expiresat has passed, and report Expired instead of
// NotFound. Once Redis evicts the key the outcome degrades to NotFound,
// which is acceptable for a long-abandoned flow.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis-backed pending-verification
// Repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// recordKey builds the hash key for a pending verification.
func recordKey(email string, kind Kind) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixVerify, kind, email)
}

// resendKey builds the throttle key for resend limiting.
func resendKey(email string, kind Kind) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixResend, kind, email)
}

/*
Put stores a pending verification, replacing any previous record in place.

Parameters:
  - context: context.Context
  - record: Record
  - codeTTL: time.Duration

Returns:
  - error: Execution failures
*/
func (repository *RedisRepository) Put(context context.Context, record Record, codeTTL time.Duration) error {
	key := recordKey(record.Email, record.Kind)

	// DEL plus HSET in one round trip so a re-issue fully resets the record.
	pipe := repository.client.TxPipeline()
	pipe.Del(context, key)
	pipe.HSet(context, key,
		fieldCodeHash, record.CodeHash,
		fieldPayload, record.Payload,
		fieldAttempts, record.Attempts,
		fieldMaxAttempts, record.MaxAttempts,
		fieldExpiresAt, record.ExpiresAt.Unix(),
	)
	pipe.Expire(context, key, 2*codeTTL)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_verify_put_failed: %w", err)
	}

	return nil
}

/*
Get returns the pending record for (email, kind).

Description: Returns apperr.NotFound when the hash is absent or already
evicted by Redis.

Parameters:
  - context: context.Context
  - email: string
  - kind: Kind

Returns:
  - *Record: Hydrated record
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisRepository) Get(context context.Context, email string, kind Kind) (*Record, error) {
	fields, err := repository.client.HGetAll(context, recordKey(email, kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_verify_get_failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperr.NotFound("Pending verification")
	}

	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("redis_verify_attempts_corrupt: %w", err)
	}
	maxAttempts, err := strconv.Atoi(fields[fieldMaxAttempts])
	if err != nil {
		return nil, fmt.Errorf("redis_verify_max_attempts_corrupt: %w", err)
	}
	expiresAtUnix, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis_verify_expiresat_corrupt: %w", err)
	}

	return &Record{
		Email:       email,
		Kind:        kind,
		CodeHash:    fields[fieldCodeHash],
		Payload:     fields[fieldPayload],
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		ExpiresAt:   time.Unix(expiresAtUnix, 0),
	}, nil
}

/*
IncrementAttempts atomically bumps the attempt counter via HINCRBY.

Parameters:
  - context: context.Context
  - email: string
  - kind: Kind

Returns:
  - int: attempt count after the increment
  - error: Execution failures
*/
func (repository *RedisRepository) IncrementAttempts(context context.Context, email string, kind Kind) (int, error) {
	count, err := repository.client.HIncrBy(context, recordKey(email, kind), fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_verify_incr_failed: %w", err)
	}

	return int(count), nil
}

/*
Delete removes the pending record. The throttle key is left alone so the
resend window keeps counting; it expires on its own.

Parameters:
  - context: context.Context
  - email: string
  - kind: Kind

Returns:
  - error: Execution failures
*/
func (repository *RedisRepository) Delete(context context.Context, email string, kind Kind) error {
	if err := repository.client.Del(context, recordKey(email, kind)).Err(); err != nil {
		return fmt.Errorf("redis_verify_delete_failed: %w", err)
	}

	return nil
}

/*
ClaimResendSlot reserves the resend slot with SET NX, so the check and the
claim are a single atomic operation.

Parameters:
  - context: context.Context
  - email: string
  - kind: Kind
  - window: time.Duration

Returns:
  - bool: true if the caller may send now
  - error: Execution failures
*/
func (repository *RedisRepository) ClaimResendSlot(context context.Context, email string, kind Kind, window time.Duration) (bool, error) {
	claimed, err := repository.client.SetNX(context, resendKey(email, kind), "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("redis_verify_resend_claim_failed: %w", err)
	}

	return claimed, nil
}
