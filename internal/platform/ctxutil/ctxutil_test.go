// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvquang/altair/internal/platform/ctxutil"
	"github.com/nvquang/altair/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies logger injection and the default fallback.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()

	// 1. Fallback: never nil even without injection
	assert.NotNil(t, ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve the exact instance
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Same(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Actor verifies actor injection and anonymous fallback.
*/
func TestContext_Actor(t *testing.T) {
	ctx := context.Background()

	// 1. Anonymous context carries no actor
	assert.Nil(t, ctxutil.GetActor(ctx))

	// 2. Inject and retrieve
	actor := &sec.Actor{UserID: "u-1", Role: "member", SessionID: "s-1"}
	ctx = ctxutil.WithActor(ctx, actor)
	assert.Same(t, actor, ctxutil.GetActor(ctx))
}
