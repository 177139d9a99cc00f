// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

// Package redis provides the managed Redis client for the Altair identity
// core. Redis backs the one-time code store and resend throttling, where
// native TTL and atomic hash operations carry the semantics.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// dialTimeout is the maximum time allowed to establish a connection.
	dialTimeout = 5 * time.Second
	// readTimeout bounds individual read operations.
	readTimeout = 3 * time.Second
	// writeTimeout bounds individual write operations.
	writeTimeout = 3 * time.Second
	// poolSize is the maximum number of socket connections.
	poolSize = 25
	// minIdleConns keeps a warm set of connections ready.
	minIdleConns = 5
	// pingTimeout is the maximum duration for a health check ping.
	pingTimeout = 2 * time.Second
)

// NewClient creates and validates a new Redis client.
//
// # Parameters
//   - ctx: Context for the initial connectivity check.
//   - redisURL: A redis:// or rediss:// connection URL.
//   - logger: Structured logger for client-level events.
func NewClient(ctx context.Context, redisURL string, logger *slog.Logger) (*goredis.Client, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout
	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns

	client := goredis.NewClient(options)

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
	)

	return client, nil
}

// Ping verifies that the Redis connection is healthy.
func Ping(ctx context.Context, client *goredis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
