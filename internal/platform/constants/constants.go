// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Identity: Session and one-time-code fallbacks used when configuration is absent.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "altair-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Identity Fallbacks
//
// Session TTL, code TTL, attempt limits, and the resend window are supplied by
// configuration; these values are the fallbacks applied when the corresponding
// environment variable is absent.

const (
	// DefaultSessionTTL is the fallback lifetime of an opaque session token.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// DefaultCodeTTL is the fallback lifetime of a one-time verification code.
	DefaultCodeTTL = 15 * time.Minute

	// DefaultCodeMaxAttempts is the fallback number of wrong guesses before a
	// pending verification is destroyed.
	DefaultCodeMaxAttempts = 5

	// DefaultResendWindow is the fallback minimum interval between code resends.
	DefaultResendWindow = 60 * time.Second

	// SessionTokenLength is the byte length of the random opaque session token.
	SessionTokenLength = 32

	// CodeDigits is the fixed width of a numeric one-time code.
	CodeDigits = 6

	// OAuthStateTTL bounds the round trip to the provider's consent screen.
	OAuthStateTTL = 10 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaIAM = "iam"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixVerify = "iam:verify:"
	RedisPrefixResend = "iam:resend:"
)
