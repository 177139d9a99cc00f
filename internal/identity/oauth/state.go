// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package oauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/constants"
)

// # CSRF State

// StateSigner issues and verifies the OAuth state parameter as a short-lived
// HS256 token. Signing makes the state self-contained: no server-side
// pending-state storage, and a forged or replayed-after-expiry callback
// fails verification.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner creates a StateSigner keyed with the session secret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// stateClaims carries the provider binding and a single-use nonce.
type stateClaims struct {
	Provider string `json:"prv"`
	Nonce    string `json:"nce"`
	jwt.RegisteredClaims
}

/*
Sign issues a state parameter bound to the provider.

Parameters:
  - provider: The provider the flow was started for.

Returns:
  - string: The signed state token.
  - error: Signing failures
*/
func (signer *StateSigner) Sign(provider string) (string, error) {
	now := signer.now()
	claims := stateClaims{
		Provider: provider,
		Nonce:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.OAuthStateTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("oauth_state_sign_failed: %w", err)
	}

	return token, nil
}

/*
Verify checks a callback state parameter and confirms it was issued for the
expected provider.

Parameters:
  - state: The state token echoed by the provider.
  - provider: The provider handling the callback.

Returns:
  - error: apperr.Unauthorized for any invalid, expired or cross-provider
    state
*/
func (signer *StateSigner) Verify(state, provider string) error {
	claims := &stateClaims{}

	token, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (any, error) {
		return signer.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil || !token.Valid {
		return apperr.Unauthorized("Invalid or expired state")
	}

	if claims.Provider != provider {
		return apperr.Unauthorized("State was issued for a different provider")
	}

	return nil
}
