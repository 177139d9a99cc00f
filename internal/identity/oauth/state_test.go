// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvquang/altair/internal/platform/constants"
)

/*
TestStateSigner_RoundTrip verifies that a freshly signed state passes
verification for the provider it was issued for.
*/
func TestStateSigner_RoundTrip(t *testing.T) {
	signer := NewStateSigner("test-secret")

	state, err := signer.Sign("google")
	require.NoError(t, err)
	require.NotEmpty(t, state)

	assert.NoError(t, signer.Verify(state, "google"))
}

/*
TestStateSigner_ProviderMismatch verifies that a state issued for one
provider is rejected on another provider's callback.
*/
func TestStateSigner_ProviderMismatch(t *testing.T) {
	signer := NewStateSigner("test-secret")

	state, err := signer.Sign("google")
	require.NoError(t, err)

	assert.Error(t, signer.Verify(state, "github"))
}

/*
TestStateSigner_Expiry verifies that a state older than its TTL is
rejected.
*/
func TestStateSigner_Expiry(t *testing.T) {
	signer := NewStateSigner("test-secret")

	state, err := signer.Sign("google")
	require.NoError(t, err)

	signer.now = func() time.Time {
		return time.Now().Add(constants.OAuthStateTTL + time.Minute)
	}
	assert.Error(t, signer.Verify(state, "google"))
}

/*
TestStateSigner_WrongKey verifies that a state signed with a different
secret fails verification.
*/
func TestStateSigner_WrongKey(t *testing.T) {
	signer := NewStateSigner("test-secret")
	other := NewStateSigner("other-secret")

	state, err := other.Sign("google")
	require.NoError(t, err)

	assert.Error(t, signer.Verify(state, "google"))
}

/*
TestStateSigner_Garbage verifies that an unparsable state is rejected.
*/
func TestStateSigner_Garbage(t *testing.T) {
	signer := NewStateSigner("test-secret")
	assert.Error(t, signer.Verify("not-a-token", "google"))
}
