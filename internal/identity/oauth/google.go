// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider implements the Provider interface against Google's OpenID
// Connect endpoints.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider builds a Google provider for the given client
// credentials and callback URL.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Name returns "google".
func (provider *GoogleProvider) Name() string { return "google" }

// AuthorizationURL builds the Google consent URL carrying the state.
func (provider *GoogleProvider) AuthorizationURL(state string) string {
	return provider.config.AuthCodeURL(state)
}

/*
ExchangeCodeForProfile trades the callback code for the user's identity.

Description: Exchanges the authorization code for an access token, then
reads the OpenID userinfo document. Google reports email_verified, which is
passed through verbatim; it is never synthesized.

Parameters:
  - ctx: context.Context
  - code: The authorization code from the callback.

Returns:
  - *Profile: The identity snapshot
  - error: Exchange or profile-fetch failures
*/
func (provider *GoogleProvider) ExchangeCodeForProfile(ctx context.Context, code string) (*Profile, error) {
	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google_code_exchange_failed: %w", err)
	}

	client := provider.config.Client(ctx, token)
	response, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("google_userinfo_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google_userinfo_failed: status %d", response.StatusCode)
	}

	var payload struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google_userinfo_decode_failed: %w", err)
	}
	if payload.Sub == "" {
		return nil, fmt.Errorf("google_userinfo_failed: missing subject")
	}

	return &Profile{
		Provider:      provider.Name(),
		ExternalID:    payload.Sub,
		Email:         payload.Email,
		DisplayName:   payload.Name,
		EmailVerified: payload.EmailVerified,
	}, nil
}
