// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// GitHubProvider implements the Provider interface against the GitHub REST
// API.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider builds a GitHub provider for the given client
// credentials and callback URL.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// Name returns "github".
func (provider *GitHubProvider) Name() string { return "github" }

// AuthorizationURL builds the GitHub consent URL carrying the state.
func (provider *GitHubProvider) AuthorizationURL(state string) string {
	return provider.config.AuthCodeURL(state)
}

/*
ExchangeCodeForProfile trades the callback code for the user's identity.

Description: GitHub's /user document hides private email addresses and
carries no verified flag, so the primary address is resolved through
/user/emails, which reports per-address verification. Absence of a primary
address leaves EmailVerified nil; the linker treats that as unverified.

Parameters:
  - ctx: context.Context
  - code: The authorization code from the callback.

Returns:
  - *Profile: The identity snapshot
  - error: Exchange or profile-fetch failures
*/
func (provider *GitHubProvider) ExchangeCodeForProfile(ctx context.Context, code string) (*Profile, error) {
	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github_code_exchange_failed: %w", err)
	}

	client := provider.config.Client(ctx, token)

	user, err := fetchGitHubUser(client)
	if err != nil {
		return nil, err
	}

	email, verified, err := fetchGitHubPrimaryEmail(client)
	if err != nil {
		return nil, err
	}

	displayName := user.Name
	if displayName == "" {
		displayName = user.Login
	}

	profile := &Profile{
		Provider:    provider.Name(),
		ExternalID:  strconv.FormatInt(user.ID, 10),
		Email:       email,
		DisplayName: displayName,
	}
	if email != "" {
		profile.EmailVerified = &verified
	}

	return profile, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

func fetchGitHubUser(client *http.Client) (*githubUser, error) {
	response, err := client.Get(githubUserURL)
	if err != nil {
		return nil, fmt.Errorf("github_user_fetch_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github_user_fetch_failed: status %d", response.StatusCode)
	}

	user := &githubUser{}
	if err := json.NewDecoder(response.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("github_user_decode_failed: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("github_user_fetch_failed: missing id")
	}

	return user, nil
}

func fetchGitHubPrimaryEmail(client *http.Client) (string, bool, error) {
	response, err := client.Get(githubEmailsURL)
	if err != nil {
		return "", false, fmt.Errorf("github_emails_fetch_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("github_emails_fetch_failed: status %d", response.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(response.Body).Decode(&emails); err != nil {
		return "", false, fmt.Errorf("github_emails_decode_failed: %w", err)
	}

	for _, entry := range emails {
		if entry.Primary {
			return entry.Email, entry.Verified, nil
		}
	}

	return "", false, nil
}
