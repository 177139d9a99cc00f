// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package oauth reconciles external provider identities against local
accounts.

Each provider implements the small [Provider] capability and registers in a
[Registry]; adding a provider means one implementation and one registry
entry, with no change to the [Linker]. The linker itself decides whether a
callback profile matches an existing identity, links onto an email-matched
account, or creates a fresh one.
*/
package oauth

import "context"

// # Provider Boundary

// Profile is the provider-supplied identity snapshot consumed once per
// callback. It is never persisted.
type Profile struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string

	// EmailVerified is the provider's assertion about the email address.
	// nil means the provider did not report it, which the linker treats
	// the same as false: auto-linking requires an affirmative true and
	// never defaults.
	EmailVerified *bool
}

// Verified reports whether the provider affirmatively asserted the email as
// verified.
func (profile *Profile) Verified() bool {
	return profile.EmailVerified != nil && *profile.EmailVerified
}

// Provider abstracts one external OAuth provider.
type Provider interface {

	// Name returns the registry key, e.g. "google".
	Name() string

	// AuthorizationURL builds the provider consent URL carrying the signed
	// state parameter.
	AuthorizationURL(state string) string

	// ExchangeCodeForProfile trades the callback code for the user's
	// identity snapshot.
	ExchangeCodeForProfile(ctx context.Context, code string) (*Profile, error)
}

// # Registry

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// Get returns the provider registered under name.
func (registry *Registry) Get(name string) (Provider, bool) {
	provider, ok := registry.providers[name]
	return provider, ok
}

// Names returns the registered provider names in unspecified order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	return names
}
