// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package rbac

import "regexp"

// # Permission Grammar

// Permission is a permission string of the form "resource:action" or
// "resource:action:scope", or the [Wildcard] sentinel.
type Permission string

// Wildcard grants unconditional access and bypasses all specific checks.
const Wildcard Permission = "*"

// permissionPattern validates the resource:action[:scope] grammar. Segments
// are lowercase slugs; the scope segment may itself be "*".
var permissionPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*:[a-z][a-z0-9_-]*(:([a-z][a-z0-9_-]*|\*))?$`)

// Valid reports whether the permission string is well formed. Validation
// happens at the point of grant; resolution and checks accept any string.
func (p Permission) Valid() bool {
	if p == Wildcard {
		return true
	}
	return permissionPattern.MatchString(string(p))
}

// # Effective Permission Set

// Set is a resolved, de-duplicated effective permission set.
type Set map[Permission]struct{}

// NewSet builds a Set from the given permissions.
func NewSet(perms ...Permission) Set {
	set := make(Set, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission. The wildcard
// short-circuits every check to true.
func (s Set) Has(p Permission) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[p]
	return ok
}

// HasAny reports whether the set contains at least one of the required
// permissions. An empty requirement list is false.
func (s Set) HasAny(required ...Permission) bool {
	if _, ok := s[Wildcard]; ok {
		return len(required) > 0
	}
	for _, p := range required {
		if _, ok := s[p]; ok {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every required permission. An
// empty requirement list is vacuously true.
func (s Set) HasAll(required ...Permission) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	for _, p := range required {
		if _, ok := s[p]; ok {
			continue
		}
		return false
	}
	return true
}

// List returns the set's members as strings, in unspecified order.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	return out
}

// # Catalog

// Catalog maps roles to their granted permission lists. It is immutable
// after construction and safe for concurrent use.
type Catalog struct {
	grants map[Role][]Permission
}

// NewCatalog builds a catalog from role grants. The map is copied; callers
// may not mutate grants through the original reference afterwards.
func NewCatalog(grants map[Role][]Permission) *Catalog {
	copied := make(map[Role][]Permission, len(grants))
	for role, perms := range grants {
		copied[role] = append([]Permission(nil), perms...)
	}
	return &Catalog{grants: copied}
}

// DefaultCatalog returns the built-in grants for the system role ladder.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[Role][]Permission{
		RoleOwner: {Wildcard},
		RoleAdmin: {
			"users:read", "users:write", "users:delete",
			"roles:read", "roles:assign",
			"sessions:read", "sessions:revoke",
		},
		RoleManager: {
			"users:read",
			"roles:read",
			"sessions:read",
		},
		RoleMember: {
			"profile:read:self", "profile:write:self",
			"sessions:read:self", "sessions:revoke:self",
		},
	})
}

// RolePermissions returns the permission list granted to a role. Unknown
// roles have no grants.
func (c *Catalog) RolePermissions(role Role) []Permission {
	perms := c.grants[role]
	return append([]Permission(nil), perms...)
}

// Resolve computes the effective permission set for a role plus direct
// grants. The result is the de-duplicated union of both sources and is
// always a superset of the direct grants.
func (c *Catalog) Resolve(role Role, direct []string) Set {
	perms := c.grants[role]
	set := make(Set, len(perms)+len(direct))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	for _, p := range direct {
		set[Permission(p)] = struct{}{}
	}
	return set
}
