// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvquang/altair/internal/identity/rbac"
)

/*
TestPermission_Valid exercises the resource:action[:scope] grammar.
*/
func TestPermission_Valid(t *testing.T) {
	valid := []rbac.Permission{
		"*",
		"users:read",
		"users:write",
		"profile:read:self",
		"sessions:revoke:*",
		"billing-v2:read",
	}
	for _, p := range valid {
		assert.True(t, p.Valid(), "expected valid: %s", p)
	}

	invalid := []rbac.Permission{
		"",
		"users",
		"users:",
		":read",
		"Users:Read",
		"users read",
		"users:read:self:extra",
		"*:read",
	}
	for _, p := range invalid {
		assert.False(t, p.Valid(), "expected invalid: %s", p)
	}
}

/*
TestSet_Has verifies membership checks and the wildcard short-circuit.
*/
func TestSet_Has(t *testing.T) {
	set := rbac.NewSet("users:read", "users:write")

	assert.True(t, set.Has("users:read"))
	assert.False(t, set.Has("users:delete"))

	// An empty set grants nothing.
	assert.False(t, rbac.NewSet().Has("users:read"))

	// The wildcard short-circuits every check.
	wild := rbac.NewSet(rbac.Wildcard)
	assert.True(t, wild.Has("users:delete"))
	assert.True(t, wild.Has("anything:at:all"))
}

/*
TestSet_HasAnyHasAll verifies the quantified checks and their empty-list
edge cases.
*/
func TestSet_HasAnyHasAll(t *testing.T) {
	set := rbac.NewSet("users:read", "roles:read")

	assert.True(t, set.HasAny("users:delete", "users:read"))
	assert.False(t, set.HasAny("users:delete", "users:write"))

	assert.True(t, set.HasAll("users:read", "roles:read"))
	assert.False(t, set.HasAll("users:read", "users:write"))

	// Empty requirement lists: HasAll is vacuously true, HasAny is false.
	assert.True(t, set.HasAll())
	assert.False(t, set.HasAny())
	assert.False(t, rbac.NewSet(rbac.Wildcard).HasAny())
}

/*
TestCatalog_Resolve verifies the union of role grants and direct grants.
*/
func TestCatalog_Resolve(t *testing.T) {
	catalog := rbac.NewCatalog(map[rbac.Role][]rbac.Permission{
		rbac.RoleAdmin:  {"users:read", "users:write"},
		rbac.RoleMember: {"profile:read:self"},
	})

	// 1. Role grants plus direct grants, de-duplicated.
	effective := catalog.Resolve(rbac.RoleAdmin, []string{"users:read", "reports:read"})
	assert.True(t, effective.Has("users:read"))
	assert.True(t, effective.Has("users:write"))
	assert.True(t, effective.Has("reports:read"))
	assert.False(t, effective.Has("users:delete"))
	assert.Len(t, effective, 3)

	// 2. The result is always a superset of the direct grants.
	direct := []string{"a:b", "c:d"}
	effective = catalog.Resolve(rbac.Role("auditor"), direct)
	for _, p := range direct {
		assert.True(t, effective.Has(rbac.Permission(p)))
	}

	// 3. Unknown role contributes nothing.
	assert.Len(t, catalog.Resolve(rbac.Role("ghost"), nil), 0)

	// 4. A wildcard from either source makes every check pass.
	effective = catalog.Resolve(rbac.RoleMember, []string{"*"})
	assert.True(t, effective.Has("users:delete"))
}

/*
TestDefaultCatalog sanity-checks the built-in grants.
*/
func TestDefaultCatalog(t *testing.T) {
	catalog := rbac.DefaultCatalog()

	owner := catalog.Resolve(rbac.RoleOwner, nil)
	assert.True(t, owner.Has("anything:whatsoever"))

	member := catalog.Resolve(rbac.RoleMember, nil)
	assert.True(t, member.Has("profile:read:self"))
	assert.False(t, member.Has("users:read"))
}
