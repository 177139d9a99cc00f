// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvquang/altair/internal/identity/rbac"
)

/*
TestRole_Level verifies the static ladder and the level-0 fallback for
custom slugs.
*/
func TestRole_Level(t *testing.T) {
	assert.Equal(t, 40, rbac.RoleOwner.Level())
	assert.Equal(t, 30, rbac.RoleAdmin.Level())
	assert.Equal(t, 20, rbac.RoleManager.Level())
	assert.Equal(t, 10, rbac.RoleMember.Level())

	// Custom and unknown slugs sit outside the ladder.
	assert.Equal(t, 0, rbac.Role("auditor").Level())
	assert.Equal(t, 0, rbac.Role("").Level())
	assert.False(t, rbac.Role("auditor").IsSystem())
}

/*
TestRole_CanManage exercises the inclusive management rule across every
system role pair, plus the custom-role carve-out.
*/
func TestRole_CanManage(t *testing.T) {
	system := rbac.SystemRoles()

	// For system pairs the rule is exactly level(actor) >= level(target).
	for _, actor := range system {
		for _, target := range system {
			expected := actor.Level() >= target.Level()
			assert.Equal(t, expected, actor.CanManage(target),
				"actor=%s target=%s", actor, target)
		}
	}

	// Custom roles are managed by the topmost role only.
	custom := rbac.Role("auditor")
	assert.True(t, rbac.RoleOwner.CanManage(custom))
	assert.False(t, rbac.RoleAdmin.CanManage(custom))
	assert.False(t, rbac.RoleMember.CanManage(custom))
}

/*
TestRole_CanView verifies topmost omniscience and custom-role visibility.
*/
func TestRole_CanView(t *testing.T) {
	custom := rbac.Role("auditor")

	assert.True(t, rbac.RoleOwner.CanView(custom))
	assert.True(t, rbac.RoleOwner.CanView(rbac.RoleMember))

	assert.False(t, rbac.RoleAdmin.CanView(custom))
	assert.True(t, rbac.RoleAdmin.CanView(rbac.RoleAdmin))
	assert.True(t, rbac.RoleAdmin.CanView(rbac.RoleMember))
	assert.False(t, rbac.RoleAdmin.CanView(rbac.RoleOwner))

	assert.False(t, rbac.RoleMember.CanView(rbac.RoleManager))
}

/*
TestRole_CanModify verifies the strict inequality that blocks peer and
self modification.
*/
func TestRole_CanModify(t *testing.T) {
	assert.True(t, rbac.RoleAdmin.CanModify(rbac.RoleMember))
	assert.False(t, rbac.RoleAdmin.CanModify(rbac.RoleAdmin))
	assert.False(t, rbac.RoleAdmin.CanModify(rbac.RoleOwner))
	assert.False(t, rbac.RoleMember.CanModify(rbac.RoleMember))
}

/*
TestRole_IsAssignable verifies that only the topmost role is rejected for
self-service assignment.
*/
func TestRole_IsAssignable(t *testing.T) {
	assert.False(t, rbac.RoleOwner.IsAssignable())
	assert.True(t, rbac.RoleAdmin.IsAssignable())
	assert.True(t, rbac.RoleManager.IsAssignable())
	assert.True(t, rbac.RoleMember.IsAssignable())

	// Custom slugs are assignable; only the topmost role may grant them.
	assert.True(t, rbac.Role("auditor").IsAssignable())
}

/*
TestRole_ManageableRoles verifies ladder filtering for both directions.
*/
func TestRole_ManageableRoles(t *testing.T) {
	assert.ElementsMatch(t,
		[]rbac.Role{rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleManager, rbac.RoleMember},
		rbac.RoleOwner.ManageableRoles())

	assert.ElementsMatch(t,
		[]rbac.Role{rbac.RoleAdmin, rbac.RoleManager, rbac.RoleMember},
		rbac.RoleAdmin.ManageableRoles())

	assert.ElementsMatch(t,
		[]rbac.Role{rbac.RoleMember},
		rbac.RoleMember.ManageableRoles())

	// A custom-role actor sits at level 0 and manages nothing.
	assert.Empty(t, rbac.Role("auditor").ManageableRoles())
}

/*
TestRole_ViewableRoles verifies that viewability matches manageability on
the system ladder.
*/
func TestRole_ViewableRoles(t *testing.T) {
	assert.ElementsMatch(t,
		[]rbac.Role{rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleManager, rbac.RoleMember},
		rbac.RoleOwner.ViewableRoles())

	assert.ElementsMatch(t,
		[]rbac.Role{rbac.RoleManager, rbac.RoleMember},
		rbac.RoleManager.ViewableRoles())
}
