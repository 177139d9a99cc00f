// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package rbac implements role-hierarchy authorization and permission
resolution for the Altair identity core.

It defines the fixed system role ladder and the permission grammar, and
computes a user's effective permission set from role grants plus direct
grants.

# Architecture

Everything in this package is pure and stateless. The role table and the
permission catalog are process-wide static configuration injected at startup;
no function here touches a store or takes a lock.
*/
package rbac

// # Role Hierarchy

// Role is a role slug. Any string is a valid Role; slugs outside the system
// ladder are custom roles and sit at level 0.
type Role string

// The fixed system roles, in descending order of privilege.
const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// DefaultRole is the lowest-privilege system role assigned to new accounts.
// It is protected: it can never be deleted and is the fallback for every
// account created by registration or OAuth sign-in.
const DefaultRole = RoleMember

// roleLevels is the static privilege ladder. Levels are strictly increasing
// with privilege; gaps leave room for future roles without renumbering.
var roleLevels = map[Role]int{
	RoleOwner:   40,
	RoleAdmin:   30,
	RoleManager: 20,
	RoleMember:  10,
}

// topLevel is the level of the most privileged system role.
const topLevel = 40

// systemRoles lists the ladder in descending privilege order.
var systemRoles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleMember}

// SystemRoles returns the fixed system role set in descending privilege
// order. The returned slice is a copy.
func SystemRoles() []Role {
	out := make([]Role, len(systemRoles))
	copy(out, systemRoles)
	return out
}

// Level returns the hierarchy level of the role. Custom and unknown slugs
// return 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsSystem reports whether the role belongs to the fixed ladder.
func (r Role) IsSystem() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether the role meets or exceeds the required role's
// level.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

// CanManage reports whether an actor holding this role may manage a user
// holding the target role.
//
// Custom roles are outside the ladder, so only the topmost system role may
// manage them. Within the ladder, management is inclusive: an admin manages
// admins and below.
func (r Role) CanManage(target Role) bool {
	if target.Level() == 0 {
		return r.Level() == topLevel
	}
	return r.Level() >= target.Level()
}

// CanView reports whether an actor holding this role may see a user holding
// the target role in listings.
//
// The topmost role sees everything. Custom-role holders are visible only to
// the topmost role; otherwise visibility follows the same inclusive rule as
// [Role.CanManage].
func (r Role) CanView(target Role) bool {
	if r.Level() == topLevel {
		return true
	}
	if target.Level() == 0 {
		return false
	}
	return r.Level() >= target.Level()
}

// CanModify reports whether an actor holding this role may mutate a user
// holding the target role.
//
// Unlike CanManage this is strict: peers cannot modify each other even where
// same-level management (viewing) is allowed.
func (r Role) CanModify(target Role) bool {
	return r.Level() > target.Level()
}

// IsAssignable reports whether the role may be granted through self-service
// APIs. Only the topmost role is excluded: it is set through a privileged
// out-of-band path. Custom slugs are assignable; whether the actor may grant
// them is a separate [Role.CanManage] question.
func (r Role) IsAssignable() bool {
	return r.Level() != topLevel
}

// ManageableRoles returns the system roles this role may manage.
func (r Role) ManageableRoles() []Role {
	var out []Role
	for _, candidate := range systemRoles {
		if r.CanManage(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// ViewableRoles returns the system roles this role may see in listings.
func (r Role) ViewableRoles() []Role {
	var out []Role
	for _, candidate := range systemRoles {
		if r.CanView(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}
