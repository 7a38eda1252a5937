// Package policy implements spec.md §4.1: roles, permission matching,
// vote-policy lookup, threshold/quorum computation, and instruction-tag
// based proposal-kind classification. Grounded on the teacher's
// dao/security.go (Role/Permission model) and dao/validator.go
// (per-proposal-kind branching), generalized to the spec's permission
// strings and two weight regimes (see DESIGN.md).
package policy

import (
	"strings"

	"github.com/bockgov/governor/types"
)

// RoleKindTag distinguishes the three shapes of role membership in
// spec.md §3.
type RoleKindTag byte

const (
	RoleKindEveryone RoleKindTag = iota
	RoleKindMember
	RoleKindGroup
)

// RoleKind is a tagged union over the three role-membership shapes.
// Exactly one of the fields is meaningful, selected by Tag.
type RoleKind struct {
	Tag          RoleKindTag
	MinBalance   types.Balance    // meaningful when Tag == RoleKindMember
	GroupMembers types.AccountSet // meaningful when Tag == RoleKindGroup
}

// Everyone builds the Everyone role kind.
func Everyone() RoleKind {
	return RoleKind{Tag: RoleKindEveryone}
}

// Member builds a Member(min_balance) role kind.
func Member(min types.Balance) RoleKind {
	return RoleKind{Tag: RoleKindMember, MinBalance: min}
}

// Group builds a Group(set<account>) role kind.
func Group(members types.AccountSet) RoleKind {
	if members == nil {
		members = types.NewAccountSet()
	}
	return RoleKind{Tag: RoleKindGroup, GroupMembers: members}
}

// IsGroup reports whether this role kind has countable membership.
func (k RoleKind) IsGroup() bool {
	return k.Tag == RoleKindGroup
}

// Size returns the number of distinct accounts in a Group role. It is
// only meaningful for Group roles; callers must check IsGroup first (the
// spec requires get_threshold to fail with ERR_UNSUPPORTED_ROLE rather
// than silently treat a non-Group role as size 0).
func (k RoleKind) Size() int {
	return len(k.GroupMembers)
}

// Matches reports whether account qualifies for this role kind, per
// spec.md §4.1 get_user_roles: Everyone matches all; Member(m) matches
// when balance >= m; Group(s) matches when account is in s.
func (k RoleKind) Matches(account types.AccountID, balance types.Balance) bool {
	switch k.Tag {
	case RoleKindEveryone:
		return true
	case RoleKindMember:
		return balance.GreaterOrEqual(k.MinBalance)
	case RoleKindGroup:
		return k.GroupMembers.Contains(account)
	default:
		return false
	}
}

// Role is a named permission grant over a role kind, per spec.md §3.
type Role struct {
	Name        string
	Kind        RoleKind
	Permissions map[string]struct{}
}

// NewRole builds a Role from a permission-string list.
func NewRole(name string, kind RoleKind, permissions ...string) Role {
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	return Role{Name: name, Kind: kind, Permissions: perms}
}

// HasPermission reports whether the role grants permission for
// proposalKind/action, matching any of the four wildcard forms from
// spec.md §4.1 can_execute_action.
func (r Role) HasPermission(proposalKind, action string) bool {
	candidates := [...]string{
		proposalKind + ":" + action,
		proposalKind + ":*",
		"*:" + action,
		"*:*",
	}
	for _, c := range candidates {
		if _, ok := r.Permissions[c]; ok {
			return true
		}
	}
	return false
}

// grantsVoteApprove reports whether the role's permission set grants
// VoteApprove on the given proposal kind, used by get_threshold's
// RoleWeight eligibility scan (spec.md §4.1).
func (r Role) grantsVoteApprove(proposalKind string) bool {
	return r.HasPermission(proposalKind, "VoteApprove")
}

// splitPermission is a small helper retained for callers that want to
// validate permission-string shape before registering a role.
func splitPermission(perm string) (kind, action string, ok bool) {
	idx := strings.IndexByte(perm, ':')
	if idx < 0 {
		return "", "", false
	}
	return perm[:idx], perm[idx+1:], true
}
