package policy

import (
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Policy is the governance configuration aggregate from spec.md §3:
// ordered proposal kinds, ordered roles, the default vote policy, and the
// bond/period parameters. It is replaced wholesale by a ChangePolicy
// instruction, never patched field by field (see SPEC_FULL.md's ambient
// configuration section).
type Policy struct {
	ProposalKinds          []ProposalKind
	Roles                  []Role
	DefaultVotePolicy      VotePolicy
	ProposalBond           types.Balance
	ProposalPeriod         types.Duration
	BountyBond             types.Balance
	BountyForgivenessPeriod types.Duration
}

// NewDefaultPolicy returns a conservative starting policy: a single
// Everyone role "all" that may add proposals and vote approve/reject on
// any kind, ratio-majority TokenWeight voting,
// and a one-day proposal period, matching the teacher's
// NewDAOConfig()-style "sane defaults" constructor (dao/state.go).
func NewDefaultPolicy() Policy {
	const day = types.Duration(24 * 60 * 60 * 1_000_000_000)
	return Policy{
		ProposalKinds: nil,
		Roles: []Role{
			NewRole("all", Everyone(), "*:AddProposal", "*:VoteApprove", "*:VoteReject"),
		},
		DefaultVotePolicy: VotePolicy{
			WeightKind: TokenWeight,
			Quorum:     types.ZeroBalance,
			Threshold:  RatioThreshold(1, 2),
		},
		ProposalBond:            types.ZeroBalance,
		ProposalPeriod:          day,
		BountyBond:              types.ZeroBalance,
		BountyForgivenessPeriod: types.Duration(0),
	}
}

// GetVotePolicy returns the VotePolicy for kindName, falling back to
// DefaultVotePolicy, per spec.md §4.1 get_vote_policy.
func (p Policy) GetVotePolicy(kindName string) VotePolicy {
	for _, k := range p.ProposalKinds {
		if k.Name == kindName {
			return k.VotePolicy
		}
	}
	return p.DefaultVotePolicy
}

// GetUserRoles returns every role matching account/balance, keyed by role
// name, per spec.md §4.1 get_user_roles.
func (p Policy) GetUserRoles(account types.AccountID, balance types.Balance) map[string]Role {
	out := make(map[string]Role)
	for _, r := range p.Roles {
		if r.Kind.Matches(account, balance) {
			out[r.Name] = r
		}
	}
	return out
}

// CanExecuteAction reports whether any role matched by account/balance
// grants proposalKind:action, per spec.md §4.1 can_execute_action.
func (p Policy) CanExecuteAction(account types.AccountID, balance types.Balance, proposalKind, action string) bool {
	for _, r := range p.Roles {
		if !r.Kind.Matches(account, balance) {
			continue
		}
		if r.HasPermission(proposalKind, action) {
			return true
		}
	}
	return false
}

// AddMemberToRole adds account to the named Group role. Per spec.md §4.1,
// this must never fail the caller: on wrong role kind or missing role it
// logs and no-ops, because it is invoked during already-approved
// proposal execution where aborting is worse than a partial apply (see
// DESIGN.md Open Question 3).
func (p *Policy) AddMemberToRole(logger log.Logger, roleName string, account types.AccountID) {
	for i := range p.Roles {
		if p.Roles[i].Name != roleName {
			continue
		}
		if !p.Roles[i].Kind.IsGroup() {
			level.Warn(logger).Log("msg", "add_member_to_role: role is not a Group role, ignoring", "role", roleName)
			return
		}
		p.Roles[i].Kind.GroupMembers.Add(account)
		level.Info(logger).Log("msg", "added member to role", "role", roleName, "account", account)
		return
	}
	level.Warn(logger).Log("msg", "add_member_to_role: role not found, ignoring", "role", roleName)
}

// RemoveMemberFromRole mirrors AddMemberToRole for removal.
func (p *Policy) RemoveMemberFromRole(logger log.Logger, roleName string, account types.AccountID) {
	for i := range p.Roles {
		if p.Roles[i].Name != roleName {
			continue
		}
		if !p.Roles[i].Kind.IsGroup() {
			level.Warn(logger).Log("msg", "remove_member_from_role: role is not a Group role, ignoring", "role", roleName)
			return
		}
		p.Roles[i].Kind.GroupMembers.Remove(account)
		level.Info(logger).Log("msg", "removed member from role", "role", roleName, "account", account)
		return
	}
	level.Warn(logger).Log("msg", "remove_member_from_role: role not found, ignoring", "role", roleName)
}
