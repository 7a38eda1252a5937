package governor

import (
	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/policy"
	"github.com/bockgov/governor/types"
)

// instructionPolicyHost satisfies instructions.PolicyHost, mutating the
// governor's live Policy value in place for ChangeConfig/ChangePolicy and
// role-edit instructions. ChangeConfig has no dedicated config struct in
// this module (spec.md's "config" blob is opaque ambient data the host
// application owns); it is stored verbatim in Governor.Config.
type instructionPolicyHost struct{ g *Governor }

func (h *instructionPolicyHost) ReplaceConfig(config interface{}) {
	h.g.Config = config
}

func (h *instructionPolicyHost) ReplacePolicy(newPolicy interface{}) {
	if p, ok := newPolicy.(policy.Policy); ok {
		h.g.Policy = p
	}
}

func (h *instructionPolicyHost) AddMemberToRole(role string, account types.AccountID) {
	h.g.Policy.AddMemberToRole(h.g.Logger, role, account)
}

func (h *instructionPolicyHost) RemoveMemberFromRole(role string, account types.AccountID) {
	h.g.Policy.RemoveMemberFromRole(h.g.Logger, role, account)
}

// instructionStakingHost satisfies instructions.StakingHost, enforcing
// the write-once staking_id invariant (spec.md I5).
type instructionStakingHost struct{ g *Governor }

func (h *instructionStakingHost) SetStakingContract(account types.AccountID) error {
	if h.g.stakingID != nil {
		return types.Tagged(types.ErrInvalidStakingChange)
	}
	acc := account
	h.g.stakingID = &acc
	return nil
}

// instructionBountyHost adapts *bounty.Registry to instructions.BountyHost.
type instructionBountyHost struct{ g *Governor }

func (h *instructionBountyHost) AddBounty(spec instructions.BountySpec) uint64 {
	return h.g.Bounty.AddBounty(spec)
}

func (h *instructionBountyHost) PayoutBounty(id uint64, receiver types.AccountID, success bool) error {
	return h.g.Bounty.PayoutBounty(id, receiver, success)
}

// execDeps builds one instructions.Deps pointed at the live governor
// state, refreshing the bounty registry's policy-derived fields first
// (see bounty.Registry.BountyBond field doc comment).
func (g *Governor) execDeps() instructions.Deps {
	g.Bounty.BountyBond = g.Policy.BountyBond
	g.Bounty.ForgivenessPeriod = g.Policy.BountyForgivenessPeriod
	g.Bounty.Effects = &g.effectQueue
	return instructions.Deps{
		Policy:  &instructionPolicyHost{g: g},
		Staking: &instructionStakingHost{g: g},
		Bounty:  &instructionBountyHost{g: g},
		Logger:  g.Logger,
	}
}

// execVersion runs spec.md §4.3's instruction fan-out for the winning
// version of an Approved proposal. Passed to governance.Store.HandleVote
// as its exec callback.
func (g *Governor) execVersion(p *governance.Proposal, version uint8) error {
	list := p.Versions[version].Instructions
	return instructions.Execute(list, g.execDeps(), &g.effectQueue)
}

// rejectPath runs spec.md §4.4 item 2 across every version of p. Passed
// to governance.Store.Finalize (and invoked directly from HandleVote's
// Rejected branch).
func (g *Governor) rejectPath(p *governance.Proposal) {
	allVersions := make([][]instructions.Instruction, len(p.Versions))
	for i, v := range p.Versions {
		allVersions[i] = v.Instructions
	}
	instructions.RejectPath(allVersions, g.execDeps())
}
