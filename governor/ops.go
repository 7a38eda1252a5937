package governor

import (
	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/types"
)

// Result bundles an operation's return value with the effects it
// queued, mirroring spec.md §5's "effects emitted as deferred actions
// the host ledger performs after the handler returns."
type Result[T any] struct {
	Value   T
	Effects []effects.Effect
}

// Propose implements spec.md §4.2/§6 propose (label AddProposal).
func (g *Governor) Propose(proposer types.AccountID, description string, list []instructions.Instruction, attachedBond types.Balance, now types.Timestamp) (Result[uint64], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	id, err := g.Store.Propose(proposer, description, list, attachedBond, now)
	return Result[uint64]{Value: id, Effects: g.drainEffects()}, err
}

// CounterPropose implements spec.md §4.2/§6 counter_propose (label
// AddCounterProposal).
func (g *Governor) CounterPropose(id uint64, proposer types.AccountID, description string, list []instructions.Instruction) (Result[uint8], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	version, err := g.Store.CounterPropose(id, proposer, description, list)
	return Result[uint8]{Value: version, Effects: g.drainEffects()}, err
}

// Approve implements spec.md §4.2/§6 approve (label VoteApprove).
func (g *Governor) Approve(id uint64, version uint8, caller types.AccountID, now types.Timestamp) (Result[governance.Status], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	status, err := g.Store.Approve(id, version, caller, now)
	return Result[governance.Status]{Value: status, Effects: g.drainEffects()}, err
}

// Reject implements spec.md §4.2/§6 reject (label VoteReject).
func (g *Governor) Reject(id uint64, caller types.AccountID, now types.Timestamp) (Result[governance.Status], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	status, err := g.Store.Reject(id, caller, now)
	return Result[governance.Status]{Value: status, Effects: g.drainEffects()}, err
}

// Veto implements spec.md §4.2/§6 veto (label VoteRemove).
func (g *Governor) Veto(id uint64, version uint8, caller types.AccountID) (Result[struct{}], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	err := g.Store.Veto(id, version, caller)
	return Result[struct{}]{Effects: g.drainEffects()}, err
}

// Withdraw implements spec.md §4.2/§6 withdraw (label WithdrawProposal).
func (g *Governor) Withdraw(id uint64, version uint8, caller types.AccountID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	return g.Store.Withdraw(id, version, caller)
}

// Remove implements spec.md §4.2/§6 remove (label RemoveProposal).
func (g *Governor) Remove(id uint64, caller types.AccountID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	return g.Store.Remove(id, caller)
}

// Finalize implements spec.md §4.2/§6 finalize (label Finalize).
func (g *Governor) Finalize(id uint64, caller types.AccountID, now types.Timestamp) (Result[struct{}], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	err := g.Store.Finalize(id, caller, now)
	return Result[struct{}]{Effects: g.drainEffects()}, err
}

// Amend implements spec.md §4.2/§6 amend (label AmendProposal).
func (g *Governor) Amend(id uint64, version uint8, caller types.AccountID, description string, list []instructions.Instruction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	return g.Store.Amend(id, version, caller, description, list)
}

// BountyClaim implements spec.md §4.5/§6 claim (label bounty_claim).
func (g *Governor) BountyClaim(id uint64, caller types.AccountID, deadline types.Duration, attachedDeposit types.Balance, now types.Timestamp) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	return g.Bounty.Claim(id, caller, deadline, attachedDeposit, now)
}

// BountyDone implements spec.md §4.5/§6 done (label bounty_done).
func (g *Governor) BountyDone(id uint64, who *types.AccountID, caller types.AccountID, description string, attachedBond types.Balance, now types.Timestamp) (Result[uint64], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	proposalID, err := g.Bounty.Done(id, who, caller, description, attachedBond, now)
	return Result[uint64]{Value: proposalID, Effects: g.drainEffects()}, err
}

// BountyGiveup implements spec.md §4.5/§6 giveup (label bounty_giveup).
func (g *Governor) BountyGiveup(id uint64, caller types.AccountID, now types.Timestamp) (Result[bool], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshPolicyDerived()
	refunded, err := g.Bounty.Giveup(id, caller, now)
	return Result[bool]{Value: refunded, Effects: g.drainEffects()}, err
}

// Proposal returns the proposal with the given id, if any. Exposed for
// read-only hosts (e.g. the api package) so they don't reach into
// g.Store.Proposals directly and race with a concurrent mutating
// operation, all of which hold g.mu for their duration.
func (g *Governor) Proposal(id uint64) (*governance.Proposal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.Store.Proposals[id]
	return p, ok
}

// Proposals returns a snapshot of every proposal keyed by id.
func (g *Governor) Proposals() map[uint64]*governance.Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[uint64]*governance.Proposal, len(g.Store.Proposals))
	for id, p := range g.Store.Proposals {
		out[id] = p
	}
	return out
}

// StakingID returns the write-once staking contract account, or nil if
// unset (spec.md invariant I5).
func (g *Governor) StakingID() *types.AccountID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stakingID == nil {
		return nil
	}
	id := *g.stakingID
	return &id
}
