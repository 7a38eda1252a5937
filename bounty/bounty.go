// Package bounty implements spec.md §4.5: the bounty registry, claim
// lifecycle, deadline and forgiveness-period accounting. Grounded on the
// teacher's dao/treasury.go (TreasuryManager's pending-transaction
// lifecycle: create -> sign/expire -> execute, and its bond-refund-on-
// timely-exit pattern), adapted to a claim/deadline state machine instead
// of a multisig one (see DESIGN.md).
package bounty

import (
	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Bounty is a postable reward, per spec.md §3.
type Bounty struct {
	Description string
	Token       types.TokenID
	Amount      types.Balance
	Times       uint32 // remaining payouts allowed
	MaxDeadline types.Duration
}

// Claim is one claimant's in-progress attempt at a bounty, per spec.md §3.
type Claim struct {
	BountyID  uint64
	StartTime types.Timestamp
	Deadline  types.Duration
	Completed bool
}

// ProposalHost is the subset of the governance store bounty.Done() calls
// back into to create the BountyDone proposal that governance-approves
// the payout. Defined here rather than imported from governance so the
// bounty package does not depend on governance; the governor package
// wires governance.Store in through an adapter.
type ProposalHost interface {
	Propose(proposer types.AccountID, description string, list []instructions.Instruction, attachedBond types.Balance, now types.Timestamp) (uint64, error)
}

// Registry holds the bounty registry and per-account claim lists, per
// spec.md §3's bounties/bounty_claims_count/bounty_claimers global state.
type Registry struct {
	Bounties          map[uint64]*Bounty
	ClaimsCount       map[uint64]uint32
	ClaimsByAccount   map[types.AccountID][]Claim
	LastBountyID      uint64
	BountyBond        types.Balance // refreshed from live policy before each call
	ForgivenessPeriod types.Duration
	Proposals         ProposalHost
	Effects           *effects.Queue // set by the caller before a call that may emit a transfer
	Logger            log.Logger
}

func NewRegistry(proposals ProposalHost, logger log.Logger) *Registry {
	return &Registry{
		Bounties:        make(map[uint64]*Bounty),
		ClaimsCount:     make(map[uint64]uint32),
		ClaimsByAccount: make(map[types.AccountID][]Claim),
		Proposals:       proposals,
		Logger:          logger,
	}
}

// AddBounty implements instructions.BountyHost, per spec.md §4.5
// add_bounty.
func (r *Registry) AddBounty(spec instructions.BountySpec) uint64 {
	id := r.LastBountyID
	r.LastBountyID++
	r.Bounties[id] = &Bounty{
		Description: spec.Description,
		Token:       spec.Token,
		Amount:      spec.Amount,
		Times:       spec.Times,
		MaxDeadline: spec.MaxDeadline,
	}
	r.ClaimsCount[id] = 0
	level.Info(r.Logger).Log("msg", "bounty registered", "bounty_id", id, "times", spec.Times)
	return id
}

// Claim implements spec.md §4.5 claim: preconditions checked, a new Claim
// recorded for caller.
func (r *Registry) Claim(id uint64, caller types.AccountID, deadline types.Duration, attachedDeposit types.Balance, now types.Timestamp) error {
	b, ok := r.Bounties[id]
	if !ok {
		return types.Tagged(types.ErrNoBounty)
	}
	if attachedDeposit.Cmp(r.BountyBond) != 0 {
		return types.Tagged(types.ErrBountyWrongBond)
	}
	if r.ClaimsCount[id] >= b.Times {
		return types.Tagged(types.ErrBountyAllClaimed)
	}
	if deadline > b.MaxDeadline {
		return types.Tagged(types.ErrBountyWrongDeadline)
	}
	r.ClaimsCount[id]++
	r.ClaimsByAccount[caller] = append(r.ClaimsByAccount[caller], Claim{
		BountyID:  id,
		StartTime: now,
		Deadline:  deadline,
		Completed: false,
	})
	level.Info(r.Logger).Log("msg", "bounty claimed", "bounty_id", id, "account", caller)
	return nil
}

// lookupClaim locates account's claim on bountyID, distinguishing "this
// account has no claims at all" (ERR_NO_BOUNTY_CLAIMS) from "this account
// has claims, but none on this bounty" (ERR_NO_BOUNTY_CLAIM), mirroring
// the original contract's internal_get_claims two-step lookup.
func (r *Registry) lookupClaim(account types.AccountID, bountyID uint64) (int, error) {
	claims, ok := r.ClaimsByAccount[account]
	if !ok {
		return -1, types.Tagged(types.ErrNoBountyClaims)
	}
	for i := range claims {
		if claims[i].BountyID == bountyID {
			return i, nil
		}
	}
	return -1, types.Tagged(types.ErrNoBountyClaim)
}

// findClaim locates account's claim on bountyID, returning its index or
// -1 if not found, without distinguishing the two missing-claim cases;
// used where only existence matters (PayoutBounty).
func (r *Registry) findClaim(account types.AccountID, bountyID uint64) int {
	claims := r.ClaimsByAccount[account]
	for i := range claims {
		if claims[i].BountyID == bountyID {
			return i
		}
	}
	return -1
}

func (r *Registry) removeClaimAt(account types.AccountID, idx int) {
	claims := r.ClaimsByAccount[account]
	claims = append(claims[:idx], claims[idx+1:]...)
	if len(claims) == 0 {
		delete(r.ClaimsByAccount, account)
	} else {
		r.ClaimsByAccount[account] = claims
	}
}

func (r *Registry) freeSlot(bountyID uint64, account types.AccountID, idx int) {
	r.removeClaimAt(account, idx)
	if r.ClaimsCount[bountyID] > 0 {
		r.ClaimsCount[bountyID]--
	}
}

// Done implements spec.md §4.5 done: sender defaults to caller; an
// expired claim is freed without creating a proposal; otherwise the
// sender must be the caller, the claim is marked completed, and a new
// BountyDone proposal is created via propose().
func (r *Registry) Done(id uint64, who *types.AccountID, caller types.AccountID, description string, attachedBond types.Balance, now types.Timestamp) (uint64, error) {
	sender := caller
	if who != nil {
		sender = *who
	}
	idx, err := r.lookupClaim(sender, id)
	if err != nil {
		return 0, err
	}
	claim := r.ClaimsByAccount[sender][idx]
	if claim.Completed {
		return 0, types.Tagged(types.ErrBountyClaimCompleted)
	}
	if now.Sub(claim.StartTime) > claim.Deadline {
		r.freeSlot(id, sender, idx)
		level.Info(r.Logger).Log("msg", "bounty claim expired, slot freed", "bounty_id", id, "account", sender)
		return 0, nil
	}
	if sender != caller {
		return 0, types.Tagged(types.ErrBountyDoneMustBeSelf)
	}
	r.ClaimsByAccount[sender][idx].Completed = true
	proposalID, err := r.Proposals.Propose(caller, description, []instructions.Instruction{
		instructions.BountyDone(id, sender),
	}, attachedBond, now)
	if err != nil {
		r.ClaimsByAccount[sender][idx].Completed = false
		return 0, err
	}
	return proposalID, nil
}

// Giveup implements spec.md §4.5 giveup: refunds the bounty bond only if
// within the forgiveness period, and always removes the claim.
func (r *Registry) Giveup(id uint64, caller types.AccountID, now types.Timestamp) (refunded bool, err error) {
	idx, err := r.lookupClaim(caller, id)
	if err != nil {
		return false, err
	}
	claim := r.ClaimsByAccount[caller][idx]
	refund := now.Sub(claim.StartTime) <= r.ForgivenessPeriod
	r.freeSlot(id, caller, idx)
	if refund && r.Effects != nil {
		r.Effects.Push(effects.NativeTransfer(caller, r.BountyBond))
	}
	level.Info(r.Logger).Log("msg", "bounty claim given up", "bounty_id", id, "account", caller, "refunded", refund)
	return refund, nil
}

// PayoutBounty implements instructions.BountyHost, and spec.md §4.5
// execute_bounty_payout: removes the receiver's claim; on success emits a
// transfer and decrements Times, deleting the bounty once it reaches
// zero.
func (r *Registry) PayoutBounty(id uint64, receiver types.AccountID, success bool) error {
	idx := r.findClaim(receiver, id)
	if idx >= 0 {
		r.freeSlot(id, receiver, idx)
	}
	if !success {
		return nil
	}
	b, ok := r.Bounties[id]
	if !ok {
		return types.Tagged(types.ErrNoBounty)
	}
	if r.Effects != nil {
		if b.Token.IsNative() {
			r.Effects.Push(effects.NativeTransfer(receiver, b.Amount))
		} else {
			r.Effects.Push(effects.FungibleTransfer(b.Token, receiver, b.Amount))
		}
	}
	if b.Times > 0 {
		b.Times--
	}
	if b.Times == 0 {
		delete(r.Bounties, id)
		delete(r.ClaimsCount, id)
	}
	return nil
}
