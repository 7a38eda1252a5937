package governance

import (
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/policy"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// PolicyHost is the subset of policy state the store consults for
// permission checks, threshold computation, and proposal-kind
// classification. Satisfied by *policy.Policy directly since governance
// already depends on policy (no cycle risk here, unlike instructions).
type PolicyHost interface {
	GetUserRoles(account types.AccountID, balance types.Balance) map[string]policy.Role
	GetVotePolicy(kindName string) policy.VotePolicy
	CanExecuteAction(account types.AccountID, balance types.Balance, proposalKind, action string) bool
}

// WeightOracle is the read-only voting-weight source of spec.md §9,
// mirrored here (rather than imported from the oracle package) to avoid
// forcing every governance caller to depend on a concrete oracle
// implementation; oracle.StaticOracle satisfies this structurally.
type WeightOracle interface {
	UserWeight(account types.AccountID) types.Balance
	TotalDelegation() types.Balance
}

// BondHost refunds/charges the proposal bond held by the governor on
// behalf of proposers. Defined here to avoid importing the governor
// package (which imports governance).
type BondHost interface {
	RefundBond(to types.AccountID, amount types.Balance)
}

// Store is the proposal topic map plus its operations, implementing
// spec.md §4.2 and §4.4. Grounded on the teacher's ProposalManager
// wrapping a map[Hash]*Proposal plus last-id counter (dao/proposal_manager.go).
type Store struct {
	Proposals      map[uint64]*Proposal
	LastProposalID uint64

	Policy      PolicyHost
	Oracle      WeightOracle
	Bonds       BondHost
	ProposalBond types.Balance // refreshed from live policy before each call
	ProposalPeriod types.Duration
	TotalSupply types.Balance // refreshed from oracle.TotalDelegation() under TokenWeight
	Logger      log.Logger

	// ExecFn runs the instruction executor against the winning version of
	// a proposal that just transitioned to Approved (spec.md §4.3). Set
	// by the governor after construction to avoid this package depending
	// on the instructions executor's concrete host adapters.
	ExecFn func(p *Proposal, version uint8) error
	// RejectFn runs the reject-path bounty release of spec.md §4.4 item 2
	// across every version of p. Set by the governor after construction.
	RejectFn func(p *Proposal)
	// StakingSet reports whether staking_id is already set, used by
	// Propose's early SetStakingContract check (spec.md invariant I5). Set
	// by the governor after construction.
	StakingSet func() bool
}

func NewStore(policyHost PolicyHost, oracle WeightOracle, bonds BondHost, logger log.Logger) *Store {
	return &Store{
		Proposals: make(map[uint64]*Proposal),
		Policy:    policyHost,
		Oracle:    oracle,
		Bonds:     bonds,
		Logger:    logger,
	}
}

func classify(policyHost PolicyHost, list []instructions.Instruction) string {
	// match_proposal_kind needs the configured ProposalKind list, but
	// PolicyHost only exposes lookups by name; the governor passes the
	// concrete *policy.Policy here instead so classify can walk
	// ProposalKinds directly.
	if p, ok := policyHost.(*policy.Policy); ok {
		return policy.MatchProposalKind(p.ProposalKinds, instructions.TagSet(list))
	}
	return policy.DefaultKindName
}

// Propose implements spec.md §4.2 propose, and also satisfies
// bounty.ProposalHost so the bounty registry's Done() can create a
// BountyDone proposal through the same path.
func (s *Store) Propose(proposer types.AccountID, description string, list []instructions.Instruction, attachedBond types.Balance, now types.Timestamp) (uint64, error) {
	if attachedBond.LessThan(s.ProposalBond) {
		return 0, types.Tagged(types.ErrMinBond)
	}
	if err := instructions.ValidateSet(list); err != nil {
		return 0, err
	}
	if list[0].Tag() == types.TagSetStakingContract && s.StakingSet != nil && s.StakingSet() {
		return 0, types.Tagged(types.ErrStakingContractCantChange)
	}
	kind := classify(s.Policy, list)
	if !s.Policy.CanExecuteAction(proposer, s.Oracle.UserWeight(proposer), kind, "AddProposal") {
		return 0, types.Tagged(types.ErrPermissionDenied)
	}
	id := s.LastProposalID
	s.LastProposalID++
	s.Proposals[id] = &Proposal{
		Kind: kind,
		Versions: []ProposalVersion{{
			Proposer:     proposer,
			Description:  description,
			Instructions: list,
		}},
		Status:         InProgress(),
		ApproveCount:   []types.Balance{types.ZeroBalance},
		RejectCount:    types.ZeroBalance,
		RemoveCount:    []types.Balance{types.ZeroBalance},
		RemoveFlag:     []bool{false},
		Votes:          make(map[types.AccountID]Vote),
		SubmissionTime: now,
	}
	level.Info(s.Logger).Log("msg", "proposal created", "proposal_id", id, "kind", kind)
	return id, nil
}

// CounterPropose implements spec.md §4.2 counter_propose.
func (s *Store) CounterPropose(id uint64, proposer types.AccountID, description string, list []instructions.Instruction) (uint8, error) {
	p, ok := s.Proposals[id]
	if !ok {
		return 0, types.Tagged(types.ErrNoProposal)
	}
	if p.Status.Tag != StatusInProgress {
		return 0, types.Tagged(types.ErrProposalNotInProgress)
	}
	if err := instructions.ValidateSet(list); err != nil {
		return 0, err
	}
	kind := classify(s.Policy, list)
	if kind != p.Kind {
		return 0, types.Tagged(types.ErrDifferentProposalKind)
	}
	if !s.Policy.CanExecuteAction(proposer, s.Oracle.UserWeight(proposer), kind, "AddCounterProposal") {
		return 0, types.Tagged(types.ErrPermissionDenied)
	}
	p.Versions = append(p.Versions, ProposalVersion{
		Proposer:     proposer,
		Description:  description,
		Instructions: list,
	})
	p.ApproveCount = append(p.ApproveCount, types.ZeroBalance)
	p.RemoveCount = append(p.RemoveCount, types.ZeroBalance)
	p.RemoveFlag = append(p.RemoveFlag, false)
	version := uint8(len(p.Versions) - 1)
	level.Info(s.Logger).Log("msg", "counter-proposal added", "proposal_id", id, "version", version)
	return version, nil
}

func (s *Store) threshold(p *Proposal) (types.Balance, error) {
	vp := s.Policy.GetVotePolicy(p.Kind)
	total := s.TotalSupply
	if pp, ok := s.Policy.(*policy.Policy); ok {
		return policy.GetThreshold(vp, total, p.Kind, pp.Roles)
	}
	return policy.GetThreshold(vp, total, p.Kind, nil)
}

func (s *Store) weightOf(vp policy.VotePolicy, account types.AccountID) types.Balance {
	if vp.WeightKind == policy.TokenWeight {
		return s.Oracle.UserWeight(account)
	}
	return types.NewBalance(1)
}

// Approve implements spec.md §4.2 approve: dispatches to handle_vote(id, version+1).
func (s *Store) Approve(id uint64, version uint8, caller types.AccountID, now types.Timestamp) (Status, error) {
	return s.HandleVote(id, version+1, caller, now)
}

// Reject implements spec.md §4.2 reject: dispatches to handle_vote(id, 0).
func (s *Store) Reject(id uint64, caller types.AccountID, now types.Timestamp) (Status, error) {
	return s.HandleVote(id, 0, caller, now)
}

// HandleVote implements spec.md §4.2 handle_vote.
func (s *Store) HandleVote(id uint64, choice uint8, caller types.AccountID, now types.Timestamp) (Status, error) {
	p, ok := s.Proposals[id]
	if !ok {
		return Status{}, types.Tagged(types.ErrNoProposal)
	}
	if p.Status.Tag != StatusInProgress {
		return Status{}, types.Tagged(types.ErrProposalNotInProgress)
	}
	if int(choice) > len(p.Versions) {
		return Status{}, types.Tagged(types.ErrNoProposalVersion)
	}
	vp := s.Policy.GetVotePolicy(p.Kind)
	action := "VoteApprove"
	if choice == 0 {
		action = "VoteReject"
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, action) {
		return Status{}, types.Tagged(types.ErrPermissionDenied)
	}
	weight := s.weightOf(vp, caller)
	threshold, err := s.threshold(p)
	if err != nil {
		return Status{}, err
	}
	if choice != 0 && p.RemoveFlag[choice-1] {
		return Status{}, types.Tagged(types.ErrProposalRemoved)
	}
	if prior, voted := p.Votes[caller]; voted && prior.Choice == choice {
		return Status{}, types.Tagged(types.ErrAlreadyVoted)
	}
	newStatus := s.updateVotes(p, caller, choice, weight, threshold)
	p.Status = newStatus
	switch newStatus.Tag {
	case StatusApproved:
		level.Info(s.Logger).Log("msg", "proposal approved", "proposal_id", id, "version", newStatus.Version)
		s.refundAllBonds(p)
		if s.ExecFn != nil {
			if err := s.ExecFn(p, newStatus.Version); err != nil {
				level.Warn(s.Logger).Log("msg", "instruction execution failed", "proposal_id", id, "err", err)
			}
		}
	case StatusRejected:
		level.Info(s.Logger).Log("msg", "proposal rejected", "proposal_id", id)
		s.refundAllBonds(p)
		if s.RejectFn != nil {
			s.RejectFn(p)
		}
	}
	return newStatus, nil
}

// updateVotes implements spec.md §4.2 update_votes.
func (s *Store) updateVotes(p *Proposal, account types.AccountID, choice uint8, weight, threshold types.Balance) Status {
	if prior, ok := p.Votes[account]; ok {
		if prior.IsReject() {
			p.RejectCount = p.RejectCount.Sub(prior.Weight)
		} else {
			idx := prior.ApprovedVersion()
			p.ApproveCount[idx] = p.ApproveCount[idx].Sub(prior.Weight)
		}
	}
	p.Votes[account] = Vote{Choice: choice, Weight: weight}
	if choice == 0 {
		p.RejectCount = p.RejectCount.Add(weight)
	} else {
		idx := choice - 1
		p.ApproveCount[idx] = p.ApproveCount[idx].Add(weight)
	}
	if p.RejectCount.GreaterOrEqual(threshold) {
		return Rejected()
	}
	for idx, approved := range p.ApproveCount {
		if approved.GreaterOrEqual(threshold) {
			return Approved(uint8(idx))
		}
	}
	return InProgress()
}

func (s *Store) refundAllBonds(p *Proposal) {
	if s.Bonds == nil {
		return
	}
	for _, v := range p.Versions {
		s.Bonds.RefundBond(v.Proposer, s.ProposalBond)
	}
}

// Withdraw implements spec.md §4.2 withdraw.
func (s *Store) Withdraw(id uint64, version uint8, caller types.AccountID) error {
	p, ok := s.Proposals[id]
	if !ok {
		return types.Tagged(types.ErrNoProposal)
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, "WithdrawProposal") {
		return types.Tagged(types.ErrPermissionDenied)
	}
	if p.Status.Tag != StatusInProgress {
		return types.Tagged(types.ErrProposalNotInProgress)
	}
	if int(version) >= len(p.Versions) {
		return types.Tagged(types.ErrNoProposalVersion)
	}
	if p.RemoveFlag[version] {
		return types.Tagged(types.ErrAlreadyRemoved)
	}
	if p.Versions[version].Proposer != caller {
		return types.Tagged(types.ErrUnauthorizedWithdraw)
	}
	if p.ApproveCount[version].GreaterThan(types.ZeroBalance) || p.RemoveCount[version].GreaterThan(types.ZeroBalance) {
		return types.Tagged(types.ErrVotingBegun)
	}
	p.RemoveFlag[version] = true
	level.Info(s.Logger).Log("msg", "proposal version withdrawn", "proposal_id", id, "version", version)
	return nil
}

// Veto implements spec.md §4.2 veto.
func (s *Store) Veto(id uint64, version uint8, caller types.AccountID) error {
	p, ok := s.Proposals[id]
	if !ok {
		return types.Tagged(types.ErrNoProposal)
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, "VoteRemove") {
		return types.Tagged(types.ErrPermissionDenied)
	}
	if p.Status.Tag != StatusInProgress {
		return types.Tagged(types.ErrProposalNotInProgress)
	}
	if int(version) >= len(p.Versions) {
		return types.Tagged(types.ErrNoProposalVersion)
	}
	weight := s.weightOf(s.Policy.GetVotePolicy(p.Kind), caller)
	for _, rv := range p.RemoveVotes {
		if rv.Account == caller && rv.Version == version {
			return types.Tagged(types.ErrAlreadyVoted)
		}
	}
	p.RemoveVotes = append(p.RemoveVotes, RemoveVote{Account: caller, Version: version})
	p.RemoveCount[version] = p.RemoveCount[version].Add(weight)
	threshold, err := s.threshold(p)
	if err != nil {
		return err
	}
	if p.RemoveCount[version].GreaterOrEqual(threshold) {
		p.RemoveFlag[version] = true
		level.Info(s.Logger).Log("msg", "proposal version removed by veto", "proposal_id", id, "version", version)
	}
	return nil
}

// Remove implements spec.md §4.2 remove: deletes the proposal outright;
// bonds are NOT refunded (policy choice, recorded in DESIGN.md).
func (s *Store) Remove(id uint64, caller types.AccountID) error {
	p, ok := s.Proposals[id]
	if !ok {
		return types.Tagged(types.ErrNoProposal)
	}
	if p.Status.Tag != StatusInProgress {
		return types.Tagged(types.ErrProposalNotInProgress)
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, "RemoveProposal") {
		return types.Tagged(types.ErrPermissionDenied)
	}
	delete(s.Proposals, id)
	level.Info(s.Logger).Log("msg", "proposal removed without bond refund", "proposal_id", id)
	return nil
}

// Finalize implements spec.md §4.2 finalize: recomputes status, requires
// it to now be Expired, and runs the reject-path.
func (s *Store) Finalize(id uint64, caller types.AccountID, now types.Timestamp) error {
	p, ok := s.Proposals[id]
	if !ok {
		return types.Tagged(types.ErrNoProposal)
	}
	if p.Status.Tag != StatusInProgress {
		return types.Tagged(types.ErrProposalNotInProgress)
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, "Finalize") {
		return types.Tagged(types.ErrPermissionDenied)
	}
	if now.Sub(p.SubmissionTime) <= s.ProposalPeriod {
		return types.Tagged(types.ErrProposalNotExpired)
	}
	p.Status = Expired()
	level.Info(s.Logger).Log("msg", "proposal expired", "proposal_id", id)
	s.refundAllBonds(p)
	if s.RejectFn != nil {
		s.RejectFn(p)
	}
	return nil
}

// Amend implements spec.md §4.2 amend.
func (s *Store) Amend(id uint64, version uint8, caller types.AccountID, description string, list []instructions.Instruction) error {
	p, ok := s.Proposals[id]
	if !ok {
		return types.Tagged(types.ErrNoProposal)
	}
	if !s.Policy.CanExecuteAction(caller, s.Oracle.UserWeight(caller), p.Kind, "AmendProposal") {
		return types.Tagged(types.ErrPermissionDenied)
	}
	if p.Status.Tag != StatusInProgress {
		return types.Tagged(types.ErrProposalNotInProgress)
	}
	if err := instructions.ValidateSet(list); err != nil {
		return err
	}
	kind := classify(s.Policy, list)
	if kind != p.Kind {
		return types.Tagged(types.ErrDifferentProposalKind)
	}
	if int(version) >= len(p.Versions) {
		return types.Tagged(types.ErrNoProposalVersion)
	}
	if p.Versions[version].Proposer != caller {
		return types.Tagged(types.ErrUnauthorizedAmend)
	}
	if p.ApproveCount[version].GreaterThan(types.ZeroBalance) || p.RemoveCount[version].GreaterThan(types.ZeroBalance) {
		return types.Tagged(types.ErrVotingBegun)
	}
	p.Versions[version].Description = description
	p.Versions[version].Instructions = list
	level.Info(s.Logger).Log("msg", "proposal version amended", "proposal_id", id, "version", version)
	return nil
}
