package governance

import (
	"testing"

	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/policy"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePolicyHost is a minimal PolicyHost that grants every action not
// listed in denied to everyone and always resolves the given VotePolicy,
// letting store tests drive the state machine without a full
// policy.Policy classification pass.
type fakePolicyHost struct {
	vp      policy.VotePolicy
	allowed map[string]bool // not consulted by CanExecuteAction
	denied  map[string]bool
}

func (f *fakePolicyHost) GetUserRoles(types.AccountID, types.Balance) map[string]policy.Role {
	return nil
}
func (f *fakePolicyHost) GetVotePolicy(string) policy.VotePolicy { return f.vp }
func (f *fakePolicyHost) CanExecuteAction(account types.AccountID, balance types.Balance, kind, action string) bool {
	if f.denied[action] {
		return false
	}
	return true
}

type fakeOracle struct {
	weights map[types.AccountID]types.Balance
	total   types.Balance
}

func (o *fakeOracle) UserWeight(a types.AccountID) types.Balance {
	if w, ok := o.weights[a]; ok {
		return w
	}
	return types.NewBalance(1)
}
func (o *fakeOracle) TotalDelegation() types.Balance { return o.total }

type fakeBonds struct {
	refunds map[types.AccountID]types.Balance
}

func (b *fakeBonds) RefundBond(to types.AccountID, amount types.Balance) {
	if b.refunds == nil {
		b.refunds = make(map[types.AccountID]types.Balance)
	}
	b.refunds[to] = b.refunds[to].Add(amount)
}

func newTestStore(vp policy.VotePolicy) (*Store, *fakeBonds) {
	bonds := &fakeBonds{}
	s := NewStore(&fakePolicyHost{vp: vp, denied: map[string]bool{}}, &fakeOracle{weights: map[types.AccountID]types.Balance{}}, bonds, log.NewNopLogger())
	s.ProposalBond = types.NewBalance(100)
	s.ProposalPeriod = types.Duration(1000)
	// Large so a TokenWeight WeightThreshold(w) resolves to exactly w
	// (resolve is min(w, total)) rather than being clamped by a zero total.
	s.TotalSupply = types.NewBalance(1_000_000_000)
	return s, bonds
}

func sampleInstructions() []instructions.Instruction {
	return []instructions.Instruction{instructions.Transfer(types.NativeToken, "bob", types.NewBalance(1))}
}

func TestProposeRequiresBond(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(1))})
	_, err := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(10), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrMinBond))
}

func TestProposeRequiresNonEmptyInstructions(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{})
	_, err := s.Propose("alice", "d", nil, types.NewBalance(100), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrEmptyInstructionSet))
}

func TestProposeCreatesInProgressProposal(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(1))})
	id, err := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	p := s.Proposals[id]
	require.NotNil(t, p)
	assert.Equal(t, StatusInProgress, p.Status.Tag)
	assert.Len(t, p.Versions, 1)
	// P1: all four per-version arrays equal length.
	assert.True(t, p.checkInvariants())
}

func TestCounterProposeAppendsVersion(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, err := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	require.NoError(t, err)

	// fakePolicyHost is not a *policy.Policy, so classify() returns
	// DefaultKindName for every list and kinds cannot diverge here; this
	// test covers the counter-propose bookkeeping only.
	version, err := s.CounterPropose(id, "carol", "d2", sampleInstructions())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), version)

	p := s.Proposals[id]
	assert.Len(t, p.Versions, 2)
	assert.True(t, p.checkInvariants())
}

func TestCounterProposeNoSuchProposal(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{})
	_, err := s.CounterPropose(999, "carol", "d", sampleInstructions())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrNoProposal))
}

// S6: double-vote and vote-switch.
func TestHandleVoteAlreadyVotedSameChoice(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	_, err := s.Approve(id, 0, "a", 0)
	require.NoError(t, err)
	_, err = s.Approve(id, 0, "a", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrAlreadyVoted))
}

func TestHandleVoteSwitchReassignsTallyWithoutDoubleCharge(t *testing.T) {
	s, bonds := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(5))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(3)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	status, err := s.Approve(id, 0, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, status.Tag)
	p := s.Proposals[id]
	assert.Equal(t, types.NewBalance(3), p.ApproveCount[0])
	assert.True(t, p.RejectCount.IsZero())

	status, err = s.Reject(id, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, status.Tag)
	p = s.Proposals[id]
	// P6: weight moved entirely from approve[0] to reject, no double charge.
	assert.True(t, p.ApproveCount[0].IsZero())
	assert.Equal(t, types.NewBalance(3), p.RejectCount)
	_ = bonds
}

// S3: counter-proposal race — a third vote on v1 crosses threshold first.
func TestCounterProposalRaceApprovesLaterVersionAndRefundsBothProposers(t *testing.T) {
	s, bonds := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(2))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{
		"v1": types.NewBalance(1), "v2": types.NewBalance(1), "v3": types.NewBalance(1),
	}}
	id, _ := s.Propose("proposerA", "v0 text", sampleInstructions(), types.NewBalance(100), 0)
	_, err := s.CounterPropose(id, "proposerB", "v1 text", sampleInstructions())
	require.NoError(t, err)

	_, err = s.Approve(id, 0, "v1", 0) // approve v0, weight 1
	require.NoError(t, err)
	_, err = s.Approve(id, 1, "v2", 0) // approve v1, weight 1
	require.NoError(t, err)
	status, err := s.Approve(id, 1, "v3", 0) // approve v1 again, weight 1 -> crosses threshold 2
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status.Tag)
	assert.Equal(t, uint8(1), status.Version)

	// bonds refunded to BOTH proposers regardless of which version won.
	assert.Equal(t, types.NewBalance(100), bonds.refunds["proposerA"])
	assert.Equal(t, types.NewBalance(100), bonds.refunds["proposerB"])
}

func TestHandleVoteRejectsWhenRejectCountCrossesThreshold(t *testing.T) {
	s, bonds := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(5))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(5)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	status, err := s.Reject(id, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, status.Tag)
	assert.Equal(t, types.NewBalance(100), bonds.refunds["alice"])
}

func TestWithdrawOnlyByProposerBeforeVotes(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	err := s.Withdraw(id, 0, "mallory")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrUnauthorizedWithdraw))

	err = s.Withdraw(id, 0, "alice")
	require.NoError(t, err)
	assert.True(t, s.Proposals[id].RemoveFlag[0])
}

func TestWithdrawFailsOnceVotingBegun(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(1)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	_, err := s.Approve(id, 0, "a", 0)
	require.NoError(t, err)

	err = s.Withdraw(id, 0, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrVotingBegun))
}

func TestWithdrawAlreadyRemoved(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	require.NoError(t, s.Withdraw(id, 0, "alice"))
	err := s.Withdraw(id, 0, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrAlreadyRemoved))
}

func TestAmendByOriginalProposerBeforeVotes(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	err := s.Amend(id, 0, "mallory", "new desc", sampleInstructions())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrUnauthorizedAmend))

	err = s.Amend(id, 0, "alice", "new desc", sampleInstructions())
	require.NoError(t, err)
	assert.Equal(t, "new desc", s.Proposals[id].Versions[0].Description)
}

func TestAmendFailsOnceVotingBegun(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(1)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	_, err := s.Approve(id, 0, "a", 0)
	require.NoError(t, err)

	err = s.Amend(id, 0, "alice", "new desc", sampleInstructions())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrVotingBegun))
}

func TestVetoAccumulatesAndSetsRemoveFlag(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(2))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(1), "b": types.NewBalance(1)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	err := s.Veto(id, 0, "a")
	require.NoError(t, err)
	assert.False(t, s.Proposals[id].RemoveFlag[0])

	err = s.Veto(id, 0, "b")
	require.NoError(t, err)
	assert.True(t, s.Proposals[id].RemoveFlag[0])
}

func TestVetoRejectsDuplicateVote(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	require.NoError(t, s.Veto(id, 0, "a"))
	err := s.Veto(id, 0, "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrAlreadyVoted))
}

func TestVotingOnRemovedVersionFails(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(1))})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	s.Proposals[id].RemoveFlag[0] = true

	_, err := s.Approve(id, 0, "a", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrProposalRemoved))
}

func TestRemoveDeletesWithoutBondRefund(t *testing.T) {
	s, bonds := newTestStore(policy.VotePolicy{})
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)

	err := s.Remove(id, "anyone")
	require.NoError(t, err)
	_, ok := s.Proposals[id]
	assert.False(t, ok)
	assert.True(t, bonds.refunds["alice"].IsZero())
}

// S4: expire + finalize.
func TestFinalizeExpiresAfterProposalPeriod(t *testing.T) {
	s, bonds := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	s.ProposalPeriod = types.Duration(100)
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), types.Timestamp(0))

	err := s.Finalize(id, "anyone", types.Timestamp(50))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrProposalNotExpired))

	err = s.Finalize(id, "anyone", types.Timestamp(200))
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, s.Proposals[id].Status.Tag)
	assert.Equal(t, types.NewBalance(100), bonds.refunds["alice"])
}

func TestFinalizeRunsRejectPathForBountyDoneInstructions(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(100))})
	s.ProposalPeriod = types.Duration(10)
	id, _ := s.Propose("alice", "d", []instructions.Instruction{instructions.BountyDone(7, "bob")}, types.NewBalance(100), types.Timestamp(0))

	var rejectPathRanFor *Proposal
	s.RejectFn = func(p *Proposal) { rejectPathRanFor = p }

	err := s.Finalize(id, "anyone", types.Timestamp(100))
	require.NoError(t, err)
	require.NotNil(t, rejectPathRanFor)
	assert.Equal(t, id, uint64(0))
	assert.Equal(t, StatusExpired, rejectPathRanFor.Status.Tag)
}

// P3: a terminal-status proposal never changes tally or status thereafter.
func TestTerminalProposalRejectsFurtherVotes(t *testing.T) {
	s, _ := newTestStore(policy.VotePolicy{Threshold: policy.WeightThreshold(types.NewBalance(1))})
	s.Oracle = &fakeOracle{weights: map[types.AccountID]types.Balance{"a": types.NewBalance(5)}}
	id, _ := s.Propose("alice", "d", sampleInstructions(), types.NewBalance(100), 0)
	status, err := s.Reject(id, "a", 0)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, status.Tag)

	_, err = s.Approve(id, 0, "b", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrProposalNotInProgress))
}
