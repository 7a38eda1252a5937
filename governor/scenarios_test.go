package governor

import (
	"testing"

	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/policy"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func councilPolicy(members ...types.AccountID) policy.Policy {
	p := policy.NewDefaultPolicy()
	p.Roles = []policy.Role{
		policy.NewRole("council", policy.Group(types.NewAccountSet(members...)), "*:*"),
	}
	p.DefaultVotePolicy = policy.VotePolicy{
		WeightKind: policy.RoleWeight,
		Quorum:     types.ZeroBalance,
		Threshold:  policy.RatioThreshold(1, 2),
	}
	p.ProposalBond = types.NewBalance(1000)
	p.ProposalPeriod = types.Duration(1_000_000)
	p.BountyBond = types.NewBalance(1000)
	p.BountyForgivenessPeriod = types.Duration(100)
	return p
}

// S1: bounty full lifecycle, single council of 1.
func TestScenarioS1BountyFullLifecycle(t *testing.T) {
	g := New(councilPolicy("A"), log.NewNopLogger())

	bountyIns := instructions.AddBounty(instructions.BountySpec{
		Description: "pay for work",
		Amount:      types.NewBalance(10),
		Times:       2,
		MaxDeadline: types.Duration(1000),
	})
	res, err := g.Propose("A", "fund a bounty", []instructions.Instruction{bountyIns}, types.NewBalance(1000), 0)
	require.NoError(t, err)
	proposalID := res.Value

	approveRes, err := g.Approve(proposalID, 0, "A", 0)
	require.NoError(t, err)
	require.Equal(t, governance.StatusApproved, approveRes.Value.Tag)

	assert.Equal(t, uint64(1), g.Bounty.LastBountyID)
	assert.Equal(t, uint32(2), g.Bounty.Bounties[0].Times)

	require.NoError(t, g.BountyClaim(0, "A", types.Duration(500), types.NewBalance(1000), 0))
	assert.Equal(t, uint32(1), g.Bounty.ClaimsCount[0])

	giveupRes, err := g.BountyGiveup(0, "A", 0)
	require.NoError(t, err)
	assert.True(t, giveupRes.Value)
	assert.Equal(t, uint32(0), g.Bounty.ClaimsCount[0])

	require.NoError(t, g.BountyClaim(0, "A", types.Duration(500), types.NewBalance(1000), 0))

	doneRes, err := g.BountyDone(0, nil, "A", "done", types.NewBalance(1000), 100)
	require.NoError(t, err)
	newProposalID := doneRes.Value
	assert.NotEqual(t, proposalID, newProposalID)
	claims := g.Bounty.ClaimsByAccount["A"]
	require.Len(t, claims, 1)
	assert.True(t, claims[0].Completed)

	payoutRes, err := g.Approve(newProposalID, 0, "A", 100)
	require.NoError(t, err)
	require.Equal(t, governance.StatusApproved, payoutRes.Value.Tag)
	// Effects include both the proposal's bond refund and the bounty payout transfer.
	var payoutAmount types.Balance
	for _, e := range payoutRes.Effects {
		if e.Amount.Cmp(types.NewBalance(1000)) != 0 {
			payoutAmount = e.Amount
		}
	}
	assert.Equal(t, types.NewBalance(10), payoutAmount, "bounty payout of 10 must be emitted")

	assert.Equal(t, uint32(0), g.Bounty.ClaimsCount[0])
	assert.Equal(t, uint32(1), g.Bounty.Bounties[0].Times)
}

// S2: multi-council intersection.
func TestScenarioS2MultiCouncilIntersection(t *testing.T) {
	p := policy.NewDefaultPolicy()
	p.Roles = []policy.Role{
		policy.NewRole("group1", policy.Group(types.NewAccountSet("A", "B")), "*:*"),
		policy.NewRole("group2", policy.Group(types.NewAccountSet("A", "C", "D")), "*:*"),
	}
	p.DefaultVotePolicy = policy.VotePolicy{
		WeightKind: policy.RoleWeight,
		Quorum:     types.ZeroBalance,
		Threshold:  policy.RatioThreshold(1, 2),
	}
	p.ProposalBond = types.NewBalance(100)
	g := New(p, log.NewNopLogger())

	transferIns := instructions.Transfer(types.NativeToken, "recipient", types.NewBalance(5))
	res, err := g.Propose("A", "send funds", []instructions.Instruction{transferIns}, types.NewBalance(100), 0)
	require.NoError(t, err)
	id := res.Value

	status, err := g.Approve(id, 0, "B", 0)
	require.NoError(t, err)
	assert.Equal(t, governance.StatusInProgress, status.Value.Tag)

	status, err = g.Approve(id, 0, "C", 0)
	require.NoError(t, err)
	assert.Equal(t, governance.StatusInProgress, status.Value.Tag)

	// A is a member of both groups but still contributes weight 1, the
	// vote that crosses the eligible=5, threshold=3 line.
	status, err = g.Approve(id, 0, "A", 0)
	require.NoError(t, err)
	assert.Equal(t, governance.StatusApproved, status.Value.Tag)
	assert.Equal(t, uint8(0), status.Value.Version)
}

// S3: counter-proposal race.
func TestScenarioS3CounterProposalRace(t *testing.T) {
	g := New(councilPolicy("v1", "v2", "v3"), log.NewNopLogger())

	ins := []instructions.Instruction{instructions.Transfer(types.NativeToken, "x", types.NewBalance(1))}
	res, err := g.Propose("v1", "v0 text", ins, types.NewBalance(1000), 0)
	require.NoError(t, err)
	id := res.Value

	cpRes, err := g.CounterPropose(id, "v2", "v1 text", ins)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), cpRes.Value)

	status, err := g.Approve(id, 0, "v1", 0) // weight 1 on v0
	require.NoError(t, err)
	assert.Equal(t, governance.StatusInProgress, status.Value.Tag)

	status, err = g.Approve(id, 1, "v2", 0) // weight 1 on v1
	require.NoError(t, err)
	assert.Equal(t, governance.StatusInProgress, status.Value.Tag)

	status, err = g.Approve(id, 1, "v3", 0) // crosses threshold on v1 first
	require.NoError(t, err)
	assert.Equal(t, governance.StatusApproved, status.Value.Tag)
	assert.Equal(t, uint8(1), status.Value.Version)

	// bonds refunded to BOTH proposers, plus the winning version's own
	// Transfer instruction effect.
	refundToV1, refundToV2 := false, false
	for _, e := range status.Effects {
		if e.To == "v1" && e.Amount.Cmp(types.NewBalance(1000)) == 0 {
			refundToV1 = true
		}
		if e.To == "v2" && e.Amount.Cmp(types.NewBalance(1000)) == 0 {
			refundToV2 = true
		}
	}
	assert.True(t, refundToV1, "v0's proposer (v1) must be refunded")
	assert.True(t, refundToV2, "v1's proposer (v2) must be refunded")
	assert.Len(t, status.Effects, 3, "two bond refunds plus the winning version's transfer effect")
}

// S4: expire + finalize.
func TestScenarioS4ExpireAndFinalize(t *testing.T) {
	p := councilPolicy("A")
	p.ProposalPeriod = types.Duration(100)
	g := New(p, log.NewNopLogger())

	ins := []instructions.Instruction{instructions.Transfer(types.NativeToken, "x", types.NewBalance(1))}
	res, err := g.Propose("A", "d", ins, types.NewBalance(1000), types.Timestamp(0))
	require.NoError(t, err)
	id := res.Value

	_, err = g.Finalize(id, "A", types.Timestamp(50))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrProposalNotExpired))

	finRes, err := g.Finalize(id, "A", types.Timestamp(200))
	require.NoError(t, err)
	require.Len(t, finRes.Effects, 1)
	assert.Equal(t, types.NewBalance(1000), finRes.Effects[0].Amount)

	p2, ok := g.Proposal(id)
	require.True(t, ok)
	assert.Equal(t, governance.StatusExpired, p2.Status.Tag)
}

// S5: instruction-set validation.
func TestScenarioS5InvalidInstructionSetRejected(t *testing.T) {
	g := New(councilPolicy("A"), log.NewNopLogger())
	ins := []instructions.Instruction{
		instructions.Transfer(types.NativeToken, "x", types.NewBalance(1)),
		instructions.SetStakingContract("staking.near"),
	}
	_, err := g.Propose("A", "d", ins, types.NewBalance(1000), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrInvalidInstructionSet))
}

// S6: double-vote then vote-switch.
func TestScenarioS6DoubleVoteThenSwitch(t *testing.T) {
	g := New(councilPolicy("A", "B", "C"), log.NewNopLogger())
	ins := []instructions.Instruction{instructions.Transfer(types.NativeToken, "x", types.NewBalance(1))}
	res, err := g.Propose("A", "d", ins, types.NewBalance(1000), 0)
	require.NoError(t, err)
	id := res.Value

	_, err = g.Approve(id, 0, "A", 0)
	require.NoError(t, err)

	_, err = g.Approve(id, 0, "A", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrAlreadyVoted))

	_, err = g.Reject(id, "A", 0)
	require.NoError(t, err)

	p, ok := g.Proposal(id)
	require.True(t, ok)
	assert.True(t, p.ApproveCount[0].IsZero())
	assert.Equal(t, types.NewBalance(1), p.RejectCount)
}

// P4: staking_id transitions at most once, from None to Some.
func TestStakingIDWriteOnce(t *testing.T) {
	g := New(councilPolicy("A"), log.NewNopLogger())
	assert.Nil(t, g.StakingID())

	res, err := g.Propose("A", "set staking", []instructions.Instruction{instructions.SetStakingContract("staking.near")}, types.NewBalance(1000), 0)
	require.NoError(t, err)
	_, err = g.Approve(res.Value, 0, "A", 0)
	require.NoError(t, err)
	require.NotNil(t, g.StakingID())
	assert.Equal(t, types.AccountID("staking.near"), *g.StakingID())

	// a second attempt must fail the propose-time precheck.
	_, err = g.Propose("A", "set staking again", []instructions.Instruction{instructions.SetStakingContract("other.near")}, types.NewBalance(1000), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrStakingContractCantChange))
	assert.Equal(t, types.AccountID("staking.near"), *g.StakingID())
}

func TestPermissionDeniedForNonCouncilMember(t *testing.T) {
	g := New(councilPolicy("A"), log.NewNopLogger())
	ins := []instructions.Instruction{instructions.Transfer(types.NativeToken, "x", types.NewBalance(1))}
	_, err := g.Propose("outsider", "d", ins, types.NewBalance(1000), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrPermissionDenied))
}
