package policy

import (
	"testing"

	"github.com/bockgov/governor/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdResolveRatio(t *testing.T) {
	// spec.md §3: for Ratio(n,d) with total T, resolved = min(T, floor(n*T/d)+1)
	th := RatioThreshold(1, 2)
	total := types.NewBalance(100)
	assert.Equal(t, types.NewBalance(51), th.resolve(total))
}

func TestThresholdResolveRatioClampedToTotal(t *testing.T) {
	th := RatioThreshold(1, 1)
	total := types.NewBalance(10)
	assert.Equal(t, total, th.resolve(total))
}

func TestThresholdResolveWeight(t *testing.T) {
	th := WeightThreshold(types.NewBalance(50))
	assert.Equal(t, types.NewBalance(50), th.resolve(types.NewBalance(100)))
	assert.Equal(t, types.NewBalance(30), th.resolve(types.NewBalance(30)))
}

func TestGetThresholdTokenWeight(t *testing.T) {
	vp := VotePolicy{WeightKind: TokenWeight, Quorum: types.NewBalance(20), Threshold: RatioThreshold(1, 2)}
	got, err := GetThreshold(vp, types.NewBalance(100), "transfer", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewBalance(51), got)
}

func TestGetThresholdTokenWeightQuorumWins(t *testing.T) {
	vp := VotePolicy{WeightKind: TokenWeight, Quorum: types.NewBalance(90), Threshold: RatioThreshold(1, 2)}
	got, err := GetThreshold(vp, types.NewBalance(100), "transfer", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewBalance(90), got)
}

func TestGetThresholdRoleWeightSumsEligibleGroups(t *testing.T) {
	council := NewRole("council", Group(types.NewAccountSet("a", "b", "c")), "transfer:VoteApprove")
	other := NewRole("observers", Group(types.NewAccountSet("d", "e")), "transfer:VoteReject")
	vp := VotePolicy{WeightKind: RoleWeight, Quorum: types.ZeroBalance, Threshold: RatioThreshold(1, 2)}

	got, err := GetThreshold(vp, types.ZeroBalance, "transfer", []Role{council, other})
	require.NoError(t, err)
	// eligible = 3 (only council grants VoteApprove); floor(1*3/2)+1 = 2
	assert.Equal(t, types.NewBalance(2), got)
}

func TestGetThresholdRoleWeightFailsOnNonGroupRole(t *testing.T) {
	notGroup := NewRole("everyone", Everyone(), "transfer:VoteApprove")
	vp := VotePolicy{WeightKind: RoleWeight, Quorum: types.ZeroBalance, Threshold: RatioThreshold(1, 2)}

	_, err := GetThreshold(vp, types.ZeroBalance, "transfer", []Role{notGroup})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.Tagged(types.ErrUnsupportedRole))
}

// P7: Threshold is monotone in total supply for a fixed ratio policy, and
// is lower-bounded by quorum.
func TestThresholdMonotoneInTotalSupplyAndBoundedByQuorum(t *testing.T) {
	vp := VotePolicy{WeightKind: TokenWeight, Quorum: types.NewBalance(10), Threshold: RatioThreshold(1, 3)}

	prev, err := GetThreshold(vp, types.NewBalance(5), "k", nil)
	require.NoError(t, err)
	assert.True(t, prev.GreaterOrEqual(vp.Quorum))

	for _, total := range []uint64{5, 20, 50, 100, 1000} {
		got, err := GetThreshold(vp, types.NewBalance(total), "k", nil)
		require.NoError(t, err)
		assert.True(t, got.GreaterOrEqual(vp.Quorum), "threshold must never fall below quorum")
		assert.True(t, got.GreaterOrEqual(prev), "threshold must be monotone non-decreasing in total supply")
		prev = got
	}
}
