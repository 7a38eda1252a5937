package policy

import "github.com/bockgov/governor/types"

// WeightKind selects which of the two weight regimes a VotePolicy uses,
// per spec.md §3.
type WeightKind byte

const (
	TokenWeight WeightKind = iota
	RoleWeight
)

// ThresholdKind distinguishes an absolute weight threshold from a ratio
// threshold, per spec.md §3.
type ThresholdKind byte

const (
	ThresholdWeight ThresholdKind = iota
	ThresholdRatio
)

// Threshold is a tagged union: either an absolute Weight(u128) or a
// Ratio(num, denom).
type Threshold struct {
	Kind   ThresholdKind
	Weight types.Balance // meaningful when Kind == ThresholdWeight
	Num    uint64        // meaningful when Kind == ThresholdRatio
	Denom  uint64        // meaningful when Kind == ThresholdRatio
}

// WeightThreshold builds an absolute Weight(w) threshold.
func WeightThreshold(w types.Balance) Threshold {
	return Threshold{Kind: ThresholdWeight, Weight: w}
}

// RatioThreshold builds a Ratio(num, denom) threshold.
func RatioThreshold(num, denom uint64) Threshold {
	return Threshold{Kind: ThresholdRatio, Num: num, Denom: denom}
}

// resolve computes the threshold's resolved weight against total, per
// spec.md §3: for Ratio(n,d) with total T, resolved = min(T, floor(n*T/d)+1);
// for Weight(w), resolved = min(w, T).
func (t Threshold) resolve(total types.Balance) types.Balance {
	switch t.Kind {
	case ThresholdWeight:
		return types.Min(t.Weight, total)
	case ThresholdRatio:
		if t.Denom == 0 {
			return total
		}
		num := total.Mul(types.NewBalance(t.Num))
		resolved := num.DivFloor(types.NewBalance(t.Denom)).Add(types.NewBalance(1))
		return types.Min(resolved, total)
	default:
		return total
	}
}

// VotePolicy governs how a proposal kind's votes are weighed and what
// weight is required to pass, per spec.md §3.
type VotePolicy struct {
	WeightKind WeightKind
	Quorum     types.Balance
	Threshold  Threshold
}

// GetThreshold computes the required weight per spec.md §4.1
// get_threshold. TokenWeight resolves threshold against totalSupply
// directly. RoleWeight resolves against the sum of sizes of every Group
// role whose permissions grant VoteApprove on proposalKind, and fails
// with ErrUnsupportedRole if any matching role is not a Group.
func GetThreshold(vp VotePolicy, totalSupply types.Balance, proposalKind string, roles []Role) (types.Balance, error) {
	switch vp.WeightKind {
	case TokenWeight:
		resolved := vp.Threshold.resolve(totalSupply)
		return maxBalance(vp.Quorum, resolved), nil
	case RoleWeight:
		eligible := types.ZeroBalance
		for _, r := range roles {
			if !r.grantsVoteApprove(proposalKind) {
				continue
			}
			if !r.Kind.IsGroup() {
				return types.ZeroBalance, unsupportedRoleErr(r.Name)
			}
			eligible = eligible.Add(types.NewBalance(uint64(r.Kind.Size())))
		}
		resolved := vp.Threshold.resolve(eligible)
		return maxBalance(vp.Quorum, resolved), nil
	default:
		return types.ZeroBalance, unsupportedRoleErr("")
	}
}

func maxBalance(a, b types.Balance) types.Balance {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func unsupportedRoleErr(roleName string) error {
	return types.NewError(types.ErrUnsupportedRole, "role is not a Group role but grants VoteApprove", map[string]interface{}{
		"role": roleName,
	})
}
