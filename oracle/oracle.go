// Package oracle abstracts the voting-weight source described in
// spec.md §9 ("Abstract as fn user_weight(account) -> balance plus
// total_delegation_amount read accessor"). The staking/delegation ledger
// itself is out of scope (spec.md §1); this package only defines the
// interface the governance core reads through, plus an in-memory
// reference implementation for tests, grounded on the teacher's
// GovernanceState.Delegations map (dao/state.go) adapted into a
// pluggable interface (see DESIGN.md).
package oracle

import "github.com/bockgov/governor/types"

// WeightOracle is the read-only interface the policy/governance packages
// read through. Under TokenWeight it supplies vote weight and total
// supply; under either regime UserWeight is the balance that permission
// checks match Member roles against.
type WeightOracle interface {
	UserWeight(account types.AccountID) types.Balance
	TotalDelegation() types.Balance
}

// StaticOracle is an in-memory WeightOracle backed by a fixed map,
// suitable for tests and for hosts that keep their own delegation ledger
// and simply push balances in.
type StaticOracle struct {
	weights map[types.AccountID]types.Balance
	total   types.Balance
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{weights: make(map[types.AccountID]types.Balance)}
}

// SetWeight sets account's delegated stake and recomputes the total.
func (o *StaticOracle) SetWeight(account types.AccountID, weight types.Balance) {
	old, ok := o.weights[account]
	if ok {
		o.total = o.total.Sub(old)
	}
	o.weights[account] = weight
	o.total = o.total.Add(weight)
}

func (o *StaticOracle) UserWeight(account types.AccountID) types.Balance {
	if w, ok := o.weights[account]; ok {
		return w
	}
	return types.ZeroBalance
}

func (o *StaticOracle) TotalDelegation() types.Balance {
	return o.total
}
