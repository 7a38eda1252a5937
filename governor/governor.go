// Package governor composes the policy, governance, instructions,
// bounty, effects, oracle, and storage packages into the single owned
// aggregate described in spec.md §9's "Global state", exposing one
// method per operation in §6. Grounded on the teacher's dao.DAO facade
// (dao/dao.go), which composes GovernanceState, ProposalManager,
// TreasuryManager, etc. behind one struct built by a single constructor
// (see DESIGN.md).
package governor

import (
	"sync"

	"github.com/bockgov/governor/bounty"
	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/oracle"
	"github.com/bockgov/governor/policy"
	"github.com/bockgov/governor/storage"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
)

// Governor is the top-level aggregate. Every public method takes the
// single mutex for its duration, matching spec.md §5's single-threaded
// transactional request-handler model; grounded on the teacher's
// SecurityManager's sync.RWMutex-guarded maps (dao/security.go),
// generalized to one coarse lock over the whole aggregate since every
// operation here touches policy, proposals, and bounties together.
type Governor struct {
	mu sync.Mutex

	Policy policy.Policy
	Config interface{}
	Store  *governance.Store
	Bounty *bounty.Registry
	Oracle oracle.WeightOracle
	KV     storage.Store
	Logger log.Logger

	stakingID *types.AccountID

	// effectQueue accumulates effects emitted during the operation
	// currently holding mu; each public method drains it before
	// returning.
	effectQueue effects.Queue
}

// New builds a Governor wired with an in-memory oracle and key-value
// store, suitable for tests and for hosts that supply their own
// WeightOracle/Store implementations by reassigning the fields before
// first use.
func New(initialPolicy policy.Policy, logger log.Logger) *Governor {
	g := &Governor{
		Policy: initialPolicy,
		Oracle: oracle.NewStaticOracle(),
		KV:     storage.NewMemStore(),
		Logger: logger,
	}
	g.Store = governance.NewStore(&g.Policy, &oracleAdapter{g: g}, &bondAdapter{g: g}, logger)
	g.Store.ProposalBond = g.Policy.ProposalBond
	g.Store.ProposalPeriod = g.Policy.ProposalPeriod
	g.Store.ExecFn = g.execVersion
	g.Store.RejectFn = g.rejectPath
	g.Store.StakingSet = func() bool { return g.stakingID != nil }
	g.Bounty = bounty.NewRegistry(&proposalAdapter{g: g}, logger)
	g.Bounty.BountyBond = g.Policy.BountyBond
	g.Bounty.ForgivenessPeriod = g.Policy.BountyForgivenessPeriod
	return g
}

// refreshPolicyDerived copies the policy-controlled parameters that the
// store and bounty registry cache onto their own fields (bond amounts,
// periods, total supply) before each public operation, since Policy may
// have just been replaced wholesale by a ChangePolicy instruction, and
// Oracle's delegation total may have moved.
func (g *Governor) refreshPolicyDerived() {
	g.Store.ProposalBond = g.Policy.ProposalBond
	g.Store.ProposalPeriod = g.Policy.ProposalPeriod
	g.Store.TotalSupply = g.Oracle.TotalDelegation()
	g.Bounty.BountyBond = g.Policy.BountyBond
	g.Bounty.ForgivenessPeriod = g.Policy.BountyForgivenessPeriod
}

// drainEffects returns and clears the effects accumulated by the
// operation that just ran under mu.
func (g *Governor) drainEffects() []effects.Effect {
	return g.effectQueue.Drain()
}

// oracleAdapter satisfies governance.WeightOracle by forwarding to
// whichever oracle.WeightOracle the governor currently holds, so a host
// that swaps g.Oracle after construction is picked up without rebuilding
// the store.
type oracleAdapter struct{ g *Governor }

func (a *oracleAdapter) UserWeight(account types.AccountID) types.Balance {
	return a.g.Oracle.UserWeight(account)
}
func (a *oracleAdapter) TotalDelegation() types.Balance {
	return a.g.Oracle.TotalDelegation()
}

// bondAdapter satisfies governance.BondHost by queuing a native transfer
// effect for the refunded bond, per spec.md §4.3's "refund the proposal
// bond" step.
type bondAdapter struct{ g *Governor }

func (a *bondAdapter) RefundBond(to types.AccountID, amount types.Balance) {
	if amount.IsZero() {
		return
	}
	a.g.effectQueue.Push(effects.NativeTransfer(to, amount))
}

// proposalAdapter satisfies bounty.ProposalHost by forwarding to the
// governance store's Propose, so bounty.Registry.Done() can create a
// BountyDone proposal without bounty importing governance.
type proposalAdapter struct{ g *Governor }

func (a *proposalAdapter) Propose(proposer types.AccountID, description string, list []instructions.Instruction, attachedBond types.Balance, now types.Timestamp) (uint64, error) {
	return a.g.Store.Propose(proposer, description, list, attachedBond, now)
}
