package instructions

import (
	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/types"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// PolicyHost is the subset of governor state the executor mutates for
// ChangeConfig/ChangePolicy/role-edit instructions. Defined here (rather
// than depending on the policy package directly) so the executor stays
// decoupled from the policy package's concrete types; governor wires a
// concrete adapter in.
type PolicyHost interface {
	ReplaceConfig(config interface{})
	ReplacePolicy(policy interface{})
	AddMemberToRole(role string, account types.AccountID)
	RemoveMemberFromRole(role string, account types.AccountID)
}

// StakingHost exposes the write-once staking_id slot (spec.md invariant
// I5).
type StakingHost interface {
	SetStakingContract(account types.AccountID) error
}

// BountyHost is the subset of the bounty registry the executor drives for
// AddBounty/BountyDone instructions.
type BountyHost interface {
	AddBounty(spec BountySpec) uint64
	PayoutBounty(id uint64, receiver types.AccountID, success bool) error
}

// Deps bundles every external dependency one Execute call needs.
type Deps struct {
	Policy  PolicyHost
	Staking StakingHost
	Bounty  BountyHost
	Logger  log.Logger
}

// Execute runs list in order, per spec.md §4.3's effect table, appending
// emitted effects to q. It stops at and returns the first error
// encountered; instructions that ran before it stay applied and their
// effects stay queued, since Execute does not roll anything back. The
// governance store calls it only after a version has crossed its
// approval threshold and logs such an error without retrying (see
// Store.HandleVote in governance/store.go).
func Execute(list []Instruction, deps Deps, q *effects.Queue) error {
	for _, ins := range list {
		if err := executeOne(ins, deps, q); err != nil {
			return err
		}
	}
	return nil
}

func executeOne(ins Instruction, deps Deps, q *effects.Queue) error {
	switch ins.Tag() {
	case types.TagChangeConfig:
		deps.Policy.ReplaceConfig(ins.Config)
		return nil

	case types.TagChangePolicy:
		deps.Policy.ReplacePolicy(ins.Policy)
		return nil

	case types.TagAddMemberToRole:
		deps.Policy.AddMemberToRole(ins.RoleName, ins.Account)
		return nil

	case types.TagRemoveMemberFromRole:
		deps.Policy.RemoveMemberFromRole(ins.RoleName, ins.Account)
		return nil

	case types.TagFunctionCall:
		q.Push(effects.RemoteCall(ins.Receiver, ins.Actions))
		return nil

	case types.TagUpgradeSelf:
		q.Push(effects.SelfUpgrade(ins.CodeHash))
		return nil

	case types.TagUpgradeRemote:
		q.Push(effects.RemoteUpgrade(ins.Receiver, ins.Method, ins.CodeHash))
		return nil

	case types.TagTransfer:
		if ins.Token.IsNative() {
			q.Push(effects.NativeTransfer(ins.To, ins.Amount))
		} else {
			q.Push(effects.FungibleTransfer(ins.Token, ins.To, ins.Amount))
		}
		return nil

	case types.TagSetStakingContract:
		return deps.Staking.SetStakingContract(ins.StakingAccount)

	case types.TagAddBounty:
		id := deps.Bounty.AddBounty(ins.Bounty)
		level.Info(deps.Logger).Log("msg", "bounty added via instruction", "bounty_id", id)
		return nil

	case types.TagBountyDone:
		return deps.Bounty.PayoutBounty(ins.BountyID, ins.Receiver, true)

	case types.TagVote:
		// Signaling only; no effect, per spec.md §4.3.
		return nil

	default:
		return types.NewError(types.ErrInvalidInstructionSet, "unknown instruction tag", map[string]interface{}{
			"tag": ins.Tag(),
		})
	}
}

// RejectPath runs the reject/expire path of spec.md §4.4 item 2: for
// every BountyDone instruction in any version of the proposal, run
// bounty payout with success=false. It never aborts on a payout error;
// a missing or already-resolved claim is logged and skipped, because the
// proposal's own transition to Rejected/Expired must still complete.
func RejectPath(allVersions [][]Instruction, deps Deps) {
	for _, version := range allVersions {
		for _, ins := range version {
			if ins.Tag() != types.TagBountyDone {
				continue
			}
			if err := deps.Bounty.PayoutBounty(ins.BountyID, ins.Receiver, false); err != nil {
				level.Warn(deps.Logger).Log("msg", "reject-path bounty release failed, skipping", "bounty_id", ins.BountyID, "err", err)
			}
		}
	}
}
