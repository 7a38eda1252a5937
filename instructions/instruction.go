// Package instructions implements spec.md §4.3 (the instruction
// interpreter) and §4.2.1 (instruction-set validation). Grounded on the
// teacher's ProposalManager.ExecuteProposal switch-on-ProposalType
// dispatch (dao/proposal_manager.go), generalized from one proposal-type
// tag per proposal to a per-instruction tag sequence (see DESIGN.md).
package instructions

import (
	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/types"
)

// Instruction is the tagged sum described in spec.md §3. Exactly one
// field group is meaningful, selected by Tag; the tag values are fixed
// by types.InstructionTag and MUST NOT be reordered.
type Instruction struct {
	tag types.InstructionTag

	// TagFunctionCall
	Receiver types.AccountID
	Actions  []effects.FunctionCallAction

	// TagUpgradeSelf
	CodeHash types.Hash

	// TagUpgradeRemote (Receiver, Method, CodeHash)
	Method string

	// TagTransfer
	Token  types.TokenID
	To     types.AccountID
	Amount types.Balance

	// TagSetStakingContract
	StakingAccount types.AccountID

	// TagAddMemberToRole / TagRemoveMemberFromRole
	RoleName string
	Account  types.AccountID

	// TagAddBounty
	Bounty BountySpec

	// TagBountyDone
	BountyID uint64
	// Receiver reused above for the bounty payout recipient.

	// TagChangeConfig
	Config interface{}

	// TagChangePolicy
	Policy interface{}
}

// BountySpec mirrors bounty.Bounty's fields without importing the bounty
// package, avoiding an import cycle (bounty needs to run AddBounty
// effects emitted from here, but instructions must not depend on bounty's
// claim bookkeeping). See DESIGN.md.
type BountySpec struct {
	Description string
	Token       types.TokenID
	Amount      types.Balance
	Times       uint32
	MaxDeadline types.Duration
}

func (i Instruction) Tag() types.InstructionTag { return i.tag }

func ChangeConfig(config interface{}) Instruction {
	return Instruction{tag: types.TagChangeConfig, Config: config}
}

func ChangePolicy(policy interface{}) Instruction {
	return Instruction{tag: types.TagChangePolicy, Policy: policy}
}

func AddMemberToRole(role string, account types.AccountID) Instruction {
	return Instruction{tag: types.TagAddMemberToRole, RoleName: role, Account: account}
}

func RemoveMemberFromRole(role string, account types.AccountID) Instruction {
	return Instruction{tag: types.TagRemoveMemberFromRole, RoleName: role, Account: account}
}

func FunctionCall(receiver types.AccountID, actions []effects.FunctionCallAction) Instruction {
	return Instruction{tag: types.TagFunctionCall, Receiver: receiver, Actions: actions}
}

func UpgradeSelf(codeHash types.Hash) Instruction {
	return Instruction{tag: types.TagUpgradeSelf, CodeHash: codeHash}
}

func UpgradeRemote(receiver types.AccountID, method string, codeHash types.Hash) Instruction {
	return Instruction{tag: types.TagUpgradeRemote, Receiver: receiver, Method: method, CodeHash: codeHash}
}

func Transfer(token types.TokenID, to types.AccountID, amount types.Balance) Instruction {
	return Instruction{tag: types.TagTransfer, Token: token, To: to, Amount: amount}
}

func SetStakingContract(account types.AccountID) Instruction {
	return Instruction{tag: types.TagSetStakingContract, StakingAccount: account}
}

func AddBounty(b BountySpec) Instruction {
	return Instruction{tag: types.TagAddBounty, Bounty: b}
}

func BountyDone(bountyID uint64, receiver types.AccountID) Instruction {
	return Instruction{tag: types.TagBountyDone, BountyID: bountyID, Receiver: receiver}
}

func Vote() Instruction {
	return Instruction{tag: types.TagVote}
}

// TagSet returns the tag-set of a list of instructions, used by the
// policy engine's match_proposal_kind (spec.md §4.1).
func TagSet(list []Instruction) types.InstructionTagSet {
	s := make(types.InstructionTagSet, len(list))
	for _, ins := range list {
		s[ins.Tag()] = struct{}{}
	}
	return s
}

// standaloneOnly is the set of instruction tags that spec.md §4.2.1
// forbids from appearing alongside any other instruction in the same
// version.
var standaloneOnly = types.NewInstructionTagSet(
	types.TagSetStakingContract,
	types.TagUpgradeSelf,
	types.TagVote,
	types.TagBountyDone,
)

// ValidateSet enforces spec.md §4.2.1: if |instructions| > 1, the set
// must not contain any standalone-only tag.
func ValidateSet(list []Instruction) error {
	if len(list) == 0 {
		return types.NewError(types.ErrEmptyInstructionSet, "a proposal version must contain at least one instruction", nil)
	}
	if len(list) == 1 {
		return nil
	}
	for _, ins := range list {
		if standaloneOnly.Contains(ins.Tag()) {
			return types.NewError(types.ErrInvalidInstructionSet,
				"this instruction must be the only instruction in its version", map[string]interface{}{
					"tag": ins.Tag(),
				})
		}
	}
	return nil
}
