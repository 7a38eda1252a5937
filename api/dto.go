package api

import (
	"encoding/json"
	"fmt"

	"github.com/bockgov/governor/effects"
	"github.com/bockgov/governor/governance"
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/types"
)

// APIError is the JSON error envelope, matching the teacher's own
// api.APIError{Error string} shape (api/dao_server.go).
type APIError struct {
	Error string `json:"error"`
}

func errorResponse(err error) APIError {
	return APIError{Error: err.Error()}
}

// FunctionCallActionDTO mirrors effects.FunctionCallAction over the wire.
type FunctionCallActionDTO struct {
	Method  string        `json:"method"`
	Args    []byte        `json:"args,omitempty"`
	Deposit types.Balance `json:"deposit"`
	Gas     uint64        `json:"gas"`
}

// BountySpecDTO mirrors instructions.BountySpec over the wire.
type BountySpecDTO struct {
	Description string        `json:"description"`
	Token       string        `json:"token"`
	Amount      types.Balance `json:"amount"`
	Times       uint32        `json:"times"`
	MaxDeadline types.Duration `json:"max_deadline"`
}

// InstructionDTO is the JSON encoding of instructions.Instruction,
// selecting which fields are meaningful by Kind, the same way the
// underlying Instruction selects by its internal tag.
type InstructionDTO struct {
	Kind string `json:"kind"`

	Config json.RawMessage `json:"config,omitempty"`

	RoleName string `json:"role,omitempty"`
	Account  string `json:"account,omitempty"`

	Receiver string                  `json:"receiver,omitempty"`
	Actions  []FunctionCallActionDTO `json:"actions,omitempty"`

	CodeHash string `json:"code_hash,omitempty"`
	Method   string `json:"method,omitempty"`

	Token  string `json:"token,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount,omitempty"`

	StakingAccount string `json:"staking_account,omitempty"`

	Bounty *BountySpecDTO `json:"bounty,omitempty"`

	BountyID uint64 `json:"bounty_id,omitempty"`
}

// toInstruction converts the wire DTO to an instructions.Instruction.
// ChangePolicy is intentionally rejected: instructions.Instruction.Policy
// is an opaque interface{} that only instructions.PolicyHost.ReplacePolicy
// type-asserts back into a policy.Policy Go value (see
// instructionPolicyHost in governor/execute.go); a policy replacement has
// no safe generic JSON shape, so it must be submitted through the Go
// Governor API directly rather than this HTTP layer.
func (d InstructionDTO) toInstruction() (instructions.Instruction, error) {
	switch d.Kind {
	case "ChangeConfig":
		var cfg interface{}
		if len(d.Config) > 0 {
			if err := json.Unmarshal(d.Config, &cfg); err != nil {
				return instructions.Instruction{}, fmt.Errorf("invalid config: %w", err)
			}
		}
		return instructions.ChangeConfig(cfg), nil
	case "ChangePolicy":
		return instructions.Instruction{}, fmt.Errorf("ChangePolicy is not submittable over the HTTP API; use the Go Governor API directly")
	case "AddMemberToRole":
		return instructions.AddMemberToRole(d.RoleName, types.AccountID(d.Account)), nil
	case "RemoveMemberFromRole":
		return instructions.RemoveMemberFromRole(d.RoleName, types.AccountID(d.Account)), nil
	case "FunctionCall":
		actions := make([]effects.FunctionCallAction, len(d.Actions))
		for i, a := range d.Actions {
			actions[i] = effects.FunctionCallAction{Method: a.Method, Args: a.Args, Deposit: a.Deposit, Gas: a.Gas}
		}
		return instructions.FunctionCall(types.AccountID(d.Receiver), actions), nil
	case "UpgradeSelf":
		h, err := types.HashFromHex(d.CodeHash)
		if err != nil {
			return instructions.Instruction{}, err
		}
		return instructions.UpgradeSelf(h), nil
	case "UpgradeRemote":
		h, err := types.HashFromHex(d.CodeHash)
		if err != nil {
			return instructions.Instruction{}, err
		}
		return instructions.UpgradeRemote(types.AccountID(d.Receiver), d.Method, h), nil
	case "Transfer":
		amount, err := types.BalanceFromDecimal(d.Amount)
		if err != nil {
			return instructions.Instruction{}, err
		}
		return instructions.Transfer(types.TokenID(d.Token), types.AccountID(d.To), amount), nil
	case "SetStakingContract":
		return instructions.SetStakingContract(types.AccountID(d.StakingAccount)), nil
	case "AddBounty":
		if d.Bounty == nil {
			return instructions.Instruction{}, fmt.Errorf("AddBounty requires a bounty object")
		}
		return instructions.AddBounty(instructions.BountySpec{
			Description: d.Bounty.Description,
			Token:       types.TokenID(d.Bounty.Token),
			Amount:      d.Bounty.Amount,
			Times:       d.Bounty.Times,
			MaxDeadline: d.Bounty.MaxDeadline,
		}), nil
	case "BountyDone":
		return instructions.BountyDone(d.BountyID, types.AccountID(d.Account)), nil
	case "Vote":
		return instructions.Vote(), nil
	default:
		return instructions.Instruction{}, fmt.Errorf("unknown instruction kind %q", d.Kind)
	}
}

func toInstructionList(dtos []InstructionDTO) ([]instructions.Instruction, error) {
	out := make([]instructions.Instruction, len(dtos))
	for i, d := range dtos {
		ins, err := d.toInstruction()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out[i] = ins
	}
	return out, nil
}

// ProposalVersionResponse is one version within a ProposalResponse.
type ProposalVersionResponse struct {
	Proposer    string `json:"proposer"`
	Description string `json:"description"`
}

// StatusResponse mirrors governance.Status over the wire.
type StatusResponse struct {
	Status  string `json:"status"`
	Version *uint8 `json:"version,omitempty"`
}

func statusResponse(s governance.Status) StatusResponse {
	names := [...]string{"InProgress", "Approved", "Rejected", "Expired", "Moved"}
	r := StatusResponse{Status: names[s.Tag]}
	if s.Tag == governance.StatusApproved {
		v := s.Version
		r.Version = &v
	}
	return r
}

// ProposalResponse is the JSON view of a governance.Proposal, matching
// the teacher's own ProposalResponse shape (api/dao_server.go) with
// fields renamed for this module's proposal/version/tally model.
type ProposalResponse struct {
	ID           uint64                    `json:"id"`
	Kind         string                    `json:"kind"`
	Status       StatusResponse            `json:"status"`
	Versions     []ProposalVersionResponse `json:"versions"`
	ApproveCount []types.Balance           `json:"approve_count"`
	RejectCount  types.Balance             `json:"reject_count"`
	RemoveCount  []types.Balance           `json:"remove_count"`
	SubmittedAt  int64                     `json:"submitted_at"`
}

func proposalResponse(id uint64, p *governance.Proposal) ProposalResponse {
	versions := make([]ProposalVersionResponse, len(p.Versions))
	for i, v := range p.Versions {
		versions[i] = ProposalVersionResponse{Proposer: string(v.Proposer), Description: v.Description}
	}
	return ProposalResponse{
		ID:           id,
		Kind:         p.Kind,
		Status:       statusResponse(p.Status),
		Versions:     versions,
		ApproveCount: p.ApproveCount,
		RejectCount:  p.RejectCount,
		RemoveCount:  p.RemoveCount,
		SubmittedAt:  int64(p.SubmissionTime),
	}
}

// EffectResponse is the JSON view of an effects.Effect, returned
// alongside every mutating operation's result per spec.md §5's deferred-
// effects model: the HTTP caller is the host that must carry them out.
type EffectResponse struct {
	Kind     string                  `json:"kind"`
	Token    string                  `json:"token,omitempty"`
	To       string                  `json:"to,omitempty"`
	Amount   types.Balance           `json:"amount,omitempty"`
	Receiver string                  `json:"receiver,omitempty"`
	Actions  []FunctionCallActionDTO `json:"actions,omitempty"`
	CodeHash string                  `json:"code_hash,omitempty"`
	Method   string                  `json:"method,omitempty"`
}

func effectsResponse(list []effects.Effect) []EffectResponse {
	out := make([]EffectResponse, len(list))
	names := [...]string{"NativeTransfer", "FungibleTransfer", "RemoteCall", "SelfUpgrade", "RemoteUpgrade"}
	for i, e := range list {
		r := EffectResponse{Kind: names[e.Kind]}
		switch e.Kind {
		case effects.KindNativeTransfer, effects.KindFungibleTransfer:
			r.Token, r.To, r.Amount = e.Token.String(), string(e.To), e.Amount
		case effects.KindRemoteCall:
			r.Receiver = string(e.Receiver)
			for _, a := range e.Actions {
				r.Actions = append(r.Actions, FunctionCallActionDTO{Method: a.Method, Args: a.Args, Deposit: a.Deposit, Gas: a.Gas})
			}
		case effects.KindSelfUpgrade:
			r.CodeHash = e.CodeHash.String()
		case effects.KindRemoteUpgrade:
			r.Receiver, r.Method, r.CodeHash = string(e.Receiver), e.Method, e.CodeHash.String()
		}
		out[i] = r
	}
	return out
}
