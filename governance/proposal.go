// Package governance implements spec.md §4.2 (Proposal Store & State
// Machine) and §4.4 (Reject/Expire Path), and the weighted vote tally of
// §4 item 4. Grounded on the teacher's dao/proposal_manager.go (manager
// wrapping shared state, status-driven execution dispatch) and
// dao/processor.go (validate-then-mutate-then-persist shape); see
// DESIGN.md.
package governance

import (
	"github.com/bockgov/governor/instructions"
	"github.com/bockgov/governor/types"
)

// StatusTag distinguishes the terminal/non-terminal proposal states of
// spec.md §3.
type StatusTag byte

const (
	StatusInProgress StatusTag = iota
	StatusApproved
	StatusRejected
	StatusExpired
	StatusMoved
)

// Status is a tagged union over ProposalStatus, per spec.md §3.
type Status struct {
	Tag     StatusTag
	Version uint8 // meaningful when Tag == StatusApproved
}

func InProgress() Status             { return Status{Tag: StatusInProgress} }
func Approved(version uint8) Status  { return Status{Tag: StatusApproved, Version: version} }
func Rejected() Status               { return Status{Tag: StatusRejected} }
func Expired() Status                { return Status{Tag: StatusExpired} }
func Moved() Status                  { return Status{Tag: StatusMoved} }

// IsTerminal reports whether s is a terminal status (spec.md invariant I4).
func (s Status) IsTerminal() bool {
	return s.Tag != StatusInProgress
}

// Vote records one account's current ballot on a proposal, per spec.md
// §3: choice=0 means reject, choice=v+1 means approve version v.
type Vote struct {
	Choice uint8
	Weight types.Balance
}

// IsReject reports whether this vote is a rejection.
func (v Vote) IsReject() bool { return v.Choice == 0 }

// ApprovedVersion returns the approved version index; only meaningful
// when !IsReject().
func (v Vote) ApprovedVersion() uint8 { return v.Choice - 1 }

// RemoveVote records one account's veto of a specific version, per
// spec.md §9's adopted "explicit RemoveVote list" shape (Open Question 2
// in DESIGN.md).
type RemoveVote struct {
	Account types.AccountID
	Version uint8
}

// ProposalVersion is one concrete proposal text/instruction list within a
// topic, per spec.md §3.
type ProposalVersion struct {
	Proposer     types.AccountID
	Description  string
	Instructions []instructions.Instruction
}

// Proposal is a topic: one or more competing ProposalVersions sharing a
// single tally structure, per spec.md §3. Versions, ApproveCount,
// RemoveCount and RemoveFlag are the four per-version arrays and share
// one length; RejectCount is a single scalar shared across the topic.
type Proposal struct {
	Kind           string
	Versions       []ProposalVersion
	Status         Status
	ApproveCount   []types.Balance
	RejectCount    types.Balance
	RemoveCount    []types.Balance
	RemoveFlag     []bool
	Votes          map[types.AccountID]Vote
	RemoveVotes    []RemoveVote
	SubmissionTime types.Timestamp
}

// NumVersions returns len(Versions), the shared length every per-version
// array must match (spec.md invariant I3).
func (p *Proposal) NumVersions() int {
	return len(p.Versions)
}

// checkInvariants is a cheap assertion used by tests (property P1 in
// spec.md §8): the four per-version arrays must have equal length.
func (p *Proposal) checkInvariants() bool {
	n := p.NumVersions()
	return len(p.ApproveCount) == n && len(p.RemoveCount) == n && len(p.RemoveFlag) == n
}
