package policy

import "github.com/bockgov/governor/types"

// ProposalKind names a classification of proposals derived from their
// instruction tag-set, per spec.md §3.
type ProposalKind struct {
	Name                 string
	RequiredInstructions types.InstructionTagSet
	VotePolicy           VotePolicy
}

// DefaultKindName is the classification assigned when no ProposalKind
// matches (spec.md §4.1 match_proposal_kind).
const DefaultKindName = ""

// MatchProposalKind returns the name of the first ProposalKind (in
// declaration order) whose RequiredInstructions is a subset of tags, or
// DefaultKindName if none matches, per spec.md §4.1.
func MatchProposalKind(kinds []ProposalKind, tags types.InstructionTagSet) string {
	for _, k := range kinds {
		if k.RequiredInstructions.SubsetOf(tags) {
			return k.Name
		}
	}
	return DefaultKindName
}
